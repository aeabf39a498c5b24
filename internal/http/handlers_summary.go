package http

import (
	"net/http"

	"cashflow/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	from, to, err := ParseRange(r.URL.Query(), now)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	summary, err := s.summaries.Summarize(r.Context(), r.PathValue("id"), from, to, now)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	s.appMetrics.summariesServed.Add(1)
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	kind, id, err := transactionRef(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	item, err := s.summaries.Share(r.Context(), kind, id, s.now())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(item).Write(w)
}

// transactionRef reads the {kind}/{itemID} path values.
func transactionRef(r *http.Request) (core.Kind, int64, error) {
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		return "", 0, err
	}
	id, err := parseItemID(r.PathValue("itemID"))
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

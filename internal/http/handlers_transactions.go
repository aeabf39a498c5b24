package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	items, err := s.projects.ListTransactions(r.Context(), r.PathValue("id"), kind)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	out := make([]transactionJSON, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionJSON(t))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	in, err := ParseTransaction(NewRequestBodyParser(r))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	in.Kind = kind
	in.ProjectID = r.PathValue("id")

	created, err := s.projects.CreateTransaction(r.Context(), in)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/%s/%d", kind.Plural(), created.ID)).
		Body(toTransactionJSON(created)).
		Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	kind, id, err := transactionRef(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	t, err := s.projects.GetTransaction(r.Context(), kind, id)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	kind, id, err := transactionRef(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	in, err := ParseTransaction(NewRequestBodyParser(r))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	updated, err := s.projects.UpdateTransaction(r.Context(), kind, id, in)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(toTransactionJSON(updated)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	kind, id, err := transactionRef(r)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if err := s.projects.DeleteTransaction(r.Context(), kind, id); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded; both decode into the same field lookup.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/services"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// errMalformedBody marks input that could not be decoded at all.
var errMalformedBody = errors.New("malformed request body")

// maxRangeYears bounds the span of a summary range.
const maxRangeYears = 100

var (
	errInvertedRange = errors.New("from is after to")
	errRangeTooWide  = fmt.Errorf("range spans more than %d years", maxRangeYears)
)

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseBool accepts JSON booleans and the usual checkbox spellings.
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// ParseTransaction reads the editable fields of an expense or earning.
// A recurring item without a period defaults to monthly.
func ParseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Name:        p.Get("name"),
		IsRecurring: parseBool(p.Get("is_recurring")),
	}

	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.Money{Cents: cents}

	if t.Date, err = core.ParseDate(p.Get("date")); err != nil {
		return core.Transaction{}, err
	}

	if t.IsRecurring {
		t.Period = core.RecurringPeriod(strings.ToLower(p.Get("recurring_period")))
		if t.Period == "" {
			t.Period = core.Monthly
		}
	}
	return t, nil
}

// ParseRange reads from/to query parameters, each defaulting to the bounds
// of the calendar year containing now. The range must be ordered and span at
// most maxRangeYears.
func ParseRange(query url.Values, now time.Time) (core.Date, core.Date, error) {
	from, to := services.DefaultRange(now)
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("from: %w", err)
		}
		from = d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("to: %w", err)
		}
		to = d
	}
	if from.After(to.Time) {
		return core.Date{}, core.Date{}, fmt.Errorf("%w: %s > %s", errInvertedRange, from, to)
	}
	if to.After(from.AddDate(maxRangeYears, 0, 0)) {
		return core.Date{}, core.Date{}, errRangeTooWide
	}
	return from, to, nil
}

// parseItemID reads a positive numeric transaction id.
func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("transaction id %q: %w", s, core.ErrNotFound)
	}
	return id, nil
}

// parseKind maps a path segment to a transaction kind. Unknown kinds are
// reported as not found since they name no resource.
func parseKind(s string) (core.Kind, error) {
	kind, err := core.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, core.ErrNotFound)
	}
	return kind, nil
}

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own budget")
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("a new window should reset the budget")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("GetMetrics() = %+v, want 1 rejected and 2 clients", m)
	}
}

func TestLimiter_SustainedTrafficIsLimited(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("a") {
			allowed++
		}
		*now = now.Add(5 * time.Second)
	}
	if allowed != 3 {
		t.Errorf("allowed = %d in 50s, want 3", allowed)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("old")
	*now = now.Add(11 * time.Minute)
	rl.Allow("fresh")

	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_Decide(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	d := rl.Decide("a")
	if !d.Allowed || d.Remaining != 1 || d.RetryAfter != time.Minute {
		t.Errorf("first Decide() = %+v", d)
	}
	*now = now.Add(20 * time.Second)
	rl.Decide("a")
	*now = now.Add(15 * time.Second)
	d = rl.Decide("a")
	if d.Allowed || d.Remaining != 0 || d.RetryAfter != 25*time.Second {
		t.Errorf("third Decide() = %+v, want rejected with 25s left", d)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, now := newTestLimiter(t, 1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := rl.Middleware(func(*http.Request) string { return "client" }, ReadOnly, nil)(next)

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/projects", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusNoContent || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("first POST = %d remaining=%q, want 204 and 0", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	*now = now.Add(30*time.Second + time.Millisecond)
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	for i := 0; i < 3; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusNoContent {
			t.Errorf("GET = %d, want 204 (reads are not limited)", rec.Code)
		}
	}
}

func TestLimiter_IdleTTL(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5, CleanupInterval: time.Hour, IdleTTL: time.Minute})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 0 {
		t.Errorf("ActiveClients() = %d, want 0", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	if rl.requestsPerMinute != 60 {
		t.Errorf("requestsPerMinute = %d, want default 60", rl.requestsPerMinute)
	}
}

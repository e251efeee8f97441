package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestIdempotencyStore(t *testing.T, cfg IdempotencyConfig) *IdempotencyStore {
	t.Helper()
	store := NewIdempotencyStore(cfg)
	t.Cleanup(store.Stop)
	return store
}

// rsvpRequest builds the kind of request the middleware exists for: an
// authenticated POST with an Idempotency-Key.
func rsvpRequest(userID, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session:algos/rsvp", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, userID))
	}
	return req
}

func TestNewIdempotencyStore_Config(t *testing.T) {
	t.Parallel()

	defaults := newTestIdempotencyStore(t, IdempotencyConfig{})
	if defaults.ttl != 24*time.Hour {
		t.Errorf("expected default TTL 24h, got %v", defaults.ttl)
	}
	if defaults.entries == nil {
		t.Error("entries map should be initialized")
	}

	custom := newTestIdempotencyStore(t, IdempotencyConfig{TTL: time.Hour, Cleanup: 5 * time.Minute})
	if custom.ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %v", custom.ttl)
	}
}

func TestGenerateKey_DiscriminatesEveryInput(t *testing.T) {
	t.Parallel()

	base := generateKey("user:ada", "rsvp-attempt-1", http.MethodPost, "/api/v1/sessions/session:algos/rsvp", []byte(`{}`))

	variants := []struct {
		name string
		key  string
	}{
		{"same inputs", generateKey("user:ada", "rsvp-attempt-1", http.MethodPost, "/api/v1/sessions/session:algos/rsvp", []byte(`{}`))},
		{"different user", generateKey("user:grace", "rsvp-attempt-1", http.MethodPost, "/api/v1/sessions/session:algos/rsvp", []byte(`{}`))},
		{"different client key", generateKey("user:ada", "rsvp-attempt-2", http.MethodPost, "/api/v1/sessions/session:algos/rsvp", []byte(`{}`))},
		{"different method", generateKey("user:ada", "rsvp-attempt-1", http.MethodPatch, "/api/v1/sessions/session:algos/rsvp", []byte(`{}`))},
		{"different path", generateKey("user:ada", "rsvp-attempt-1", http.MethodPost, "/api/v1/sessions/session:sorting/rsvp", []byte(`{}`))},
		{"different body", generateKey("user:ada", "rsvp-attempt-1", http.MethodPost, "/api/v1/sessions/session:algos/rsvp", []byte(`{"note":"x"}`))},
	}

	if variants[0].key != base {
		t.Error("identical inputs should produce identical keys")
	}
	for _, v := range variants[1:] {
		if v.key == base {
			t.Errorf("%s should produce a different key", v.name)
		}
	}
	if len(base) != 64 {
		t.Errorf("expected sha256 hex key of length 64, got %d", len(base))
	}
}

func TestIdempotency_SkipsReadMethods(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})
	wrapped := Idempotency(store)(handler)

	for _, method := range []string{http.MethodGet, http.MethodDelete, http.MethodPut} {
		req := httptest.NewRequest(method, "/api/v1/sessions", nil)
		req.Header.Set("Idempotency-Key", "ignored-for-reads")
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 handler calls, got %d", got)
	}
	store.mu.RLock()
	n := len(store.entries)
	store.mu.RUnlock()
	if n != 0 {
		t.Errorf("non-POST/PATCH requests should not be cached, found %d entries", n)
	}
}

func TestIdempotency_NoKeyHeader_PassesThrough(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	})
	wrapped := Idempotency(store)(handler)

	// Two identical POSTs without a key both reach the handler.
	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "", `{}`))
	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "", `{}`))

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 handler calls without a key, got %d", got)
	}
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"attending":true,"xp_awarded":10}`))
	})
	wrapped := Idempotency(store)(handler)

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("retried request should not reach the handler, got %d calls", got)
	}
	if first.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("first response should not be marked replayed")
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("second response should be marked replayed")
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed status %d, got %d", http.StatusCreated, second.Code)
	}
	if second.Body.String() != `{"attending":true,"xp_awarded":10}` {
		t.Errorf("expected cached body replayed, got %q", second.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected cached headers replayed, got %q", second.Header().Get("Content-Type"))
	}
}

func TestIdempotency_ScopesCacheToUser(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	})
	wrapped := Idempotency(store)(handler)

	// Same client key from two different students: both writes happen.
	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))
	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:grace", "rsvp-attempt-1", `{}`))

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected per-user cache entries, got %d handler calls", got)
	}
}

func TestIdempotency_UnauthenticatedFallsBackToRemoteAddr(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})
	wrapped := Idempotency(store)(handler)

	send := func(addr string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"email":"ada@example.com"}`))
		req.Header.Set("Idempotency-Key", "register-1")
		req.RemoteAddr = addr
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
	}

	send("203.0.113.9:51234")
	send("203.0.113.9:51234") // replayed
	send("198.51.100.4:40000")

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected caching keyed by RemoteAddr, got %d handler calls", got)
	}
}

func TestIdempotency_ConcurrentDuplicatesRunHandlerOnce(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond) // hold the entry in flight
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"attending":true}`))
	})
	wrapped := Idempotency(store)(handler)

	const clients = 5
	var wg sync.WaitGroup
	responses := make([]*httptest.ResponseRecorder, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			wrapped.ServeHTTP(rr, rsvpRequest("user:ada", "double-click", `{}`))
			responses[i] = rr
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected the handler to run once for concurrent duplicates, got %d", got)
	}
	for i, rr := range responses {
		if rr.Code != http.StatusCreated {
			t.Errorf("response %d: expected status %d, got %d", i, http.StatusCreated, rr.Code)
		}
		if rr.Body.String() != `{"attending":true}` {
			t.Errorf("response %d: expected identical body, got %q", i, rr.Body.String())
		}
	}
}

func TestIdempotency_RestoresBodyForHandler(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var seenBody string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	body := `{"code":"483921"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/session:algos/attendance", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "verify-1")
	Idempotency(store)(handler).ServeHTTP(httptest.NewRecorder(), req)

	if seenBody != body {
		t.Errorf("handler should see the original body, got %q", seenBody)
	}
}

func TestIdempotency_ExpiredEntryRunsHandlerAgain(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{TTL: 10 * time.Millisecond, Cleanup: time.Hour})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
	})
	wrapped := Idempotency(store)(handler)

	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))
	time.Sleep(20 * time.Millisecond)
	wrapped.ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected expired entry to re-run the handler, got %d calls", got)
	}
}

func TestIdempotency_PatchRequestsAreCached(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{})

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	})
	wrapped := Idempotency(store)(handler)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/session:algos", strings.NewReader(`{"title":"Graph Algorithms"}`))
		req.Header.Set("Idempotency-Key", "edit-1")
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "user:ada"))
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		return rr
	}

	send()
	second := send()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected PATCH retry served from cache, got %d calls", got)
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replayed marker on the retried PATCH")
	}
}

func TestIdempotencyStore_CleanupRemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	store := newTestIdempotencyStore(t, IdempotencyConfig{TTL: 5 * time.Millisecond, Cleanup: time.Hour})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	Idempotency(store)(handler).ServeHTTP(httptest.NewRecorder(), rsvpRequest("user:ada", "rsvp-attempt-1", `{}`))

	time.Sleep(15 * time.Millisecond)
	store.cleanup()

	store.mu.RLock()
	n := len(store.entries)
	store.mu.RUnlock()
	if n != 0 {
		t.Errorf("expected expired entries removed, %d remain", n)
	}
}

func TestIdempotencyResponseWriter_CapturesStatusAndBody(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	irw := &idempotencyResponseWriter{ResponseWriter: rr, status: http.StatusOK}

	irw.WriteHeader(http.StatusConflict)
	_, _ = irw.Write([]byte(`{"detail":"you have already RSVP'd to this session"}`))

	if irw.status != http.StatusConflict {
		t.Errorf("expected captured status %d, got %d", http.StatusConflict, irw.status)
	}
	if !bytes.Equal(irw.body.Bytes(), rr.Body.Bytes()) {
		t.Error("captured body should match the forwarded body")
	}
	if rr.Code != http.StatusConflict {
		t.Errorf("expected forwarded status %d, got %d", http.StatusConflict, rr.Code)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, route string
	status        int
}

type fakeObserver struct{ calls []recorded }

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recorded{method, route, status})
}

func TestLogger_ReportsRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Logger(obs))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	require.Len(t, obs.calls, 1)
	assert.Equal(t, recorded{"GET", "/items/{id}", http.StatusTeapot}, obs.calls[0])
}

func TestLogger_NilObserver(t *testing.T) {
	h := Logger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"), "burst exhausted")
	assert.True(t, rl.Allow("2.2.2.2"), "buckets are per IP")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("1.1.1.1"), "one token per second refills")
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	now = now.Add(10 * time.Minute)
	rl.Allow("2.2.2.2")
	rl.Sweep()

	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "2.2.2.2")
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	h := rl.Handler(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

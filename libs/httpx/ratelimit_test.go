package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limited(limit int, window time.Duration) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewRateLimiter(limit, window).Middleware()(ok)
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	h := limited(2, time.Minute)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/availability/slots", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked: %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/availability/slots", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request in window passed: %d", rec.Code)
	}
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	h := limited(1, time.Minute)

	first := httptest.NewRequest(http.MethodGet, "/api/availability/slots", nil)
	first.Header.Set("X-Forwarded-For", "198.51.100.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client blocked: %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/api/availability/slots", nil)
	second.Header.Set("X-Forwarded-For", "198.51.100.2")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client shares the first's budget: %d", rec.Code)
	}
}

func TestRateLimiterWindowResets(t *testing.T) {
	h := limited(1, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/availability/slots", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request blocked: %d", rec.Code)
	}

	time.Sleep(5 * time.Millisecond)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("request after window expiry blocked: %d", rec.Code)
	}
}

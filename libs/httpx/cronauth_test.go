package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func cronProtected(secret string) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return WithCronSecret(secret)(ok)
}

func TestCronSecretHeader(t *testing.T) {
	h := cronProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("x-cron-secret", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid secret rejected: %d", rec.Code)
	}
}

func TestCronSecretBearer(t *testing.T) {
	h := cronProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid bearer rejected: %d", rec.Code)
	}
}

func TestCronSecretWrongValue(t *testing.T) {
	h := cronProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("x-cron-secret", "nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret allowed: %d", rec.Code)
	}
}

func TestCronSecretMissingHeader(t *testing.T) {
	h := cronProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret allowed: %d", rec.Code)
	}
}

func TestCronSecretUnconfiguredDeniesAll(t *testing.T) {
	h := cronProtected("")

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("x-cron-secret", "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unconfigured secret must deny, got %d", rec.Code)
	}
}

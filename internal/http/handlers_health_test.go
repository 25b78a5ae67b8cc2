package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandlerGET(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	body := rec.Body.String()
	if body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestHealthHandlerHEAD(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	if bodyLen := rec.Body.Len(); bodyLen != 0 {
		t.Fatalf("expected empty body for HEAD request, got %d bytes", bodyLen)
	}
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()

	up := HealthCheckFunc(func(context.Context) error { return nil })
	down := HealthCheckFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name   string
		checks map[string]HealthChecker
		want   int
		body   string
	}{
		{"all up", map[string]HealthChecker{"postgres": up, "redis": up}, http.StatusOK,
			`{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`},
		{"redis down", map[string]HealthChecker{"postgres": up, "redis": down}, http.StatusServiceUnavailable,
			`{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`},
		{"nothing configured", nil, http.StatusOK, `{"status":"ok","checks":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			readyHandler(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

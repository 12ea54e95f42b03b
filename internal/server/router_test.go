package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vapex/internal/metrics"
)

func TestNewRouterRegistersHealthRoute(t *testing.T) {
	router := newRouter(nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json content type, got %q", ct)
	}
}

func TestNewRouterRedirectsRootToCatalog(t *testing.T) {
	router := newRouter(nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/catalog" {
		t.Fatalf("expected redirect to /catalog, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", rr.Code)
	}
}

func TestNewRouterServesMetrics(t *testing.T) {
	recorder := metrics.New()
	router := newRouter(recorder)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/mix/calculate", strings.NewReader(`{"target_volume":10}`)))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics to be served, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `endpoint="mix_calculate"`) {
		t.Fatalf("expected mix endpoint to be counted: %s", rr.Body.String())
	}
}

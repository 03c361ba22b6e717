package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TestMetricsMiddleware_EmitsRequestCounters verifies that wrapping a handler
// with MetricsMiddleware results in request metrics being exposed via the
// Prometheus /metrics handler.
func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	MetricsMiddleware(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte("promptd_http_requests_total")) {
		previewLen := len(body)
		if previewLen > 200 {
			previewLen = 200
		}
		t.Fatalf("expected promptd_http_requests_total in metrics; got: %q", string(body[:previewLen]))
	}
}

func TestGenerationMetricsRegistered(t *testing.T) {
	ObserveGeneration("local", "200", 0.5)
	AddTokens("local", 3)
	AddTokens("local", 0) // no-op

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte("promptd_generation_duration_seconds")) {
		t.Fatalf("generation duration metric missing")
	}
	if !bytes.Contains(body, []byte("promptd_generation_tokens_total")) {
		t.Fatalf("token counter metric missing")
	}
}

func TestRoutePatternOrPath(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/providers/{name}/x", func(w http.ResponseWriter, req *http.Request) {
		got = routePatternOrPath(req)
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers/local/x", nil))
	if got != "/providers/{name}/x" {
		t.Fatalf("expected route pattern, got %q", got)
	}
	// Outside a chi route the raw path is used.
	plain := httptest.NewRequest(http.MethodGet, "/raw", nil)
	if p := routePatternOrPath(plain); p != "/raw" {
		t.Fatalf("expected /raw, got %q", p)
	}
}

func TestItoa(t *testing.T) {
	for _, tc := range []struct {
		in   int
		want string
	}{{0, "0"}, {200, "200"}, {404, "404"}, {503, "503"}} {
		if got := itoa(tc.in); got != tc.want {
			t.Fatalf("itoa(%d)=%q want %q", tc.in, got, tc.want)
		}
	}
}

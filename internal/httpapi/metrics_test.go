package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	return mrr.Body.Bytes()
}

func preview(b []byte) string {
	if len(b) > 400 {
		b = b[:400]
	}
	return string(b)
}

// TestMetricsMiddleware_UsesRoutePattern ensures the metrics middleware labels
// by the chi route pattern instead of the raw URL path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sessions/abc-123", nil))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	body := scrape(t)
	if !bytes.Contains(body, []byte(`checkout_http_requests_total{method="GET",path="/sessions/{id}",status="202"}`)) {
		t.Fatalf("expected route pattern label; got: %q", preview(body))
	}
	if bytes.Contains(body, []byte("abc-123")) {
		t.Fatalf("raw path leaked into labels")
	}
}

func TestMetricsMiddleware_FallsBackToPath(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := scrape(t); !bytes.Contains(body, []byte(`path="/plain"`)) {
		t.Fatalf("expected /plain label; got: %q", preview(body))
	}
}

func TestIncrementBackpressure_DefaultReason(t *testing.T) {
	IncrementBackpressure("")
	if body := scrape(t); !bytes.Contains(body, []byte(`checkout_http_backpressure_total{reason="unspecified"}`)) {
		t.Fatalf("backpressure counter missing; got: %q", preview(body))
	}
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	sr := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := sr.Hijack(); err == nil {
		t.Fatalf("expected hijack error for a recorder")
	}
}

func TestMetricsHelpDescribesDaemon(t *testing.T) {
	IncrementBackpressure("sessions")
	MetricsMiddleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	body := scrape(t)
	for _, want := range []string{
		"# HELP checkout_http_requests_total Bridge daemon requests by route pattern",
		"# HELP checkout_http_backpressure_total Session opens refused with 429 because max_sessions was reached",
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Fatalf("missing %q; got: %q", want, preview(body))
		}
	}
}

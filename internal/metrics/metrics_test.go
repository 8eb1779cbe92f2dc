package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// scrape returns the exposition text served by m.Handler.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest("lookup", 200, 3*time.Millisecond)
	m.ObserveRequest("lookup", 200, time.Millisecond)
	m.ObserveRequest("lookup", 400, time.Millisecond)

	out := scrape(t, m)
	for _, want := range []string{
		`verbum_http_requests_total{endpoint="lookup",status="200"} 2`,
		`verbum_http_requests_total{endpoint="lookup",status="400"} 1`,
		`verbum_http_request_duration_seconds_count{endpoint="lookup"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := New()
	h := m.Middleware("next", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/next", nil))

	if out := scrape(t, m); !strings.Contains(out, `verbum_http_requests_total{endpoint="next",status="400"} 1`) {
		t.Errorf("status not recorded:\n%s", out)
	}
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.ResolutionsTotal.WithLabelValues("fuzzy").Inc()

	if out := scrape(t, b); strings.Contains(out, "verbum_book_resolutions_total") {
		t.Error("registries share state")
	}
	if out := scrape(t, a); !strings.Contains(out, `verbum_book_resolutions_total{match="fuzzy"} 1`) {
		t.Error("resolution not recorded")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.CorpusVerses.Set(31102)
	m.NavigationsTotal.WithLabelValues("next", "ok").Inc()

	out := scrape(t, m)
	for _, want := range []string{
		"verbum_corpus_verses 31102",
		`verbum_navigations_total{direction="next",result="ok"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

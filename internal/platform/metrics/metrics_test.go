package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slideshow-navigator/internal/media"
	"slideshow-navigator/internal/navigator"
)

var (
	_ media.Observer     = (*Metrics)(nil)
	_ navigator.Observer = (*Metrics)(nil)
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetrics_observers(t *testing.T) {
	m := New()
	m.FetchStarted("a")
	m.FetchFinished("a", nil)
	m.FetchStarted("b")
	m.FetchFinished("b", errors.New("boom"))
	m.Reconciled(3, true)
	m.Exhausted(3)
	m.StateChanged(navigator.StateEvent{State: navigator.StatePaused})
	m.ContentChanged(navigator.ContentEvent{Cause: navigator.CauseSwipe})
	m.ContentChanged(navigator.ContentEvent{Cause: navigator.CauseTimer})
	m.IncGesture(navigator.TapResumed.String())

	body := scrape(t, m.Handler(func() { m.SetCacheSize(7, 4) }))
	for _, want := range []string{
		`slideshow_fetches_total{result="started"} 2`,
		`slideshow_fetches_total{result="ready"} 1`,
		`slideshow_fetches_total{result="failed"} 1`,
		`slideshow_discovery_results_total{outcome="stale"} 1`,
		`slideshow_exhausted_total 1`,
		`slideshow_state_changes_total{state="paused"} 1`,
		`slideshow_advances_total{cause="swipe"} 1`,
		`slideshow_advances_total{cause="timer"} 1`,
		`slideshow_gestures_total{kind="resumed"} 1`,
		`slideshow_cached_records 7`,
		`slideshow_ready_records 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in scrape", want)
		}
	}
}

func TestRequestMiddleware(t *testing.T) {
	m := New()
	h := RequestMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("ok"))
	}))
	for _, p := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	body := scrape(t, m.Handler(nil))
	if !strings.Contains(body, "slideshow_requests_total 3") || !strings.Contains(body, "slideshow_errors_total 1") {
		t.Errorf("unexpected request counters:\n%s", body)
	}
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slideshow-navigator/internal/navigator"
)

// Metrics holds Prometheus counters and gauges for the slideshow server. It
// doubles as a media cache observer and a navigator observer.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	advancesTotal     *prometheus.CounterVec
	stateChangesTotal *prometheus.CounterVec
	gesturesTotal     *prometheus.CounterVec
	fetchesTotal      *prometheus.CounterVec
	exhaustedTotal    prometheus.Counter
	reconciledTotal   *prometheus.CounterVec
	cachedRecords     prometheus.Gauge
	readyRecords      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the slideshow.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slideshow_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slideshow_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	advancesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slideshow_advances_total",
		Help: "Changes of the current slide by cause",
	}, []string{"cause"})
	stateChangesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slideshow_state_changes_total",
		Help: "Navigator state entries by state",
	}, []string{"state"})
	gesturesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slideshow_gestures_total",
		Help: "Completed touch gestures by outcome",
	}, []string{"kind"})
	fetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slideshow_fetches_total",
		Help: "Background image fetches by result",
	}, []string{"result"})
	exhaustedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slideshow_exhausted_total",
		Help: "Cache scans that found no ready image",
	})
	reconciledTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slideshow_discovery_results_total",
		Help: "Discovery results applied or discarded as stale",
	}, []string{"outcome"})
	cachedRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slideshow_cached_records",
		Help: "Number of records in the media cache",
	})
	readyRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slideshow_ready_records",
		Help: "Number of cached records with a decoded image",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		advancesTotal,
		stateChangesTotal,
		gesturesTotal,
		fetchesTotal,
		exhaustedTotal,
		reconciledTotal,
		cachedRecords,
		readyRecords,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		advancesTotal:     advancesTotal,
		stateChangesTotal: stateChangesTotal,
		gesturesTotal:     gesturesTotal,
		fetchesTotal:      fetchesTotal,
		exhaustedTotal:    exhaustedTotal,
		reconciledTotal:   reconciledTotal,
		cachedRecords:     cachedRecords,
		readyRecords:      readyRecords,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncGesture counts a finished gesture. kind is a navigator.TapResult name.
func (m *Metrics) IncGesture(kind string) {
	m.gesturesTotal.WithLabelValues(kind).Inc()
}

// SetCacheSize sets the cached and ready record gauges.
func (m *Metrics) SetCacheSize(records, ready int) {
	m.cachedRecords.Set(float64(records))
	m.readyRecords.Set(float64(ready))
}

// FetchStarted implements media.Observer.
func (m *Metrics) FetchStarted(string) {
	m.fetchesTotal.WithLabelValues("started").Inc()
}

// FetchFinished implements media.Observer.
func (m *Metrics) FetchFinished(_ string, err error) {
	if err != nil {
		m.fetchesTotal.WithLabelValues("failed").Inc()
		return
	}
	m.fetchesTotal.WithLabelValues("ready").Inc()
}

// Reconciled implements media.Observer.
func (m *Metrics) Reconciled(_ int, stale bool) {
	if stale {
		m.reconciledTotal.WithLabelValues("stale").Inc()
		return
	}
	m.reconciledTotal.WithLabelValues("applied").Inc()
}

// Exhausted implements media.Observer.
func (m *Metrics) Exhausted(int) {
	m.exhaustedTotal.Inc()
}

// StateChanged implements navigator.Observer.
func (m *Metrics) StateChanged(e navigator.StateEvent) {
	m.stateChangesTotal.WithLabelValues(e.State.String()).Inc()
}

// ContentChanged implements navigator.Observer.
func (m *Metrics) ContentChanged(e navigator.ContentEvent) {
	m.advancesTotal.WithLabelValues(e.Cause.String()).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. cache size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

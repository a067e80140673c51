// Package metrics bundles the Prometheus collectors for the preview
// server on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's Prometheus collectors.
type Metrics struct {
	Registry        *prometheus.Registry
	RendersTotal    *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	CacheHitsTotal  prometheus.Counter
	BroadcastsTotal prometheus.Counter
	ExportsTotal    prometheus.Counter
	OpenSessions    prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	renders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decklab_renders_total",
			Help: "Total preview documents rendered, by variant.",
		},
		[]string{"variant"},
	)
	renderDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decklab_render_duration_seconds",
			Help:    "Wall time to parse, build, and render the deck.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decklab_render_cache_hits_total",
			Help: "Preview documents served from the render cache.",
		},
	)
	broadcasts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decklab_reload_broadcasts_total",
			Help: "Reload signals broadcast to preview sessions.",
		},
	)
	exports := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "decklab_exported_cards_total",
			Help: "Card images written by the export collector.",
		},
	)
	sessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "decklab_open_sessions",
			Help: "Currently open preview sessions.",
		},
	)

	registry.MustRegister(renders, renderDuration, cacheHits, broadcasts, exports, sessions)

	return &Metrics{
		Registry:        registry,
		RendersTotal:    renders,
		RenderDuration:  renderDuration,
		CacheHitsTotal:  cacheHits,
		BroadcastsTotal: broadcasts,
		ExportsTotal:    exports,
		OpenSessions:    sessions,
	}
}

// ObserveRender records one full render pass.
func (m *Metrics) ObserveRender(variant string, d time.Duration) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(variant).Inc()
	m.RenderDuration.Observe(d.Seconds())
}

// IncCacheHit records a render-cache hit.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncBroadcast records one reload broadcast.
func (m *Metrics) IncBroadcast() {
	if m == nil {
		return
	}
	m.BroadcastsTotal.Inc()
}

// AddExports records written card images.
func (m *Metrics) AddExports(n int) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(float64(n))
}

// SetOpenSessions tracks the open-session gauge.
func (m *Metrics) SetOpenSessions(n int) {
	if m == nil {
		return
	}
	m.OpenSessions.Set(float64(n))
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

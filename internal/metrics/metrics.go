// Package metrics exposes Prometheus counters, histograms, and book-depth
// gauges for fenrird. github.com/prometheus/client_golang appears in the
// pack via DimaJoyti-ai-agentic-crypto-browser/pkg/observability, wrapped
// there behind an OpenTelemetry exporter; this repo has no OTel pipeline to
// feed, so it registers client_golang's collectors directly and serves them
// with promhttp, which is the same library doing the same job with one
// fewer layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ferrum/internal/engine"
	"ferrum/internal/host"
)

// Metrics bundles every collector fenrird reports. It implements
// host.Reporter so it plugs into the same publish path as the wire server
// and the websocket feed.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	fillSize      *prometheus.HistogramVec
	bidDepth      *prometheus.GaugeVec
	askDepth      *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fenrir",
			Name:      "requests_total",
			Help:      "Requests processed by the matching core, by asset.",
		}, []string{"asset"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fenrir",
			Name:      "events_total",
			Help:      "Events emitted by the matching core, by asset and kind.",
		}, []string{"asset", "kind"}),
		fillSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fenrir",
			Name:      "fill_size",
			Help:      "Size of each fill event, by asset.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"asset"}),
		bidDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fenrir",
			Name:      "bid_depth",
			Help:      "Aggregate resting size across all bid levels, by asset.",
		}, []string{"asset"}),
		askDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fenrir",
			Name:      "ask_depth",
			Help:      "Aggregate resting size across all ask levels, by asset.",
		}, []string{"asset"}),
	}

	reg.MustRegister(m.requestsTotal, m.eventsTotal, m.fillSize, m.bidDepth, m.askDepth)
	return m
}

// Handler serves the registered collectors for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ReportEvents implements host.Reporter.
func (m *Metrics) ReportEvents(asset string, events []engine.Event) {
	m.requestsTotal.WithLabelValues(asset).Inc()
	for _, ev := range events {
		m.eventsTotal.WithLabelValues(asset, ev.Kind().String()).Inc()
		if filled, ok := ev.(engine.FilledEvent); ok {
			size, _ := filled.Size.Float64()
			m.fillSize.WithLabelValues(asset).Observe(size)
		}
	}
}

// ObserveDepth updates the book-depth gauges from a fresh snapshot. Callers
// (e.g. a periodic ticker in cmd/fenrird) should call this on a schedule
// rather than on every request, since it's a read against the live book.
func (m *Metrics) ObserveDepth(asset string, snap engine.BookSnapshot) {
	var bid, ask float64
	for _, lvl := range snap.Bids {
		f, _ := lvl.Size.Float64()
		bid += f
	}
	for _, lvl := range snap.Asks {
		f, _ := lvl.Size.Float64()
		ask += f
	}
	m.bidDepth.WithLabelValues(asset).Set(bid)
	m.askDepth.WithLabelValues(asset).Set(ask)
}

var _ host.Reporter = (*Metrics)(nil)

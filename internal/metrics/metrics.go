// Package metrics exposes Prometheus collectors for the bond pipeline.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrument fetch outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	listingPagesTotal      *prometheus.CounterVec
	listingURLsTotal       *prometheus.CounterVec
	instrumentsTotal       *prometheus.CounterVec
	coercionFailuresTotal  *prometheus.CounterVec
	snapshotsTotal         *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	envelopePoints         *prometheus.GaugeVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times; every Observe helper calls it.
func Init() {
	once.Do(func() {
		listingPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonds_listing_pages_total",
				Help: "Total number of listing pages fetched, labeled by section.",
			},
			[]string{"section"},
		)

		listingURLsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonds_listing_urls_total",
				Help: "Total number of instrument URLs discovered, labeled by section.",
			},
			[]string{"section"},
		)

		instrumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonds_instruments_total",
				Help: "Total number of instrument detail pages processed, labeled by status.",
			},
			[]string{"status"},
		)

		coercionFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonds_coercion_failures_total",
				Help: "Total number of cells that failed numeric or date coercion, labeled by column.",
			},
			[]string{"column"},
		)

		snapshotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bonds_snapshots_total",
				Help: "Total number of snapshot files written, labeled by kind.",
			},
			[]string{"kind"},
		)

		requestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bonds_request_duration_seconds",
				Help:    "Histogram of outbound request latencies, labeled by page kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"kind"},
		)

		envelopePoints = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bonds_envelope_points",
				Help: "Number of envelope points in the last analysis, labeled by country.",
			},
			[]string{"country"},
		)
	})
}

// ObserveListingPage records one fetched listing page and the URLs it yielded.
func ObserveListingPage(section string, urls int) {
	Init()
	listingPagesTotal.WithLabelValues(section).Inc()
	if urls > 0 {
		listingURLsTotal.WithLabelValues(section).Add(float64(urls))
	}
}

// ObserveInstrument records the outcome of one detail-page fetch.
func ObserveInstrument(status string) {
	Init()
	instrumentsTotal.WithLabelValues(status).Inc()
}

// ObserveCoercionFailure records a cell that could not be coerced.
func ObserveCoercionFailure(column string) {
	Init()
	coercionFailuresTotal.WithLabelValues(column).Inc()
}

// ObserveSnapshot records a written snapshot.
func ObserveSnapshot(kind string) {
	Init()
	snapshotsTotal.WithLabelValues(kind).Inc()
}

// ObserveRequest records the latency of one outbound request.
func ObserveRequest(kind string, d time.Duration) {
	Init()
	requestDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// SetEnvelopePoints publishes the envelope size per country.
func SetEnvelopePoints(counts map[string]int) {
	Init()
	envelopePoints.Reset()
	for country, n := range counts {
		envelopePoints.WithLabelValues(country).Set(float64(n))
	}
}

// WriteTextfile dumps the default registry in the node-exporter textfile format.
// Batch runs have no scrape endpoint, so this is how their counters leave the process.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

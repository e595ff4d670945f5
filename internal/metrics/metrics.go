// Package metrics exposes Prometheus instrumentation for the validated-key
// store and the JWS loading pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors registered by pixverify.
type Metrics struct {
	KeyStoreHitsTotal    *prometheus.CounterVec
	KeyStoreMissesTotal  *prometheus.CounterVec
	JWKSFetchesTotal     *prometheus.CounterVec
	LoadPixOutcomesTotal *prometheus.CounterVec
	LoadPixDuration      *prometheus.HistogramVec
	BRCodeDecodesTotal   *prometheus.CounterVec
}

// New creates and registers all metrics against registry. A nil registry
// registers against prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		KeyStoreHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixverify_keystore_hits_total",
				Help: "Validated-key store lookups that found a cached key.",
			},
			[]string{"jku"},
		),
		KeyStoreMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixverify_keystore_misses_total",
				Help: "Validated-key store lookups that required a JWKS fetch.",
			},
			[]string{"jku"},
		),
		JWKSFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixverify_jwks_fetches_total",
				Help: "JWKS document fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		LoadPixOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixverify_load_pix_outcomes_total",
				Help: "LoadPix calls, labeled by outcome (success, error reason).",
			},
			[]string{"outcome"},
		),
		LoadPixDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pixverify_load_pix_duration_seconds",
				Help:    "LoadPix end-to-end latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		BRCodeDecodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pixverify_brcode_decodes_total",
				Help: "BR Code decode attempts, labeled by outcome and code type.",
			},
			[]string{"outcome", "code_type"},
		),
	}
}

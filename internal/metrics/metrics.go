// Package metrics provides Prometheus metrics for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the dialog pipeline.
type Metrics struct {
	SearchesTotal        *prometheus.CounterVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
	FetchFailuresTotal   *prometheus.CounterVec
	PromptRecoveriesTotal prometheus.Counter
	UpdatesInFlight      prometheus.Gauge
}

// New creates the collectors and registers them on the given registerer.
// Pass prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdbot_searches_total",
				Help: "Completed searches by query type",
			},
			[]string{"query_type"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdbot_result_cache_hits_total",
				Help: "Pagination and summary requests served from the result cache",
			},
			[]string{"query_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdbot_result_cache_misses_total",
				Help: "Pagination requests whose cached set was gone",
			},
			[]string{"query_type"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "birdbot_rate_limited_total",
				Help: "Updates rejected by the per-chat rate limiter",
			},
		),
		FetchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdbot_fetch_failures_total",
				Help: "Upstream fetch failures by query type",
			},
			[]string{"query_type"},
		),
		PromptRecoveriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "birdbot_prompt_recoveries_total",
				Help: "Prompts re-issued after a downstream failure",
			},
		),
		UpdatesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "birdbot_updates_in_flight",
				Help: "Transport updates currently being handled",
			},
		),
	}

	reg.MustRegister(
		m.SearchesTotal, m.CacheHitsTotal, m.CacheMissesTotal,
		m.RateLimitedTotal, m.FetchFailuresTotal, m.PromptRecoveriesTotal,
		m.UpdatesInFlight,
	)
	return m
}

// Package metrics collects and exposes Prometheus counters for the auth core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records auth outcomes. The per-cause breakdown exists for
// operators only; externally every authentication failure looks identical.
type Collector struct {
	authOutcomes    *prometheus.CounterVec
	rateLimitBlocks *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listkeeper_auth_outcomes_total",
			Help: "Authentication outcomes by internal reason tag",
		}, []string{"outcome"}),
		rateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listkeeper_rate_limit_blocks_total",
			Help: "Requests denied by the rate limiter, by action",
		}, []string{"action"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listkeeper_store_errors_total",
			Help: "Backing store failures, by store",
		}, []string{"store"}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(c.authOutcomes, c.rateLimitBlocks, c.storeErrors)
	return c
}

// RecordAuthOutcome records an authentication outcome. Outcome tags are the
// internal reasons ("ok", "no_token", "invalid_token", "revoked",
// "bad_credentials").
func (c *Collector) RecordAuthOutcome(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRateLimitBlock records a denied request for an action.
func (c *Collector) RecordRateLimitBlock(action string) {
	c.rateLimitBlocks.WithLabelValues(action).Inc()
}

// RecordStoreError records a backing store failure ("kv" or "sql").
func (c *Collector) RecordStoreError(store string) {
	c.storeErrors.WithLabelValues(store).Inc()
}

// Handler returns the HTTP handler exposing the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes the stage's runtime behavior as Prometheus
// metrics: per-channel throughput, and the token-bucket deficit samples a
// DynamicRateLimiter already collects internally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the stage registers.
type Metrics struct {
	ChannelOperations *prometheus.CounterVec
	ChannelBytes      *prometheus.CounterVec

	RateLimiterTokensLeft      *prometheus.GaugeVec
	RateLimiterEmptyBucketFrac *prometheus.GaugeVec

	ControlPlaneOperations *prometheus.CounterVec
	ControlPlaneErrors     *prometheus.CounterVec
}

// New constructs and registers the stage's metrics.
func New() *Metrics {
	return &Metrics{
		ChannelOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paio_channel_operations_total",
				Help: "Total number of requests enforced per channel",
			},
			[]string{"channel_id"},
		),
		ChannelBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paio_channel_bytes_total",
				Help: "Total number of bytes enforced per channel",
			},
			[]string{"channel_id"},
		),
		RateLimiterTokensLeft: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paio_rate_limiter_tokens_left",
				Help: "Tokens remaining in a rate limiter's bucket at last sample",
			},
			[]string{"channel_id", "object_id"},
		),
		RateLimiterEmptyBucketFrac: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "paio_rate_limiter_empty_bucket_fraction",
				Help: "Normalized fraction of samples that found an empty bucket",
			},
			[]string{"channel_id", "object_id"},
		),
		ControlPlaneOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paio_control_plane_operations_total",
				Help: "Total control-plane operations dispatched, by type",
			},
			[]string{"operation"},
		),
		ControlPlaneErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paio_control_plane_errors_total",
				Help: "Total control-plane operations that resulted in an error status",
			},
			[]string{"operation"},
		),
	}
}

// RecordChannelEnforce records one enforced request's size against
// channelID's counters.
func (m *Metrics) RecordChannelEnforce(channelID string, bytes int) {
	m.ChannelOperations.WithLabelValues(channelID).Inc()
	m.ChannelBytes.WithLabelValues(channelID).Add(float64(bytes))
}

// RecordRateLimiterSample records a token-bucket statistics sample for the
// object at (channelID, objectID).
func (m *Metrics) RecordRateLimiterSample(channelID, objectID string, tokensLeft float64, emptyBucketFraction float32) {
	m.RateLimiterTokensLeft.WithLabelValues(channelID, objectID).Set(tokensLeft)
	m.RateLimiterEmptyBucketFrac.WithLabelValues(channelID, objectID).Set(float64(emptyBucketFraction))
}

// RecordControlPlaneOperation records that a control-plane operation ran,
// and whether it resulted in an error.
func (m *Metrics) RecordControlPlaneOperation(operation string, failed bool) {
	m.ControlPlaneOperations.WithLabelValues(operation).Inc()
	if failed {
		m.ControlPlaneErrors.WithLabelValues(operation).Inc()
	}
}

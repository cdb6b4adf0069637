// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	BiliRequests        prometheus.Counter
	BiliRequestFailures prometheus.Counter
	AggregationRuns     prometheus.Counter
	AggregationFailures prometheus.Counter
	CreatorsFailed      prometheus.Counter
	DigestsSent         prometheus.Counter
	DigestsFailed       prometheus.Counter

	// Histograms (seconds)
	AggregationDuration prometheus.Observer

	// Gauges
	CreatorsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		BiliRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_upstream_requests_total", Help: "Number of Bilibili API requests issued"})
		BiliRequestFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_upstream_request_failures_total", Help: "Number of Bilibili API requests that failed (transport or application)"})
		AggregationRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_aggregation_runs_total", Help: "Number of following-updates aggregation runs"})
		AggregationFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_aggregation_failures_total", Help: "Number of aggregation runs that failed before producing a feed"})
		CreatorsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_creators_failed_total", Help: "Number of per-creator fetches recorded as api_failed"})
		DigestsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_digests_sent_total", Help: "Number of digest webhooks delivered"})
		DigestsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bili_digests_failed_total", Help: "Number of digest webhook deliveries that failed"})
		AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bili_aggregation_duration_seconds", Help: "Aggregation run duration seconds", Buckets: prometheus.DefBuckets})
		CreatorsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bili_aggregation_creators", Help: "Creators processed by the last aggregation run"})
	})
}

// IncCounter increments c if metrics are initialized.
func IncCounter(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetCreatorCount records the creator count of the last aggregation run.
func SetCreatorCount(n int) {
	if CreatorsGauge != nil {
		CreatorsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

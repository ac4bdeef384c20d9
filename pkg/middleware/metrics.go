package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/pkg/features/optimistic"
)

// Outcome label values for optimistic_confirmations_total.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
)

// MetricsConfig configures the Prometheus interceptor.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "").
	Namespace string

	// Subsystem is the metrics subsystem (default: "optimistic").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for confirmation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus interceptor.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Subsystem: "optimistic",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the collectors for one interceptor.
type metrics struct {
	pending       prometheus.Gauge
	confirmations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
}

func newMetrics(config MetricsConfig) *metrics {
	return &metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pending_actions",
			Help:        "Number of optimistic actions awaiting confirmation",
			ConstLabels: config.ConstLabels,
		}),

		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "confirmations_total",
			Help:        "Total number of settled confirmations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"label", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "confirmation_duration_seconds",
			Help:        "Confirmation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"label"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "confirmation_errors_total",
			Help:        "Total number of failed confirmations by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"label", "error_type"}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.pending, m.confirmations, m.duration, m.errors} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Prometheus creates an interceptor that collects confirmation metrics.
//
// Metrics collected (with the default subsystem):
//   - optimistic_pending_actions: Gauge of confirmations in flight
//   - optimistic_confirmations_total: Counter by label and outcome
//   - optimistic_confirmation_duration_seconds: Histogram by label
//   - optimistic_confirmation_errors_total: Counter by label and error type
//
// Registering into a registry that already holds the collectors is an error
// only when their descriptors conflict.
func Prometheus(opts ...MetricsOption) (optimistic.Interceptor, error) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := newMetrics(config)
	if err := m.register(config.Registry); err != nil {
		return nil, err
	}

	return func(ctx context.Context, info optimistic.ActionInfo, next func(context.Context) error) error {
		m.pending.Inc()
		defer m.pending.Dec()

		start := time.Now()
		err := next(ctx)
		m.duration.WithLabelValues(info.Label).Observe(time.Since(start).Seconds())

		outcome := OutcomeConfirmed
		if err != nil {
			outcome = OutcomeRolledBack
			m.errors.WithLabelValues(info.Label, categorizeError(err)).Inc()
		}
		m.confirmations.WithLabelValues(info.Label, outcome).Inc()

		return err
	}, nil
}

// categorizeError returns a category for the error type.
// This prevents high-cardinality labels from error messages.
func categorizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var pe *optimistic.PanicError
	if errors.As(err, &pe) {
		return "panic"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "rate limit"):
		return "rate_limit"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "unauthorized"):
		return "unauthorized"
	case strings.Contains(errStr, "forbidden"):
		return "forbidden"
	case strings.Contains(errStr, "conflict"):
		return "conflict"
	case strings.Contains(errStr, "validation"):
		return "validation"
	default:
		return "internal"
	}
}

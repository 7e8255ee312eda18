package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}

// metrics holds the store's Prometheus collectors.
type metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	heartbeats *prometheus.CounterVec
}

// newMetrics creates the collectors and registers them with reg if non-nil.
// Collectors already registered by an earlier store are reused.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempo",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Count of store operations by outcome",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tempo",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution of store operations",
			Buckets:   histogramBuckets,
		}, []string{"op"}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempo",
			Subsystem: "store",
			Name:      "heartbeats_total",
			Help:      "Heartbeats by result (merged into the newest event or inserted)",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}

	if err := reg.Register(m.operations); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.operations = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.latency); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.latency = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	if err := reg.Register(m.heartbeats); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.heartbeats = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return m, nil
}

func (m *metrics) observe(op string, elapsed time.Duration, err error) {
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *metrics) heartbeat(merged bool) {
	result := "inserted"
	if merged {
		result = "merged"
	}
	m.heartbeats.WithLabelValues(result).Inc()
}

// outcome maps an operation error to a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNoSuchBucket(err):
		return "no_such_bucket"
	case IsBucketAlreadyExists(err):
		return "bucket_exists"
	case IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}

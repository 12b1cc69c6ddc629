package session

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livesearch/metric"
)

// Label values for session outcomes and rejection reasons.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCanceled  = "canceled"

	reasonDuplicate = "duplicate"
	reasonBusy      = "busy"
)

// Metrics tracks search session activity. A single Metrics value is
// shared by every connection's Manager.
type Metrics struct {
	active    prometheus.Gauge
	started   prometheus.Counter
	finished  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	batches   prometheus.Counter
	batchSize prometheus.Histogram
	duration  prometheus.Histogram
}

// NewMetrics creates session metrics and registers them with the given
// metrics registry.
func NewMetrics(reg *metric.MetricsRegistry) (*Metrics, error) {
	m := &Metrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "active",
			Help:      "Search sessions currently streaming",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Search sessions started",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Search sessions finished by outcome",
		}, []string{"outcome"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "rejected_total",
			Help:      "Search requests rejected before a session started",
		}, []string{"reason"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "batches_total",
			Help:      "Result batches emitted",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "batch_size",
			Help:      "Results per emitted batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livesearch",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Search session duration from start to finish",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if err := reg.RegisterGauge("session", "active", m.active); err != nil {
		return nil, err
	}

	counters := map[string]prometheus.Counter{
		"started_total": m.started,
		"batches_total": m.batches,
	}
	for name, counter := range counters {
		if err := reg.RegisterCounter("session", name, counter); err != nil {
			return nil, err
		}
	}

	counterVecs := map[string]*prometheus.CounterVec{
		"finished_total": m.finished,
		"rejected_total": m.rejected,
	}
	for name, vec := range counterVecs {
		if err := reg.RegisterCounterVec("session", name, vec); err != nil {
			return nil, err
		}
	}

	histograms := map[string]prometheus.Histogram{
		"batch_size":       m.batchSize,
		"duration_seconds": m.duration,
	}
	for name, histogram := range histograms {
		if err := reg.RegisterHistogram("session", name, histogram); err != nil {
			return nil, err
		}
	}

	return m, nil
}

package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livesearch/metric"
)

// notifyMetrics tracks the event intake path. Buffer depth and drops are
// reported by the buffer's own metrics under the notify prefix.
type notifyMetrics struct {
	received  prometheus.Counter
	invalid   prometheus.Counter
	broadcast prometheus.Counter
}

func newNotifyMetrics(reg *metric.MetricsRegistry) (*notifyMetrics, error) {
	m := &notifyMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "notify",
			Name:      "events_received_total",
			Help:      "Document change events accepted from sources",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "notify",
			Name:      "events_invalid_total",
			Help:      "Document change events rejected as invalid",
		}),
		broadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "notify",
			Name:      "events_broadcast_total",
			Help:      "Document change events handed to the registry for fan-out",
		}),
	}

	counters := map[string]prometheus.Counter{
		"events_received_total":  m.received,
		"events_invalid_total":   m.invalid,
		"events_broadcast_total": m.broadcast,
	}
	for name, counter := range counters {
		if err := reg.RegisterCounter("notify", name, counter); err != nil {
			return nil, err
		}
	}

	return m, nil
}

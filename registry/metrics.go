package registry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livesearch/metric"
)

// registryMetrics tracks registry population and broadcast outcomes.
type registryMetrics struct {
	connections   prometheus.Gauge
	subscriptions prometheus.Gauge
	broadcasts    prometheus.Counter
	deliveries    prometheus.Counter
	drops         prometheus.Counter
}

func newRegistryMetrics(reg *metric.MetricsRegistry) (*registryMetrics, error) {
	m := &registryMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livesearch",
			Subsystem: "registry",
			Name:      "connections",
			Help:      "Number of registered connections",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livesearch",
			Subsystem: "registry",
			Name:      "subscriptions",
			Help:      "Number of live subscriptions across all connections",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "registry",
			Name:      "broadcasts_total",
			Help:      "Document update events processed by the registry",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "registry",
			Name:      "deliveries_total",
			Help:      "Document update messages handed to outbound queues",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "registry",
			Name:      "dropped_updates_total",
			Help:      "Document update messages dropped because the outbound queue was full",
		}),
	}

	gauges := map[string]prometheus.Gauge{
		"connections":   m.connections,
		"subscriptions": m.subscriptions,
	}
	for name, gauge := range gauges {
		if err := reg.RegisterGauge("registry", name, gauge); err != nil {
			return nil, err
		}
	}

	counters := map[string]prometheus.Counter{
		"broadcasts_total":      m.broadcasts,
		"deliveries_total":      m.deliveries,
		"dropped_updates_total": m.drops,
	}
	for name, counter := range counters {
		if err := reg.RegisterCounter("registry", name, counter); err != nil {
			return nil, err
		}
	}

	return m, nil
}

package websocket

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livesearch/metric"
)

// gatewayMetrics tracks connection traffic at the websocket boundary.
type gatewayMetrics struct {
	connections    prometheus.Counter
	received       *prometheus.CounterVec
	sent           *prometheus.CounterVec
	drops          prometheus.Counter
	protocolErrors prometheus.Counter
}

func newGatewayMetrics(reg *metric.MetricsRegistry) (*gatewayMetrics, error) {
	m := &gatewayMetrics{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "gateway",
			Name:      "connections_total",
			Help:      "Websocket connections accepted",
		}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "gateway",
			Name:      "messages_received_total",
			Help:      "Client messages dispatched by type",
		}, []string{"type"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "gateway",
			Name:      "messages_sent_total",
			Help:      "Server messages written by type",
		}, []string{"type"}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "gateway",
			Name:      "dropped_messages_total",
			Help:      "Outbound messages dropped because a connection queue was full",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livesearch",
			Subsystem: "gateway",
			Name:      "protocol_errors_total",
			Help:      "Inbound frames rejected as malformed or out of protocol",
		}),
	}

	counters := map[string]prometheus.Counter{
		"connections_total":      m.connections,
		"dropped_messages_total": m.drops,
		"protocol_errors_total":  m.protocolErrors,
	}
	for name, counter := range counters {
		if err := reg.RegisterCounter("gateway", name, counter); err != nil {
			return nil, err
		}
	}

	counterVecs := map[string]*prometheus.CounterVec{
		"messages_received_total": m.received,
		"messages_sent_total":     m.sent,
	}
	for name, vec := range counterVecs {
		if err := reg.RegisterCounterVec("gateway", name, vec); err != nil {
			return nil, err
		}
	}

	return m, nil
}

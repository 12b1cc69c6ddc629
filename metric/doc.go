// Package metric provides Prometheus-based metrics collection and an HTTP
// server for livesearch monitoring and observability.
//
// The package offers a centralized metrics registry managing both core
// platform metrics (service status, message traffic, NATS health) and custom
// service-specific metrics. It includes an HTTP server exposing metrics in
// Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Service Registry: Extensible registration for service-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("gateway", 2)
//	coreMetrics.RecordMessageReceived("gateway", "streaming_search")
//	coreMetrics.RecordNATSStatus(true)
//
// The server exposes Prometheus-formatted metrics at /metrics (OpenMetrics
// enabled) and a plain-text health check at /health.
//
// # Service-Specific Metrics
//
// Components register their own metrics through the registry. Keys are
// "service.metric" pairs so two components cannot silently collide:
//
//	activeConnections := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Namespace: "livesearch",
//	    Subsystem: "gateway",
//	    Name:      "active_connections",
//	    Help:      "Number of active client connections",
//	})
//	err := registry.RegisterGauge("gateway", "active_connections", activeConnections)
//
// Duplicate registrations return an invalid-class error; lower-level
// Prometheus failures are fatal.
//
// # Thread Safety
//
// All registry operations are thread-safe. Registration methods use mutex
// protection, metric recording is lock-free per the Prometheus client
// guarantees, and CoreMetrics() returns a shared instance safe for
// concurrent use.
//
// All core metrics use the namespace "livesearch":
//   - livesearch_service_status{service="..."}
//   - livesearch_messages_received_total{service="...",type="..."}
//   - livesearch_nats_connected
package metric

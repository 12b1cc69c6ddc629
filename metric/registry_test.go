package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func gatheredNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, mf := range metricFamilies {
		found[mf.GetName()] = true
	}
	return found
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-service", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	found := gatheredNames(t, registry)
	assert.True(t, found["test_counter"], "Counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("test-service", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	found := gatheredNames(t, registry)
	assert.True(t, found["test_gauge"], "Gauge should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("test-service", "test_histogram", histogram)
	require.NoError(t, err)

	histogram.Observe(1.5)

	found := gatheredNames(t, registry)
	assert.True(t, found["test_histogram"], "Histogram should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterVecs(t *testing.T) {
	registry := NewMetricsRegistry()

	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_counter_vec", Help: "A test counter vec"},
		[]string{"label"},
	)
	require.NoError(t, registry.RegisterCounterVec("test-service", "test_counter_vec", counterVec))
	counterVec.WithLabelValues("a").Inc()

	gaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "A test gauge vec"},
		[]string{"label"},
	)
	require.NoError(t, registry.RegisterGaugeVec("test-service", "test_gauge_vec", gaugeVec))
	gaugeVec.WithLabelValues("a").Set(1)

	histogramVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "A test histogram vec"},
		[]string{"label"},
	)
	require.NoError(t, registry.RegisterHistogramVec("test-service", "test_histogram_vec", histogramVec))
	histogramVec.WithLabelValues("a").Observe(0.5)

	found := gatheredNames(t, registry)
	assert.True(t, found["test_counter_vec"])
	assert.True(t, found["test_gauge_vec"])
	assert.True(t, found["test_histogram_vec"])
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	// First registration should succeed
	err := registry.RegisterCounter("service1", "duplicate_counter", counter1)
	require.NoError(t, err)

	// Same key should fail at our tracking level
	err = registry.RegisterCounter("service1", "duplicate_counter", counter1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// Different key but same Prometheus metric name should fail at the Prometheus level
	err = registry.RegisterCounter("service2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("test-service", "unregister_counter", counter)
	require.NoError(t, err)

	found := gatheredNames(t, registry)
	assert.True(t, found["unregister_counter"])

	success := registry.Unregister("test-service", "unregister_counter")
	assert.True(t, success)

	found = gatheredNames(t, registry)
	assert.False(t, found["unregister_counter"])

	// Unregistering an unknown metric reports failure
	assert.False(t, registry.Unregister("test-service", "never_registered"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-service",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	counterCount := 0
	for name := range gatheredNames(t, registry) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"All concurrent counters should be registered")
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	registry := NewMetricsRegistry()

	// Verify registry implements MetricsRegistrar interface
	var registrar MetricsRegistrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("interface-service", "interface_counter", counter)
	require.NoError(t, err)
}

func TestMetricsRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewMetricsRegistry()

	// Vector metrics don't appear in Gather() until they have at least one value set
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordServiceStatus("gateway", 2)
	coreMetrics.RecordMessageReceived("gateway", "streaming_search")
	coreMetrics.RecordMessageSent("gateway", "search_batch")
	coreMetrics.RecordProcessingDuration("session", "streaming_search", 100*time.Millisecond)
	coreMetrics.RecordError("gateway", "protocol")
	coreMetrics.RecordHealthStatus("gateway", true)

	found := gatheredNames(t, registry)

	expectedCoreMetrics := []string{
		"livesearch_service_status",
		"livesearch_messages_received_total",
		"livesearch_messages_sent_total",
		"livesearch_processing_duration_seconds",
		"livesearch_errors_total",
		"livesearch_health_status",
		"livesearch_nats_connected",
		"livesearch_nats_rtt_milliseconds",
		"livesearch_nats_reconnects_total",
		"livesearch_nats_circuit_breaker",
	}

	for _, expectedMetric := range expectedCoreMetrics {
		assert.True(t, found[expectedMetric],
			"core metric %s should be initialized", expectedMetric)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordServiceStatus("gateway", 2)
	coreMetrics.RecordMessageReceived("gateway", "subscribe")
	coreMetrics.RecordMessageSent("gateway", "subscribed")
	coreMetrics.RecordProcessingDuration("session", "streaming_search", 100*time.Millisecond)
	coreMetrics.RecordError("registry", "duplicate_subscription")
	coreMetrics.RecordHealthStatus("gateway", true)

	coreMetrics.RecordNATSStatus(true)
	coreMetrics.RecordNATSRTT(50 * time.Millisecond)
	coreMetrics.RecordNATSReconnect()
	coreMetrics.RecordCircuitBreakerState(0)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	assert.Greater(t, len(metricFamilies), 0, "Should have recorded metrics")
}

func TestNewServerDefaults(t *testing.T) {
	registry := NewMetricsRegistry()

	server := NewServer(0, "", registry)
	assert.Equal(t, "http://localhost:9090/metrics", server.Address())

	custom := NewServer(8080, "/prometheus", registry)
	assert.Equal(t, "http://localhost:8080/prometheus", custom.Address())

	// Stop on a server that never started is a no-op
	assert.NoError(t, custom.Stop())
}

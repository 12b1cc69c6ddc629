// Package buffer provides thread-safe circular buffers with configurable overflow
// policies, built-in statistics tracking, and optional Prometheus metrics integration.
//
// # Overview
//
// The buffer package implements generic circular buffers for decoupling producers
// from consumers in concurrent pipelines. In livesearch it sits between the update
// sources and the notification fan-out: bursts of document change events land in a
// buffer and are drained in batches at the consumer's pace.
//
// # Quick Start
//
// Basic buffer creation:
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Write data
//	err = buf.Write(42)
//
//	// Read data
//	value, ok := buf.Read()
//
// With overflow policy and metrics:
//
//	buf, err := buffer.NewCircularBuffer[*Event](5000,
//		buffer.WithOverflowPolicy[*Event](buffer.DropOldest),
//		buffer.WithMetrics[*Event](registry, "notify"),
//	)
//
// # Overflow Policies
//
// The buffer supports three overflow behaviors when capacity is reached:
//
//   - DropOldest: Remove oldest item to make room (default)
//   - DropNewest: Reject new items when full
//   - Block: Write operations wait for available space
//
// DropOldest keeps the freshest updates flowing when a consumer stalls, which is
// what live notification delivery wants. Use WithDropCallback to observe what was
// discarded.
//
// # Observability
//
// Statistics are always on and tracked with atomic counters; access them via
// buf.Stats() for programmatic checks and tests. Prometheus metrics are optional
// and enabled with WithMetrics(registry, prefix); the prefix becomes the component
// label so multiple buffers can share one registry. The two are tracked
// independently so statistics keep working when metrics are disabled.
//
// # Thread Safety
//
// All buffer operations are safe for concurrent use. Internal state is protected
// by a mutex, the Block policy waits on a sync.Cond, and drop callbacks are
// invoked outside the lock so they cannot deadlock the buffer.
package buffer

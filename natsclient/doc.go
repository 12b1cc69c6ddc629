// Package natsclient provides the managed NATS connection behind the
// livesearch document update feed.
//
// # Overview
//
// The notify layer subscribes to document change subjects and turns incoming
// payloads into update events for connected clients. This package owns the
// connection those subscriptions ride on: connect with timeout, core
// subscribe and publish, reconnect handling, health monitoring, and a
// circuit breaker that keeps a flapping broker from being hammered with
// connection attempts.
//
// # Circuit Breaker
//
// Every failed connection attempt is recorded. After five failures in a row
// (configurable via WithCircuitBreakerThreshold) the circuit opens: Connect
// returns errors.ErrCircuitOpen immediately instead of dialing, and the
// backoff doubles up to a maximum of one minute. When the backoff elapses
// the circuit moves back to disconnected and the next attempt is allowed
// through. A successful connection resets the breaker entirely.
//
// # Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("livesearch"),
//	    natsclient.WithMaxReconnects(-1),
//	    natsclient.WithReconnectCallback(func() {
//	        slog.Info("nats reconnected")
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Subscribe(ctx, "search.events.>", func(ctx context.Context, data []byte) {
//	    // decode and route the event
//	})
//
// # Health and Metrics
//
// A background goroutine probes the connection every ten seconds
// (WithHealthInterval) and reports changes through the health change
// callback. The callbacks are the integration point for the metric package:
// the server wires them to the NATS connection gauges so dashboards see
// disconnects and reconnects without this package importing the metrics
// registry.
//
// # Errors
//
// Operations on a disconnected client fail with errors.ErrNoConnection, and
// attempts while the breaker is open fail with errors.ErrCircuitOpen. Both
// classify as transient, so retry helpers treat them as retryable.
package natsclient

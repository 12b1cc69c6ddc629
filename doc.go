// Package livesearch provides a websocket gateway for streaming search
// with live update notifications, combining incremental result delivery
// with filtered publish/subscribe fan-out.
//
// # Philosophy: Stream First, Never Block
//
// LiveSearch is built around two rules:
//
// Rule 1 - Results stream as they are found:
//   - Searches deliver batches the moment enough results are buffered
//   - Partial batches flush on a timeout so slow engines still show progress
//   - Every session ends with exactly one terminal message
//
// Rule 2 - A slow client never stalls the server:
//   - Every outbound queue is bounded and written without blocking
//   - Updates that do not fit are dropped and counted, not awaited
//   - Broadcast latency is independent of the slowest consumer
//
// LiveSearch MUST NOT contain:
//   - Result persistence or delivery replay (drops are terminal)
//   - Cross-instance subscription state (each instance is self-contained)
//   - Client authentication or authorization (runs behind an edge proxy)
//
// # Architecture
//
// A connection multiplexes independent search sessions and update
// subscriptions over one websocket:
//
//	┌─────────────────────────────────────┐
//	│         WebSocket Gateway           │  upgrade, decode, dispatch
//	│        (gateway/websocket)          │  heartbeat, rate limit
//	└─────────────────────────────────────┘
//	     ↓ requests           ↑ one outbound queue
//	┌──────────────────┐  ┌───────────────────┐
//	│ Search Sessions  │  │   Subscription    │
//	│    (session)     │  │Registry (registry)│
//	└──────────────────┘  └───────────────────┘
//	     ↓ pulls              ↑ broadcasts
//	┌──────────────────┐  ┌───────────────────┐
//	│  Search Engine   │  │     Notifier      │
//	│     (search)     │  │     (notify)      │
//	└──────────────────┘  └───────────────────┘
//	                          ↑ events
//	                      ┌───────────────────┐
//	                      │   NATS subjects   │
//	                      │   (natsclient)    │
//	                      └───────────────────┘
//
// # Message Flow
//
// Streaming search: the client sends streaming_search with a request id
// and a query. A session pulls results from the engine, groups them into
// search_batch messages, and finishes with search_complete or
// search_error. cancel_search stops a session without a terminal message.
//
// Live updates: the client sends subscribe with a subscription id and
// filters. Document events arriving from NATS, or from local indexing,
// are matched against every subscription; each connection with matches
// receives one document_update naming its matched subscription ids.
//
// Both flows interleave freely on one connection. Replies carry the
// request or subscription id they answer, so clients demultiplex by id,
// never by arrival order.
//
// # Packages
//
//   - protocol: wire message types, envelope codec, update events
//   - search: engine and stream interfaces, in-memory reference engine
//   - session: batching search sessions and their per-connection manager
//   - registry: connection and subscription state, broadcast fan-out
//   - notify: buffered event intake from NATS and the local indexer
//   - gateway/websocket: connection lifecycle and protocol dispatch
//   - natsclient: NATS connection management with circuit breaker
//   - config: layered configuration with env overrides
//   - metric: Prometheus registry, collectors, and scrape endpoint
//   - errors: classified error wrapping shared by all packages
//
// # Binary
//
// Run the server with defaults and a seeded corpus:
//
//	./bin/livesearch --corpus=configs/corpus.json --log-level=debug
//
// Then connect a websocket client to ws://localhost:8080/ws and send:
//
//	{"type":"streaming_search","request_id":"req-1",
//	 "query":{"text":"websocket","limit":50}}
//
//	{"type":"subscribe","subscription_id":"sub-1",
//	 "filters":{"categories":["tutorial"]}}
//
// Document events published to the configured NATS subjects appear as
// document_update messages on every connection whose filters match.
package livesearch

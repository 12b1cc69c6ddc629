// Package websocket is the protocol boundary of the service: it accepts
// websocket connections and speaks the streaming search protocol over
// them.
//
// # Connection lifecycle
//
// An accepted connection registers itself with the registry, then moves
// through connecting, active, closing, and closed. Three goroutines
// serve the active phase: the read loop decodes and dispatches client
// messages, the write loop drains the outbound queue onto the wire, and
// the heartbeat loop pings the client. The read deadline enforces the
// activity timeout; a client that sends nothing and answers no ping is
// torn down. Teardown cancels the connection's search sessions, removes
// its registry entry with all subscriptions, and closes the socket, in
// that order.
//
// # Message handling
//
// Client messages are streaming_search, subscribe, unsubscribe,
// cancel_search, and ping. A frame that cannot be decoded earns exactly
// one error reply and the connection stays open. Failures tied to an
// identified request or subscription are reported on that correlation id
// and are never fatal; only a transport failure ends the connection, and
// it ends only that one.
//
// # Flow control
//
// Every outbound message passes through a bounded per-connection queue
// and is dropped, not blocked on, when the queue is full. Inbound
// traffic is rate limited per connection; the read loop simply stops
// reading while the limiter holds, letting TCP push back on the client.
package websocket

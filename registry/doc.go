// Package registry is the single source of truth for which connections
// exist and what they are subscribed to, and mediates all document update
// fan-out.
//
// # Model
//
// Each registered connection owns an outbound channel of protocol
// messages and a set of subscriptions. Connection ids and subscription
// ids are both unique, and subscription uniqueness is registry-wide: two
// connections can never hold the same subscription id. Deregistering a
// connection removes all of its subscriptions in the same step, so a
// subscription can never outlive its connection.
//
// # Broadcast
//
// BroadcastUpdate matches a document change event against every
// subscription filter. A filter matches when each of its non-empty
// dimensions (categories, repositories, tags) intersects the event; an
// empty filter matches everything. Matches are grouped per connection so
// that each affected connection receives exactly one document_update
// naming all of its matched subscription ids.
//
// Delivery never blocks. The registry tries each outbound channel and
// drops the message when the channel is full, counting the drop. A slow
// consumer therefore loses updates instead of stalling the broadcast
// path.
//
// # Concurrency
//
// All methods are safe for concurrent use. Broadcasts take a shared lock,
// so concurrent broadcasts proceed in parallel; registration changes take
// the exclusive lock. Once Deregister returns, no broadcast will touch
// that connection's channel again, which lets the owner safely abandon
// it. Outbound channels are never closed by the registry.
package registry

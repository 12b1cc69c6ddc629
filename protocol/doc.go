// Package protocol defines the wire protocol between livesearch clients and
// the server: one JSON object per frame, discriminated by a "type" field.
//
// # Message Flow
//
// Clients send streaming_search, subscribe, unsubscribe, cancel_search, and
// ping. The server answers with search_batch, search_complete, search_error,
// document_update, subscribed, unsubscribed, pong, and error. Every server
// message that correlates to a client request carries the request or
// subscription id, because batches from independent sessions interleave on
// one connection and the client must demultiplex them.
//
// # Decoding
//
// Decode peeks at the type tag, then unmarshals and validates the concrete
// message. A frame that is not JSON, carries no recognized type, or lacks a
// required field fails with a classified invalid error wrapping
// errors.ErrMalformedMessage or errors.ErrUnknownType. Decoding is
// all-or-nothing: a malformed frame yields an error and no message, so the
// handler can answer with a single generic error reply and keep the
// connection open.
//
// # Encoding
//
// Encode stamps the type discriminator before marshaling, so messages built
// by hand encode the same as messages built through the constructors:
//
//	data, err := protocol.Encode(protocol.NewSearchComplete("req-1", 42))
//
// # Events
//
// DocumentUpdateEvent is the payload of document_update messages. It carries
// the change kind and the attributes subscription filters match against.
// Events are routed, never stored.
package protocol

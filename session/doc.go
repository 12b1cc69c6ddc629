// Package session turns one-shot search requests into incremental result
// streams. Each streaming_search request gets its own session, and a
// per-connection Manager supervises them.
//
// # Batching
//
// A session pulls results from a search.Stream and groups them into
// search_batch messages. A batch is emitted when it reaches the batch
// size, or when the batch timeout elapses measured from the first result
// of that batch, whichever comes first. Batches carry a running total of
// results delivered so far and has_more, which is false only on a batch
// known to be the last. Results arrive from the engine already sorted by
// similarity; sessions preserve that order and never re-sort.
//
// # Termination
//
// Every session ends with exactly one terminal message: search_complete
// with the total result count when the stream is exhausted, or
// search_error when the engine or stream fails. Cancellation is the one
// exception: a canceled session emits nothing further, not even a
// terminal, and at most one in-flight stream pull is allowed to finish.
//
// # Supervision
//
// The Manager enforces that a request id is unique among that
// connection's active sessions, runs sessions on a shared ants worker
// pool when configured, and cancels everything on Close. All outbound
// messages pass through a non-blocking Emit function, so a slow client
// can never stall a session.
package session

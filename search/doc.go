// Package search defines the search capability consumed by the streaming
// layer: queries, filters, scored results, and the lazy Stream contract.
//
// The Engine interface is the seam between this subsystem and whatever
// actually ranks documents. An Engine turns a Query into a Stream, a finite,
// non-restartable pull sequence ordered by descending similarity; the
// streaming session layer pulls from it batch by batch and never re-sorts.
// Streams signal exhaustion with io.EOF and failure with any other error.
//
// Filter is shared by queries and live-update subscriptions. Each dimension
// (categories, repositories, tags) is optional; an empty dimension matches
// everything, so the zero Filter matches every candidate.
//
// MemoryEngine is the in-process reference implementation backed by a
// mutable document map with token-overlap scoring. It is good enough for
// local runs, examples, and tests, and doubles as the corpus behind the
// document update feed in the bundled server.
package search

// Package notify moves document change events from their sources to the
// subscribers watching for them.
//
// Events enter through Notifier.OnChange, land in a bounded drop-oldest
// buffer, and a drain loop hands them to the registry for fan-out. The
// buffer keeps bursty producers from ever blocking: when changes arrive
// faster than they can be broadcast, the oldest pending events are
// discarded and counted.
//
// Two sources are provided. NATSSource subscribes to NATS subjects
// carrying JSON document update events, which is how external indexing
// pipelines feed the service. Indexer wraps the in-memory engine so that
// documents indexed or removed locally produce the same created, updated
// and deleted events.
package notify

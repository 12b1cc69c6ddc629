// Package errors provides standardized error handling patterns for livesearch components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification lets components make informed decisions about retries,
// client-facing error replies, and connection teardown without hardcoded
// error string matching. The protocol and registry layers lean on the
// Invalid class for everything a client can be told about (malformed
// messages, duplicate ids, unknown subscriptions), while transport and
// NATS failures surface as Transient.
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if _, ok := r.subs[id]; ok {
//	    return errors.ErrDuplicateSubscription
//	}
//
// Wrap errors with context for debugging:
//
//	if err := stream.Next(ctx); err != nil {
//	    return errors.Wrap(err, "Session", "run", "pull result")
//	}
//
// Check classification for handling decisions:
//
//	if errors.IsInvalid(err) {
//	    // Report to the client; the connection stays open.
//	} else if errors.IsTransient(err) {
//	    // Retry with backoff.
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: underlying error"
//
// The WrapTransient, WrapInvalid, and WrapFatal helpers attach a class to
// the wrapped error; plain Wrap leaves classification to the inspection
// helpers.
package errors

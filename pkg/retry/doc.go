// Package retry provides exponential backoff retry logic with jitter and
// context cancellation support.
//
// The package is used where livesearch talks to external resources that may be
// temporarily unavailable, most notably the NATS subscribe path in the
// notify package. Callers pick a Config (DefaultConfig, Quick, or
// Persistent) and hand the operation to Do:
//
//	err := retry.Do(ctx, retry.Persistent(), func() error {
//	    return client.Subscribe(ctx, subject, handler)
//	})
//
// Errors wrapped with NonRetryable fail immediately without consuming
// further attempts.
package retry

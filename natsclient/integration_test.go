//go:build integration

package natsclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_ConnectAndStatus connects to a real NATS server and
// verifies the health plumbing reflects the live connection.
func TestIntegration_ConnectAndStatus(t *testing.T) {
	tc := NewTestClient(t)

	assert.True(t, tc.IsReady())
	assert.Equal(t, StatusConnected, tc.Client.Status())

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))

	status := tc.Client.GetStatus()
	assert.Equal(t, StatusConnected, status.Status)
	assert.Equal(t, int32(0), status.FailureCount)
}

// TestIntegration_PublishSubscribe round-trips a document event payload
// through a real broker.
func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	err := tc.Client.Subscribe(ctx, "search.events.updated", func(_ context.Context, data []byte) {
		received <- data
	})
	require.NoError(t, err)

	payload := []byte(`{"kind":"updated","document_id":"doc-1","category":"tutorial"}`)
	require.NoError(t, tc.Client.Publish(ctx, "search.events.updated", payload))

	select {
	case data := <-received:
		assert.JSONEq(t, string(payload), string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

// TestIntegration_WildcardSubscription verifies subject wildcards deliver
// every event kind, which is how the notify source listens.
func TestIntegration_WildcardSubscription(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	var count atomic.Int32
	err := tc.Client.Subscribe(ctx, "search.events.>", func(_ context.Context, _ []byte) {
		count.Add(1)
	})
	require.NoError(t, err)

	for _, subject := range []string{"search.events.created", "search.events.updated", "search.events.deleted"} {
		require.NoError(t, tc.Client.Publish(ctx, subject, []byte(`{}`)))
	}

	assert.Eventually(t, func() bool {
		return count.Load() == 3
	}, 5*time.Second, 50*time.Millisecond)
}

// TestIntegration_CloseDrainsCleanly closes an active client and verifies
// subsequent operations fail fast.
func TestIntegration_CloseDrainsCleanly(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	err := tc.Client.Subscribe(ctx, "search.events.updated", func(context.Context, []byte) {})
	require.NoError(t, err)

	closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, tc.Client.Close(closeCtx))

	assert.Equal(t, StatusDisconnected, tc.Client.Status())
	assert.Error(t, tc.Client.Publish(ctx, "search.events.updated", []byte(`{}`)))
}

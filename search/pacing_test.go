package search_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livesearch/search"
	"github.com/c360/livesearch/testutil"
)

func TestPullDelayPacesStream(t *testing.T) {
	engine := search.NewMemoryEngine(search.WithPullDelay(20 * time.Millisecond))
	testutil.SeedEngine(t, engine, 3)

	stream, err := engine.Search(context.Background(), search.Query{})
	require.NoError(t, err)

	start := time.Now()
	var results []search.Result
	for {
		r, err := stream.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		results = append(results, r)
	}

	require.Len(t, results, 3)
	assert.Equal(t, "doc-001", results[0].ID)
	// Three result pulls plus the EOF pull each wait out the delay.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPullDelayHonorsCancellation(t *testing.T) {
	engine := search.NewMemoryEngine(search.WithPullDelay(time.Hour))
	testutil.SeedEngine(t, engine, 1)

	stream, err := engine.Search(context.Background(), search.Query{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := stream.Next(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancellation")
	}
}

package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/search"
)

// collector is a thread-safe Emit that records every message.
type collector struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *collector) emit(msg protocol.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *collector) messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.msgs...)
}

// sliceEngine serves the same fixed result set for every query.
type sliceEngine struct {
	results []search.Result
}

func (e *sliceEngine) Search(_ context.Context, _ search.Query) (search.Stream, error) {
	return search.NewSliceStream(e.results...), nil
}

// failingEngine rejects every search.
type failingEngine struct {
	err error
}

func (e *failingEngine) Search(_ context.Context, _ search.Query) (search.Stream, error) {
	return nil, e.err
}

// scriptedStream yields its results and then a configurable error, with
// io.EOF as the default.
type scriptedStream struct {
	results []search.Result
	err     error
	idx     int
}

func (s *scriptedStream) Next(ctx context.Context) (search.Result, error) {
	if err := ctx.Err(); err != nil {
		return search.Result{}, err
	}
	if s.idx < len(s.results) {
		r := s.results[s.idx]
		s.idx++
		return r, nil
	}
	if s.err != nil {
		return search.Result{}, s.err
	}
	return search.Result{}, io.EOF
}

// streamEngine serves one prepared stream.
type streamEngine struct {
	stream search.Stream
}

func (e *streamEngine) Search(_ context.Context, _ search.Query) (search.Stream, error) {
	return e.stream, nil
}

// gatedStream blocks until a result is fed through the gate. Closing the
// gate exhausts the stream.
type gatedStream struct {
	gate chan search.Result
}

func (s *gatedStream) Next(ctx context.Context) (search.Result, error) {
	select {
	case r, ok := <-s.gate:
		if !ok {
			return search.Result{}, io.EOF
		}
		return r, nil
	case <-ctx.Done():
		return search.Result{}, ctx.Err()
	}
}

func nResults(n int) []search.Result {
	out := make([]search.Result, n)
	for i := range out {
		out[i] = search.Result{
			ID:         fmt.Sprintf("doc-%02d", i),
			Title:      fmt.Sprintf("Document %d", i),
			Similarity: 1 - float64(i)/100,
		}
	}
	return out
}

func batchesFor(msgs []protocol.Message, requestID string) []*protocol.SearchBatch {
	var out []*protocol.SearchBatch
	for _, msg := range msgs {
		if b, ok := msg.(*protocol.SearchBatch); ok && b.RequestID == requestID {
			out = append(out, b)
		}
	}
	return out
}

func terminalsFor(msgs []protocol.Message, requestID string) []protocol.Message {
	var out []protocol.Message
	for _, msg := range msgs {
		switch m := msg.(type) {
		case *protocol.SearchComplete:
			if m.RequestID == requestID {
				out = append(out, m)
			}
		case *protocol.SearchError:
			if m.RequestID == requestID {
				out = append(out, m)
			}
		}
	}
	return out
}

func waitIdle(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool { return m.Active() == 0 },
		2*time.Second, 5*time.Millisecond, "sessions did not finish")
}

func TestBatchSizeSplitsResults(t *testing.T) {
	out := &collector{}
	m := NewManager(&sliceEngine{results: nResults(7)}, out.emit,
		WithBatchSize(3), WithBatchTimeout(time.Hour))

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{Text: "anything"}))
	waitIdle(t, m)

	msgs := out.messages()
	batches := batchesFor(msgs, "req-1")
	require.Len(t, batches, 3)

	assert.Len(t, batches[0].Results, 3)
	assert.True(t, batches[0].HasMore)
	assert.Equal(t, 3, batches[0].Total)

	assert.Len(t, batches[1].Results, 3)
	assert.True(t, batches[1].HasMore)
	assert.Equal(t, 6, batches[1].Total)

	assert.Len(t, batches[2].Results, 1)
	assert.False(t, batches[2].HasMore)
	assert.Equal(t, 7, batches[2].Total)

	terminals := terminalsFor(msgs, "req-1")
	require.Len(t, terminals, 1)
	complete, ok := terminals[0].(*protocol.SearchComplete)
	require.True(t, ok)
	assert.Equal(t, 7, complete.TotalResults)

	// The terminal is the last message for the request.
	assert.Equal(t, complete, msgs[len(msgs)-1])
}

func TestBatchesPreserveStreamOrder(t *testing.T) {
	results := nResults(5)
	out := &collector{}
	m := NewManager(&sliceEngine{results: results}, out.emit,
		WithBatchSize(2), WithBatchTimeout(time.Hour))

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{}))
	waitIdle(t, m)

	var got []search.Result
	for _, b := range batchesFor(out.messages(), "req-1") {
		got = append(got, b.Results...)
	}
	assert.Equal(t, results, got)
}

func TestBatchTimeoutFlushesPartialBatch(t *testing.T) {
	out := &collector{}
	gate := make(chan search.Result)
	m := NewManager(&streamEngine{stream: &gatedStream{gate: gate}}, out.emit,
		WithBatchSize(10), WithBatchTimeout(100*time.Millisecond))

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{}))

	gate <- search.Result{ID: "doc-1"}
	gate <- search.Result{ID: "doc-2"}

	// The partial batch flushes once the timeout elapses.
	require.Eventually(t, func() bool {
		return len(batchesFor(out.messages(), "req-1")) == 1
	}, 2*time.Second, 5*time.Millisecond)

	first := batchesFor(out.messages(), "req-1")[0]
	assert.Len(t, first.Results, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, 2, first.Total)

	gate <- search.Result{ID: "doc-3"}
	close(gate)
	waitIdle(t, m)

	msgs := out.messages()
	batches := batchesFor(msgs, "req-1")
	require.Len(t, batches, 2)
	assert.Len(t, batches[1].Results, 1)
	assert.False(t, batches[1].HasMore)
	assert.Equal(t, 3, batches[1].Total)

	terminals := terminalsFor(msgs, "req-1")
	require.Len(t, terminals, 1)
	assert.Equal(t, 3, terminals[0].(*protocol.SearchComplete).TotalResults)
}

func TestEmptyResultSetCompletesWithoutBatches(t *testing.T) {
	out := &collector{}
	m := NewManager(&sliceEngine{}, out.emit)

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{Text: "nothing"}))
	waitIdle(t, m)

	msgs := out.messages()
	assert.Empty(t, batchesFor(msgs, "req-1"))

	terminals := terminalsFor(msgs, "req-1")
	require.Len(t, terminals, 1)
	assert.Equal(t, 0, terminals[0].(*protocol.SearchComplete).TotalResults)
}

func TestEngineFailureEmitsSearchError(t *testing.T) {
	out := &collector{}
	m := NewManager(&failingEngine{err: stderrors.New("index unavailable")}, out.emit)

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{}))
	waitIdle(t, m)

	msgs := out.messages()
	assert.Empty(t, batchesFor(msgs, "req-1"))

	terminals := terminalsFor(msgs, "req-1")
	require.Len(t, terminals, 1)
	serr, ok := terminals[0].(*protocol.SearchError)
	require.True(t, ok)
	assert.Equal(t, "req-1", serr.RequestID)
	assert.Contains(t, serr.Error, "index unavailable")
}

func TestStreamFailureMidway(t *testing.T) {
	out := &collector{}
	stream := &scriptedStream{
		results: nResults(3),
		err:     stderrors.New("shard lost"),
	}
	m := NewManager(&streamEngine{stream: stream}, out.emit,
		WithBatchSize(2), WithBatchTimeout(time.Hour))

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{}))
	waitIdle(t, m)

	msgs := out.messages()
	batches := batchesFor(msgs, "req-1")
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].Total)

	// The failure terminates the session with search_error, never with
	// search_complete.
	terminals := terminalsFor(msgs, "req-1")
	require.Len(t, terminals, 1)
	serr, ok := terminals[0].(*protocol.SearchError)
	require.True(t, ok)
	assert.Contains(t, serr.Error, "shard lost")
}

func TestSessionKeepsStreamingWhenMessagesDrop(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	dropAll := func(protocol.Message) bool {
		mu.Lock()
		calls++
		mu.Unlock()
		return false
	}

	m := NewManager(&sliceEngine{results: nResults(3)}, dropAll,
		WithBatchSize(1), WithBatchTimeout(time.Hour))

	require.NoError(t, m.StartSearch(context.Background(), "req-1", search.Query{}))
	waitIdle(t, m)

	// Three batches and the terminal were attempted despite every drop.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, calls)
}

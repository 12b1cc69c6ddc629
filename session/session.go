package session

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"time"

	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/search"
)

const (
	defaultBatchSize    = 10
	maxBatchSize        = 100
	defaultBatchTimeout = 500 * time.Millisecond
)

// Emit delivers a protocol message toward the client. Implementations
// must not block; they report whether the message was accepted.
type Emit func(msg protocol.Message) bool

// session streams the results of one search request in batches. It is
// created and supervised by a Manager.
type session struct {
	requestID    string
	query        search.Query
	engine       search.Engine
	emit         Emit
	batchSize    int
	batchTimeout time.Duration
	logger       *slog.Logger
	metrics      *Metrics
}

// pullResult carries one stream pull to the batching loop.
type pullResult struct {
	result search.Result
	err    error
}

// run executes the search and streams result batches until the stream is
// exhausted, the search fails, or ctx is canceled. Unless canceled it
// ends with exactly one terminal message; after cancellation is observed
// it emits nothing further.
func (s *session) run(ctx context.Context) {
	start := time.Now()

	stream, err := s.engine.Search(ctx, s.query)
	if err != nil {
		if ctx.Err() != nil {
			s.observe(start, outcomeCanceled)
			return
		}
		s.logger.Error("search failed to start",
			"request_id", s.requestID,
			"error", err)
		s.deliver(protocol.NewSearchError(s.requestID, err.Error()))
		s.observe(start, outcomeFailed)
		return
	}

	// Unbuffered handoff: after cancellation at most one outstanding pull
	// can finish, and its handoff aborts on ctx.Done.
	items := make(chan pullResult)
	go s.pull(ctx, stream, items)

	var (
		batch  = make([]search.Result, 0, s.batchSize)
		total  int
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// flush emits the accumulated batch and disarms the batch timer.
	flush := func(hasMore bool) {
		if len(batch) == 0 {
			return
		}
		total += len(batch)
		results := batch
		batch = make([]search.Result, 0, s.batchSize)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		s.deliver(protocol.NewSearchBatch(s.requestID, results, hasMore, total))
		if s.metrics != nil {
			s.metrics.batches.Inc()
			s.metrics.batchSize.Observe(float64(len(results)))
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.observe(start, outcomeCanceled)
			return

		case <-timerC:
			if ctx.Err() != nil {
				s.observe(start, outcomeCanceled)
				return
			}
			flush(true)

		case item := <-items:
			if ctx.Err() != nil {
				s.observe(start, outcomeCanceled)
				return
			}

			if item.err != nil {
				if stderrors.Is(item.err, io.EOF) {
					flush(false)
					s.deliver(protocol.NewSearchComplete(s.requestID, total))
					s.logger.Debug("search complete",
						"request_id", s.requestID,
						"total_results", total)
					s.observe(start, outcomeCompleted)
					return
				}
				s.logger.Error("search stream failed",
					"request_id", s.requestID,
					"error", item.err)
				s.deliver(protocol.NewSearchError(s.requestID, item.err.Error()))
				s.observe(start, outcomeFailed)
				return
			}

			batch = append(batch, item.result)
			if len(batch) == 1 {
				timer = time.NewTimer(s.batchTimeout)
				timerC = timer.C
			}
			if len(batch) >= s.batchSize {
				flush(true)
			}
		}
	}
}

// pull drains the stream into items one result at a time. The terminal
// pull carries io.EOF for exhaustion or the stream's failure.
func (s *session) pull(ctx context.Context, stream search.Stream, items chan<- pullResult) {
	for {
		result, err := stream.Next(ctx)
		select {
		case items <- pullResult{result: result, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// deliver hands a message to the outbound path, logging when the queue
// has no room for it.
func (s *session) deliver(msg protocol.Message) {
	if !s.emit(msg) {
		s.logger.Warn("message dropped, outbound queue full",
			"request_id", s.requestID,
			"message_type", msg.MessageType())
	}
}

func (s *session) observe(start time.Time, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.finished.WithLabelValues(outcome).Inc()
	s.metrics.duration.Observe(time.Since(start).Seconds())
}

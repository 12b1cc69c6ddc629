package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/metric"
	"github.com/c360/livesearch/pkg/buffer"
	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/registry"
)

const (
	defaultBufferCapacity = 1024
	defaultDrainInterval  = 10 * time.Millisecond

	// drainBatchSize bounds how many events one drain tick hands to the
	// registry.
	drainBatchSize = 256
)

// Notifier accepts document change events from any number of sources and
// fans them out to matching subscribers through the registry. A bounded
// drop-oldest buffer decouples producers from broadcast, so a burst of
// changes never blocks the source that reported them.
type Notifier struct {
	reg        *registry.Registry
	capacity   int
	interval   time.Duration
	logger     *slog.Logger
	metricsReg *metric.MetricsRegistry
	metrics    *notifyMetrics
	buf        buffer.Buffer[protocol.DocumentUpdateEvent]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBufferCapacity sets how many pending events the notifier holds
// before the oldest are dropped.
func WithBufferCapacity(n int) Option {
	return func(nf *Notifier) {
		if n > 0 {
			nf.capacity = n
		}
	}
}

// WithDrainInterval sets how often buffered events are flushed to the
// registry.
func WithDrainInterval(d time.Duration) Option {
	return func(nf *Notifier) {
		if d > 0 {
			nf.interval = d
		}
	}
}

// WithLogger sets the logger used for notifier events.
func WithLogger(logger *slog.Logger) Option {
	return func(nf *Notifier) {
		if logger != nil {
			nf.logger = logger
		}
	}
}

// WithMetrics registers notifier and buffer metrics with the given
// metrics registry.
func WithMetrics(reg *metric.MetricsRegistry) Option {
	return func(nf *Notifier) {
		nf.metricsReg = reg
	}
}

// NewNotifier creates a notifier that broadcasts through reg.
func NewNotifier(reg *registry.Registry, opts ...Option) (*Notifier, error) {
	n := &Notifier{
		reg:      reg,
		capacity: defaultBufferCapacity,
		interval: defaultDrainInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}

	bufOpts := []buffer.Option[protocol.DocumentUpdateEvent]{
		buffer.WithOverflowPolicy[protocol.DocumentUpdateEvent](buffer.DropOldest),
		buffer.WithDropCallback[protocol.DocumentUpdateEvent](func(event protocol.DocumentUpdateEvent) {
			n.logger.Warn("update event dropped, buffer full",
				"document_id", event.DocumentID,
				"kind", string(event.Kind))
		}),
	}
	if n.metricsReg != nil {
		m, err := newNotifyMetrics(n.metricsReg)
		if err != nil {
			return nil, errors.Wrap(err, "Notifier", "NewNotifier", "register metrics")
		}
		n.metrics = m
		bufOpts = append(bufOpts,
			buffer.WithMetrics[protocol.DocumentUpdateEvent](n.metricsReg, "notify"))
	}

	buf, err := buffer.NewCircularBuffer(n.capacity, bufOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "Notifier", "NewNotifier", "create event buffer")
	}
	n.buf = buf

	return n, nil
}

// OnChange queues a document change event for broadcast. Invalid events
// are rejected so malformed source data never reaches subscribers.
func (n *Notifier) OnChange(event protocol.DocumentUpdateEvent) error {
	if err := event.Validate(); err != nil {
		if n.metrics != nil {
			n.metrics.invalid.Inc()
		}
		return err
	}
	if err := n.buf.Write(event); err != nil {
		return errors.Wrap(err, "Notifier", "OnChange", "buffer event")
	}
	if n.metrics != nil {
		n.metrics.received.Inc()
	}
	return nil
}

// Start launches the drain loop. The loop stops when Stop is called or
// ctx is canceled.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Notifier", "Start",
			"notifier is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	n.cancel = cancel
	n.done = done
	n.running = true

	go n.drain(runCtx, done)

	n.logger.Info("notifier started",
		"buffer_capacity", n.capacity,
		"drain_interval", n.interval)
	return nil
}

// Stop halts the drain loop and closes the event buffer. OnChange fails
// once Stop has completed.
func (n *Notifier) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotStarted, "Notifier", "Stop",
			"notifier is not running")
	}
	n.running = false
	cancel := n.cancel
	done := n.done
	n.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Notifier", "Stop", "wait for drain loop")
	}

	if err := n.buf.Close(); err != nil {
		return errors.Wrap(err, "Notifier", "Stop", "close event buffer")
	}

	n.logger.Info("notifier stopped")
	return nil
}

// Pending returns the number of buffered events not yet broadcast.
func (n *Notifier) Pending() int {
	return n.buf.Size()
}

func (n *Notifier) drain(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, event := range n.buf.ReadBatch(drainBatchSize) {
				n.reg.BroadcastUpdate(event)
				if n.metrics != nil {
					n.metrics.broadcast.Inc()
				}
			}
		}
	}
}

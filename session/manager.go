package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/search"
)

// Manager supervises the streaming search sessions of one connection. It
// enforces request id uniqueness among active sessions, hands session
// work to a shared pool when one is configured, and tears every session
// down when the connection goes away.
type Manager struct {
	engine       search.Engine
	emit         Emit
	pool         *ants.Pool
	batchSize    int
	batchTimeout time.Duration
	logger       *slog.Logger
	metrics      *Metrics

	mu     sync.Mutex
	active map[string]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithPool runs sessions on a shared worker pool instead of dedicated
// goroutines. A non-blocking pool rejects work when saturated, which
// surfaces as errors.ErrServerBusy from StartSearch.
func WithPool(pool *ants.Pool) Option {
	return func(m *Manager) {
		m.pool = pool
	}
}

// WithBatchSize sets how many results a batch holds before it is emitted.
// Values outside 1 to 100 are clamped.
func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = min(n, maxBatchSize)
		}
	}
}

// WithBatchTimeout sets how long a partial batch may wait, measured from
// its first result, before it is emitted.
func WithBatchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.batchTimeout = d
		}
	}
}

// WithLogger sets the logger used by the manager and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics attaches shared session metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a session manager that runs searches against engine
// and reports results through emit.
func NewManager(engine search.Engine, emit Emit, opts ...Option) *Manager {
	m := &Manager{
		engine:       engine,
		emit:         emit,
		batchSize:    defaultBatchSize,
		batchTimeout: defaultBatchTimeout,
		logger:       slog.Default(),
		active:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSearch begins streaming results for a request and returns without
// blocking; batches and the terminal message flow through the manager's
// emit function. The request id must not collide with a session that is
// still active.
func (m *Manager) StartSearch(ctx context.Context, requestID string, query search.Query) error {
	if requestID == "" {
		return errors.WrapInvalid(stderrors.New("request id is required"),
			"SessionManager", "StartSearch", "validate request")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.WrapTransient(errors.ErrShuttingDown, "SessionManager", "StartSearch",
			fmt.Sprintf("request %s rejected, manager is closed", requestID))
	}
	if _, exists := m.active[requestID]; exists {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.rejected.WithLabelValues(reasonDuplicate).Inc()
		}
		return errors.WrapInvalid(errors.ErrDuplicateRequest, "SessionManager", "StartSearch",
			fmt.Sprintf("request %s is already active", requestID))
	}

	sctx, cancel := context.WithCancel(ctx)
	m.active[requestID] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.active.Inc()
	}

	s := &session{
		requestID:    requestID,
		query:        query,
		engine:       m.engine,
		emit:         m.emit,
		batchSize:    m.batchSize,
		batchTimeout: m.batchTimeout,
		logger:       m.logger,
		metrics:      m.metrics,
	}

	run := func() {
		defer m.wg.Done()
		defer m.finish(requestID)
		s.run(sctx)
	}

	if m.pool != nil {
		if err := m.pool.Submit(run); err != nil {
			m.finish(requestID)
			m.wg.Done()
			if m.metrics != nil {
				m.metrics.rejected.WithLabelValues(reasonBusy).Inc()
			}
			if stderrors.Is(err, ants.ErrPoolOverload) {
				return errors.WrapTransient(errors.ErrServerBusy, "SessionManager", "StartSearch",
					fmt.Sprintf("request %s rejected, worker pool saturated", requestID))
			}
			return errors.WrapTransient(err, "SessionManager", "StartSearch", "submit session")
		}
	} else {
		go run()
	}

	if m.metrics != nil {
		m.metrics.started.Inc()
	}
	m.logger.Debug("search session started", "request_id", requestID)
	return nil
}

// Cancel requests cooperative cancellation of an active session and
// reports whether the request id was active. The session may still
// finish one in-flight stream pull but emits no further messages.
func (m *Manager) Cancel(requestID string) bool {
	m.mu.Lock()
	cancel, ok := m.active[requestID]
	m.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	m.logger.Debug("search session canceled", "request_id", requestID)
	return true
}

// Active returns the number of sessions that have not yet finished.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Close cancels every active session and waits for them to exit.
// StartSearch fails after Close.
func (m *Manager) Close() {
	m.mu.Lock()
	alreadyClosed := m.closed
	m.closed = true
	cancels := make([]context.CancelFunc, 0, len(m.active))
	for _, cancel := range m.active {
		cancels = append(cancels, cancel)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	m.wg.Wait()

	if !alreadyClosed {
		m.logger.Debug("session manager closed")
	}
}

// finish releases a session's registration. Safe to call more than once
// for the same request id.
func (m *Manager) finish(requestID string) {
	m.mu.Lock()
	cancel, ok := m.active[requestID]
	if ok {
		delete(m.active, requestID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	cancel()
	if m.metrics != nil {
		m.metrics.active.Dec()
	}
}

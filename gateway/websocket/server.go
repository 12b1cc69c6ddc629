package websocket

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"

	"github.com/c360/livesearch/config"
	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/metric"
	"github.com/c360/livesearch/registry"
	"github.com/c360/livesearch/search"
	"github.com/c360/livesearch/session"
)

// Server accepts websocket connections and runs the streaming search
// protocol over them. Each accepted connection gets its own handler; the
// server owns the shared worker pool their search sessions run on.
//
// A Server goes through Start and Stop once; it is not restartable.
type Server struct {
	cfg      config.Config
	engine   search.Engine
	registry *registry.Registry
	logger   *slog.Logger

	upgrader websocket.Upgrader
	pool     *ants.Pool

	metrics        *gatewayMetrics
	sessionMetrics *session.Metrics

	baseCtx    context.Context
	baseCancel context.CancelFunc

	lifecycleMu sync.Mutex
	running     bool
	stopped     bool
	listener    net.Listener
	httpServer  *http.Server

	wg sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the logger the server and its connections use.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithMetrics registers gateway and session metrics with the given
// metrics registry.
func WithMetrics(reg *metric.MetricsRegistry) Option {
	return func(s *Server) error {
		if reg == nil {
			return nil
		}
		gm, err := newGatewayMetrics(reg)
		if err != nil {
			return err
		}
		sm, err := session.NewMetrics(reg)
		if err != nil {
			return err
		}
		s.metrics = gm
		s.sessionMetrics = sm
		return nil
	}
}

// NewServer creates a websocket gateway serving searches from engine and
// live updates through reg.
func NewServer(cfg config.Config, engine search.Engine, reg *registry.Registry, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.WrapInvalid(stderrors.New("search engine is required"),
			"Server", "NewServer", "validate dependencies")
	}
	if reg == nil {
		return nil, errors.WrapInvalid(stderrors.New("registry is required"),
			"Server", "NewServer", "validate dependencies")
	}

	cfg = normalize(cfg)

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		registry: reg,
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Server.ReadBufferSize,
			WriteBufferSize: cfg.Server.WriteBufferSize,
			// Browser clients connect from arbitrary origins; access
			// control lives upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WrapInvalid(err, "Server", "NewServer", "apply option")
		}
	}

	pool, err := ants.NewPool(cfg.Search.MaxConcurrent, ants.WithNonblocking(true))
	if err != nil {
		return nil, errors.Wrap(err, "Server", "NewServer", "create session worker pool")
	}
	s.pool = pool

	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	return s, nil
}

// normalize fills zero config values with working defaults so a partial
// configuration still yields a functional server.
func normalize(cfg config.Config) config.Config {
	if cfg.Server.Path == "" {
		cfg.Server.Path = "/ws"
	}
	if cfg.Server.ReadBufferSize <= 0 {
		cfg.Server.ReadBufferSize = 1024
	}
	if cfg.Server.WriteBufferSize <= 0 {
		cfg.Server.WriteBufferSize = 1024
	}
	if cfg.Search.MaxConcurrent <= 0 {
		cfg.Search.MaxConcurrent = 256
	}
	if cfg.Connection.HeartbeatInterval <= 0 {
		cfg.Connection.HeartbeatInterval = 10 * time.Second
	}
	if cfg.Connection.ClientTimeout <= cfg.Connection.HeartbeatInterval {
		cfg.Connection.ClientTimeout = 3 * cfg.Connection.HeartbeatInterval
	}
	if cfg.Connection.OutboundCapacity <= 0 {
		cfg.Connection.OutboundCapacity = 100
	}
	if cfg.Connection.WriteTimeout <= 0 {
		cfg.Connection.WriteTimeout = 10 * time.Second
	}
	return cfg
}

// Handler returns the HTTP handler that upgrades websocket requests,
// for mounting the gateway on an existing server or a test harness.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

// Start listens on the configured address and serves websocket upgrades.
func (s *Server) Start(_ context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start",
			"server is already running")
	}
	if s.stopped {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Server", "Start",
			"server cannot be restarted")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "Server", "Start",
			fmt.Sprintf("listen on %s", addr))
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Server.Path, s.handleUpgrade)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server failed", "error", err)
		}
	}()

	s.running = true
	s.logger.Info("websocket server listening",
		"address", listener.Addr().String(),
		"path", s.cfg.Server.Path)
	return nil
}

// Stop closes the listener, tears down every connection, and waits for
// their handlers to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	if s.stopped {
		s.lifecycleMu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Server", "Stop",
			"server is already stopped")
	}
	s.stopped = true
	wasRunning := s.running
	s.running = false
	httpServer := s.httpServer
	s.lifecycleMu.Unlock()

	if wasRunning && httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown incomplete", "error", err)
		}
	}

	// Cancel every connection's run context so their loops exit.
	s.baseCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Server", "Stop", "wait for connection handlers")
	}

	s.pool.Release()
	s.logger.Info("websocket server stopped")
	return nil
}

// Address returns the bound listen address once the server has started.
func (s *Server) Address() string {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		s.logger.Warn("websocket upgrade failed",
			"remote", r.RemoteAddr,
			"error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.connections.Inc()
	}

	conn := newConn(s, ws)
	go func() {
		defer s.wg.Done()
		conn.run(s.baseCtx)
	}()
}

// acquire registers one in-flight connection handler unless the server
// is shutting down.
func (s *Server) acquire() bool {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

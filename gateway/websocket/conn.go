package websocket

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/registry"
	"github.com/c360/livesearch/session"
)

const (
	// maxMessageBytes bounds a single inbound frame.
	maxMessageBytes = 512 * 1024

	// closeGraceTimeout bounds the close handshake during teardown.
	closeGraceTimeout = time.Second
)

// errClientGone marks a clean client-initiated close. It trips the
// errgroup so the sibling loops stop, then run treats it as a normal
// disconnect.
var errClientGone = stderrors.New("client closed connection")

// connState tracks where a connection is in its lifecycle.
type connState int32

const (
	stateConnecting connState = iota
	stateActive
	stateClosing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateActive:
		return "active"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the server side of one websocket connection. Three goroutines
// serve it: a read loop decoding and dispatching client messages, a
// write loop draining the outbound queue, and a heartbeat loop pinging
// the client. Everything the connection sends goes through the bounded
// outbound queue; a send to a full queue is dropped and counted rather
// than ever blocking a producer.
type Conn struct {
	id       string
	ws       *websocket.Conn
	server   *Server
	logger   *slog.Logger
	limiter  *rate.Limiter
	manager  *session.Manager
	outbound chan protocol.Message

	heartbeatInterval time.Duration
	clientTimeout     time.Duration
	writeTimeout      time.Duration

	state     atomic.Int32
	drops     atomic.Uint64
	closeOnce sync.Once
}

func newConn(s *Server, ws *websocket.Conn) *Conn {
	id := uuid.NewString()

	limit := rate.Inf
	burst := 0
	if s.cfg.Server.RateLimit > 0 {
		limit = rate.Limit(s.cfg.Server.RateLimit)
		burst = s.cfg.Server.RateBurst
		if burst < 1 {
			burst = 1
		}
	}

	c := &Conn{
		id:                id,
		ws:                ws,
		server:            s,
		logger:            s.logger.With("connection_id", id),
		limiter:           rate.NewLimiter(limit, burst),
		outbound:          make(chan protocol.Message, s.cfg.Connection.OutboundCapacity),
		heartbeatInterval: s.cfg.Connection.HeartbeatInterval,
		clientTimeout:     s.cfg.Connection.ClientTimeout,
		writeTimeout:      s.cfg.Connection.WriteTimeout,
	}
	c.state.Store(int32(stateConnecting))

	c.manager = session.NewManager(s.engine, c.trySend,
		session.WithPool(s.pool),
		session.WithBatchSize(s.cfg.Search.BatchSize),
		session.WithBatchTimeout(s.cfg.Search.BatchTimeout),
		session.WithLogger(c.logger),
		session.WithMetrics(s.sessionMetrics))

	return c
}

// State reports the connection's lifecycle state.
func (c *Conn) State() string {
	return connState(c.state.Load()).String()
}

// run owns the connection from registration to teardown. It returns once
// every loop has exited and the connection is fully cleaned up.
func (c *Conn) run(ctx context.Context) {
	defer c.teardown()

	if err := c.server.registry.Register(c.id, c.outbound); err != nil {
		c.logger.Error("connection registration failed", "error", err)
		return
	}
	c.state.Store(int32(stateActive))
	c.logger.Info("client connected", "remote", c.ws.RemoteAddr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error { return c.heartbeatLoop(gctx) })
	g.Go(func() error {
		// Unblocks the read loop when a sibling fails or the server
		// shuts down. A blocked gorilla read only returns once the
		// underlying connection closes.
		<-gctx.Done()
		deadline := time.Now().Add(closeGraceTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return c.ws.Close()
	})

	err := g.Wait()
	if err != nil && !isExpectedClose(err) {
		c.logger.Warn("connection ended", "error", err)
		return
	}
	c.logger.Info("client disconnected")
}

// teardown releases everything the connection holds: its search
// sessions, its registry entry, and the socket. After it returns no
// goroutine serving this connection remains.
func (c *Conn) teardown() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(stateClosing))

		c.manager.Close()
		c.server.registry.Deregister(c.id)
		_ = c.ws.Close()

		c.state.Store(int32(stateClosed))
		if dropped := c.drops.Load(); dropped > 0 {
			c.logger.Warn("connection closed with dropped messages", "dropped", dropped)
		}
	})
}

// readLoop decodes and dispatches client messages until the connection
// drops, the client goes quiet past the activity timeout, or ctx ends.
func (c *Conn) readLoop(ctx context.Context) error {
	c.ws.SetReadLimit(maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.clientTimeout))
	c.ws.SetPongHandler(func(string) error {
		// Pong replies count as client activity.
		return c.ws.SetReadDeadline(time.Now().Add(c.clientTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return errClientGone
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.WrapTransient(err, "Conn", "readLoop", "read message")
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.clientTimeout))

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.WrapTransient(err, "Conn", "readLoop", "apply rate limit")
		}

		c.dispatch(ctx, data)
	}
}

// writeLoop drains the outbound queue onto the wire. A write failure is
// fatal to this connection only.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.outbound:
			data, err := protocol.Encode(msg)
			if err != nil {
				c.logger.Error("encoding outbound message failed",
					"message_type", msg.MessageType(),
					"error", err)
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return errors.WrapTransient(err, "Conn", "writeLoop", "write message")
			}
			if c.server.metrics != nil {
				c.server.metrics.sent.WithLabelValues(msg.MessageType()).Inc()
			}
		}
	}
}

// heartbeatLoop pings the client on the configured interval. The read
// deadline does the actual liveness enforcement; a client that answers
// no ping and sends nothing times out there.
func (c *Conn) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return errors.WrapTransient(err, "Conn", "heartbeatLoop", "write ping")
			}
		}
	}
}

// dispatch routes one inbound frame. Malformed input earns one error
// reply and the connection stays open.
func (c *Conn) dispatch(ctx context.Context, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.logger.Debug("rejecting malformed message", "error", err)
		if c.server.metrics != nil {
			c.server.metrics.protocolErrors.Inc()
		}
		reason := "malformed message"
		if stderrors.Is(err, errors.ErrUnknownType) {
			reason = "unrecognized message type"
		}
		c.trySend(protocol.NewError(reason))
		return
	}

	if c.server.metrics != nil {
		c.server.metrics.received.WithLabelValues(msg.MessageType()).Inc()
	}

	switch m := msg.(type) {
	case *protocol.StreamingSearch:
		c.handleSearch(ctx, m)
	case *protocol.Subscribe:
		c.handleSubscribe(m)
	case *protocol.Unsubscribe:
		c.handleUnsubscribe(m)
	case *protocol.CancelSearch:
		c.handleCancel(m)
	case *protocol.Ping:
		c.trySend(protocol.NewPong())
	default:
		// Server-to-client frames sent by a client are a protocol
		// violation, handled like any other bad input.
		if c.server.metrics != nil {
			c.server.metrics.protocolErrors.Inc()
		}
		c.trySend(protocol.NewError(fmt.Sprintf("unexpected message type %q", msg.MessageType())))
	}
}

func (c *Conn) handleSearch(ctx context.Context, m *protocol.StreamingSearch) {
	err := c.manager.StartSearch(ctx, m.RequestID, m.Query)
	if err == nil {
		return
	}
	c.logger.Debug("search request rejected",
		"request_id", m.RequestID,
		"error", err)

	reason := "search failed"
	switch {
	case stderrors.Is(err, errors.ErrDuplicateRequest):
		reason = errors.ErrDuplicateRequest.Error()
	case stderrors.Is(err, errors.ErrServerBusy):
		reason = errors.ErrServerBusy.Error()
	case stderrors.Is(err, errors.ErrShuttingDown):
		reason = errors.ErrShuttingDown.Error()
	}
	c.trySend(protocol.NewSearchError(m.RequestID, reason))
}

func (c *Conn) handleSubscribe(m *protocol.Subscribe) {
	sub := registry.Subscription{ID: m.SubscriptionID, Filter: m.Filters}
	if err := c.server.registry.AddSubscription(c.id, sub); err != nil {
		c.logger.Debug("subscribe rejected",
			"subscription_id", m.SubscriptionID,
			"error", err)
		reason := "subscription failed"
		if stderrors.Is(err, errors.ErrDuplicateSubscription) {
			reason = errors.ErrDuplicateSubscription.Error()
		}
		c.trySend(protocol.NewSubscriptionError(m.SubscriptionID, reason))
		return
	}
	c.trySend(protocol.NewSubscribed(m.SubscriptionID))
}

func (c *Conn) handleUnsubscribe(m *protocol.Unsubscribe) {
	if err := c.server.registry.RemoveSubscription(c.id, m.SubscriptionID); err != nil {
		c.logger.Debug("unsubscribe rejected",
			"subscription_id", m.SubscriptionID,
			"error", err)
		reason := "unsubscribe failed"
		if stderrors.Is(err, errors.ErrSubscriptionNotFound) {
			reason = errors.ErrSubscriptionNotFound.Error()
		}
		c.trySend(protocol.NewSubscriptionError(m.SubscriptionID, reason))
		return
	}
	c.trySend(protocol.NewUnsubscribed(m.SubscriptionID))
}

func (c *Conn) handleCancel(m *protocol.CancelSearch) {
	if !c.manager.Cancel(m.RequestID) {
		// Cancel of an unknown or already finished request is a no-op;
		// the client may have raced the terminal message.
		c.logger.Debug("cancel for inactive request", "request_id", m.RequestID)
	}
}

// trySend queues a message for the write loop without blocking. A full
// queue drops the message and counts it.
func (c *Conn) trySend(msg protocol.Message) bool {
	select {
	case c.outbound <- msg:
		return true
	default:
		c.drops.Add(1)
		if c.server.metrics != nil {
			c.server.metrics.drops.Inc()
		}
		c.logger.Warn("outbound message dropped, queue full",
			"message_type", msg.MessageType())
		return false
	}
}

// isExpectedClose reports whether a connection ended the way healthy
// connections end.
func isExpectedClose(err error) bool {
	if stderrors.Is(err, errClientGone) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, net.ErrClosed) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

package registry

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/metric"
	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/search"
)

// Subscription pairs a subscription id with the filter it matches events
// against. Subscription ids are unique across the whole registry, not per
// connection.
type Subscription struct {
	ID     string
	Filter search.Filter
}

// entry is the registry's record of one live connection.
type entry struct {
	outbound chan<- protocol.Message
	subs     map[string]search.Filter
}

// Registry tracks live connections and their subscriptions and fans
// document change events out to every matching connection. All mutation
// goes through its methods; broadcast is read-dominant, so reads take a
// shared lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	owner map[string]string // subscription id -> connection id

	dropped atomic.Uint64

	logger  *slog.Logger
	metrics *registryMetrics
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets the logger used for registry events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// WithMetrics registers registry gauges and counters with the given
// metrics registry.
func WithMetrics(reg *metric.MetricsRegistry) Option {
	return func(r *Registry) error {
		if reg == nil {
			return nil
		}
		m, err := newRegistryMetrics(reg)
		if err != nil {
			return err
		}
		r.metrics = m
		return nil
	}
}

// NewRegistry creates an empty connection registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		conns:  make(map[string]*entry),
		owner:  make(map[string]string),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, errors.WrapInvalid(err, "Registry", "NewRegistry", "apply option")
		}
	}

	return r, nil
}

// Register adds a connection with its outbound channel. Registering an id
// that is already present is a logic error and is rejected rather than
// silently overwriting.
func (r *Registry) Register(connID string, outbound chan<- protocol.Message) error {
	if connID == "" {
		return errors.WrapInvalid(stderrors.New("connection id is required"),
			"Registry", "Register", "validate connection")
	}
	if outbound == nil {
		return errors.WrapInvalid(stderrors.New("outbound channel is required"),
			"Registry", "Register", "validate connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return errors.WrapInvalid(errors.ErrDuplicateConnection, "Registry", "Register",
			fmt.Sprintf("connection %s already registered", connID))
	}

	r.conns[connID] = &entry{
		outbound: outbound,
		subs:     make(map[string]search.Filter),
	}

	r.logger.Debug("connection registered",
		"connection_id", connID,
		"connections", len(r.conns))

	if r.metrics != nil {
		r.metrics.connections.Set(float64(len(r.conns)))
	}
	return nil
}

// Deregister removes a connection and all of its subscriptions. It always
// succeeds and is a no-op for unknown ids.
func (r *Registry) Deregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.conns[connID]
	if !exists {
		return
	}

	for subID := range e.subs {
		delete(r.owner, subID)
	}
	removed := len(e.subs)
	delete(r.conns, connID)

	r.logger.Debug("connection deregistered",
		"connection_id", connID,
		"subscriptions_removed", removed,
		"connections", len(r.conns))

	if r.metrics != nil {
		r.metrics.connections.Set(float64(len(r.conns)))
		r.metrics.subscriptions.Set(float64(len(r.owner)))
	}
}

// AddSubscription attaches a subscription to a registered connection. It
// fails with errors.ErrUnknownConnection when the connection is not
// registered and errors.ErrDuplicateSubscription when the subscription id
// is already in use by any connection.
func (r *Registry) AddSubscription(connID string, sub Subscription) error {
	if sub.ID == "" {
		return errors.WrapInvalid(stderrors.New("subscription id is required"),
			"Registry", "AddSubscription", "validate subscription")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.conns[connID]
	if !exists {
		return errors.WrapInvalid(errors.ErrUnknownConnection, "Registry", "AddSubscription",
			fmt.Sprintf("connection %s is not registered", connID))
	}
	if owner, taken := r.owner[sub.ID]; taken {
		return errors.WrapInvalid(errors.ErrDuplicateSubscription, "Registry", "AddSubscription",
			fmt.Sprintf("subscription %s already held by connection %s", sub.ID, owner))
	}

	e.subs[sub.ID] = sub.Filter
	r.owner[sub.ID] = connID

	r.logger.Debug("subscription added",
		"connection_id", connID,
		"subscription_id", sub.ID,
		"subscriptions", len(r.owner))

	if r.metrics != nil {
		r.metrics.subscriptions.Set(float64(len(r.owner)))
	}
	return nil
}

// RemoveSubscription detaches a subscription from a connection. It fails
// with errors.ErrSubscriptionNotFound when the connection does not hold
// the subscription.
func (r *Registry) RemoveSubscription(connID, subID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.conns[connID]
	if !exists {
		return errors.WrapInvalid(errors.ErrUnknownConnection, "Registry", "RemoveSubscription",
			fmt.Sprintf("connection %s is not registered", connID))
	}
	if _, ok := e.subs[subID]; !ok {
		return errors.WrapInvalid(errors.ErrSubscriptionNotFound, "Registry", "RemoveSubscription",
			fmt.Sprintf("subscription %s not found on connection %s", subID, connID))
	}

	delete(e.subs, subID)
	delete(r.owner, subID)

	r.logger.Debug("subscription removed",
		"connection_id", connID,
		"subscription_id", subID,
		"subscriptions", len(r.owner))

	if r.metrics != nil {
		r.metrics.subscriptions.Set(float64(len(r.owner)))
	}
	return nil
}

// BroadcastUpdate routes a document change to every connection holding at
// least one matching subscription. Each affected connection receives one
// document_update naming all of its matched subscription ids. Delivery is
// best-effort: the outbound channel is tried without waiting, and a full
// channel drops that connection's message and increments the drop counter.
func (r *Registry) BroadcastUpdate(event protocol.DocumentUpdateEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID, e := range r.conns {
		matched := matchingSubscriptions(e.subs, event)
		if len(matched) == 0 {
			continue
		}

		select {
		case e.outbound <- protocol.NewDocumentUpdate(matched, event):
			if r.metrics != nil {
				r.metrics.deliveries.Inc()
			}
		default:
			r.dropped.Add(1)
			if r.metrics != nil {
				r.metrics.drops.Inc()
			}
			r.logger.Warn("document update dropped, outbound queue full",
				"connection_id", connID,
				"document_id", event.DocumentID)
		}
	}

	if r.metrics != nil {
		r.metrics.broadcasts.Inc()
	}
}

// matchingSubscriptions returns the sorted ids of subscriptions whose
// filter matches the event.
func matchingSubscriptions(subs map[string]search.Filter, event protocol.DocumentUpdateEvent) []string {
	var matched []string
	for subID, filter := range subs {
		if filter.Matches(event.Category, event.Repository, event.Tags) {
			matched = append(matched, subID)
		}
	}
	sort.Strings(matched)
	return matched
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SubscriptionCount returns the number of live subscriptions across all
// connections.
func (r *Registry) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}

// Dropped returns how many document updates have been dropped because an
// outbound channel was full.
func (r *Registry) Dropped() uint64 {
	return r.dropped.Load()
}

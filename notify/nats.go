package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/natsclient"
	"github.com/c360/livesearch/pkg/retry"
	"github.com/c360/livesearch/protocol"
)

// NATSSource feeds the notifier from document change events published on
// NATS subjects. Payloads are JSON document update events; anything that
// fails to decode or validate is logged and discarded.
type NATSSource struct {
	client   *natsclient.Client
	notifier *Notifier
	subjects []string
	logger   *slog.Logger
}

// SourceOption configures a NATSSource.
type SourceOption func(*NATSSource)

// WithSourceLogger sets the logger used by the source.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *NATSSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewNATSSource creates a source that subscribes to the given subjects.
func NewNATSSource(client *natsclient.Client, notifier *Notifier, subjects []string, opts ...SourceOption) *NATSSource {
	s := &NATSSource{
		client:   client,
		notifier: notifier,
		subjects: subjects,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to every configured subject, retrying while the NATS
// connection settles. Subscriptions live until the client closes.
func (s *NATSSource) Start(ctx context.Context) error {
	for _, subject := range s.subjects {
		err := retry.Do(ctx, retry.Persistent(), func() error {
			return s.client.Subscribe(ctx, subject, s.handle)
		})
		if err != nil {
			return errors.WrapTransient(err, "NATSSource", "Start",
				fmt.Sprintf("subscribe to %s", subject))
		}
		s.logger.Info("subscribed to update subject", "subject", subject)
	}
	return nil
}

func (s *NATSSource) handle(_ context.Context, data []byte) {
	var event protocol.DocumentUpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn("discarding undecodable update event", "error", err)
		return
	}
	if err := s.notifier.OnChange(event); err != nil {
		s.logger.Warn("discarding rejected update event",
			"document_id", event.DocumentID,
			"error", err)
	}
}

package protocol

import (
	"fmt"

	"github.com/c360/livesearch/errors"
)

// EventKind tags a DocumentUpdateEvent with what happened to the document.
type EventKind string

const (
	// EventCreated marks a newly indexed document.
	EventCreated EventKind = "created"
	// EventUpdated marks a change to an existing document.
	EventUpdated EventKind = "updated"
	// EventDeleted marks a document removal.
	EventDeleted EventKind = "deleted"
)

// Valid reports whether the kind is one of the recognized variants.
func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// DocumentUpdateEvent describes one document change. Events are ephemeral:
// they are routed to matching subscriptions and never stored. Only the
// fields relevant to filter matching travel with the event.
type DocumentUpdateEvent struct {
	Kind       EventKind `json:"kind"`
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title,omitempty"`
	Category   string    `json:"category,omitempty"`
	Repository string    `json:"repository,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
}

// Validate checks that the event carries a recognized kind and a document id.
func (e DocumentUpdateEvent) Validate() error {
	if !e.Kind.Valid() {
		return errors.WrapInvalid(errors.ErrMalformedMessage, "DocumentUpdateEvent", "Validate",
			fmt.Sprintf("unrecognized event kind %q", e.Kind))
	}
	if e.DocumentID == "" {
		return errors.WrapInvalid(errors.ErrMalformedMessage, "DocumentUpdateEvent", "Validate",
			"document_id is required")
	}
	return nil
}

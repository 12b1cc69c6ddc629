package protocol

import "github.com/c360/livesearch/search"

// Client to server message types.
const (
	TypeStreamingSearch = "streaming_search"
	TypeSubscribe       = "subscribe"
	TypeUnsubscribe     = "unsubscribe"
	TypeCancelSearch    = "cancel_search"
	TypePing            = "ping"
)

// Server to client message types.
const (
	TypeSearchBatch    = "search_batch"
	TypeSearchComplete = "search_complete"
	TypeSearchError    = "search_error"
	TypeDocumentUpdate = "document_update"
	TypeSubscribed     = "subscribed"
	TypeUnsubscribed   = "unsubscribed"
	TypePong           = "pong"
	TypeError          = "error"
)

// Message is one frame of the wire protocol, a tagged union keyed by the
// "type" field. Every server message that answers a client request carries
// that request or subscription id so the client can demultiplex interleaved
// deliveries from independent sessions.
type Message interface {
	// MessageType returns the wire discriminator for this message.
	MessageType() string
}

// StreamingSearch asks the server to start an incremental search session.
// The request id must be unique among the connection's active sessions.
type StreamingSearch struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id"`
	Query     search.Query `json:"query"`
}

// NewStreamingSearch creates a streaming_search request.
func NewStreamingSearch(requestID string, query search.Query) *StreamingSearch {
	return &StreamingSearch{Type: TypeStreamingSearch, RequestID: requestID, Query: query}
}

// MessageType implements Message.
func (m *StreamingSearch) MessageType() string { return TypeStreamingSearch }

// Subscribe registers interest in document updates matching the filters.
// Subscription ids are unique across the whole server, not per connection.
type Subscribe struct {
	Type           string        `json:"type"`
	SubscriptionID string        `json:"subscription_id"`
	Filters        search.Filter `json:"filters"`
}

// NewSubscribe creates a subscribe request.
func NewSubscribe(subscriptionID string, filters search.Filter) *Subscribe {
	return &Subscribe{Type: TypeSubscribe, SubscriptionID: subscriptionID, Filters: filters}
}

// MessageType implements Message.
func (m *Subscribe) MessageType() string { return TypeSubscribe }

// Unsubscribe removes a previously registered subscription.
type Unsubscribe struct {
	Type           string `json:"type"`
	SubscriptionID string `json:"subscription_id"`
}

// NewUnsubscribe creates an unsubscribe request.
func NewUnsubscribe(subscriptionID string) *Unsubscribe {
	return &Unsubscribe{Type: TypeUnsubscribe, SubscriptionID: subscriptionID}
}

// MessageType implements Message.
func (m *Unsubscribe) MessageType() string { return TypeUnsubscribe }

// CancelSearch asks the server to stop the session with the given request
// id. Cancellation is cooperative: at most one in-flight pull from the
// search capability may still complete, and no further messages for the
// request id are emitted.
type CancelSearch struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
}

// NewCancelSearch creates a cancel_search request.
func NewCancelSearch(requestID string) *CancelSearch {
	return &CancelSearch{Type: TypeCancelSearch, RequestID: requestID}
}

// MessageType implements Message.
func (m *CancelSearch) MessageType() string { return TypeCancelSearch }

// Ping is a client liveness probe. The server answers with Pong immediately.
type Ping struct {
	Type string `json:"type"`
}

// NewPing creates a ping request.
func NewPing() *Ping {
	return &Ping{Type: TypePing}
}

// MessageType implements Message.
func (m *Ping) MessageType() string { return TypePing }

// SearchBatch delivers one batch of results for an active session. Total is
// the cumulative count delivered so far including this batch. HasMore is
// true on every batch except possibly the last.
type SearchBatch struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Results   []search.Result `json:"results"`
	HasMore   bool            `json:"has_more"`
	Total     int             `json:"total"`
}

// NewSearchBatch creates a search_batch message.
func NewSearchBatch(requestID string, results []search.Result, hasMore bool, total int) *SearchBatch {
	return &SearchBatch{
		Type:      TypeSearchBatch,
		RequestID: requestID,
		Results:   results,
		HasMore:   hasMore,
		Total:     total,
	}
}

// MessageType implements Message.
func (m *SearchBatch) MessageType() string { return TypeSearchBatch }

// SearchComplete is the single terminal success message of a session.
type SearchComplete struct {
	Type         string `json:"type"`
	RequestID    string `json:"request_id"`
	TotalResults int    `json:"total_results"`
}

// NewSearchComplete creates a search_complete message.
func NewSearchComplete(requestID string, totalResults int) *SearchComplete {
	return &SearchComplete{Type: TypeSearchComplete, RequestID: requestID, TotalResults: totalResults}
}

// MessageType implements Message.
func (m *SearchComplete) MessageType() string { return TypeSearchComplete }

// SearchError is the single terminal failure message of a session. It also
// reports rejected streaming_search requests, such as a duplicate request id.
type SearchError struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// NewSearchError creates a search_error message.
func NewSearchError(requestID, message string) *SearchError {
	return &SearchError{Type: TypeSearchError, RequestID: requestID, Error: message}
}

// MessageType implements Message.
func (m *SearchError) MessageType() string { return TypeSearchError }

// DocumentUpdate notifies a connection of a document change. One message per
// connection per event, listing every subscription id on that connection
// whose filter matched.
type DocumentUpdate struct {
	Type            string              `json:"type"`
	SubscriptionIDs []string            `json:"subscription_ids"`
	Event           DocumentUpdateEvent `json:"event"`
}

// NewDocumentUpdate creates a document_update message.
func NewDocumentUpdate(subscriptionIDs []string, event DocumentUpdateEvent) *DocumentUpdate {
	return &DocumentUpdate{Type: TypeDocumentUpdate, SubscriptionIDs: subscriptionIDs, Event: event}
}

// MessageType implements Message.
func (m *DocumentUpdate) MessageType() string { return TypeDocumentUpdate }

// Subscribed acknowledges a successful subscribe.
type Subscribed struct {
	Type           string `json:"type"`
	SubscriptionID string `json:"subscription_id"`
}

// NewSubscribed creates a subscribed acknowledgment.
func NewSubscribed(subscriptionID string) *Subscribed {
	return &Subscribed{Type: TypeSubscribed, SubscriptionID: subscriptionID}
}

// MessageType implements Message.
func (m *Subscribed) MessageType() string { return TypeSubscribed }

// Unsubscribed acknowledges a successful unsubscribe.
type Unsubscribed struct {
	Type           string `json:"type"`
	SubscriptionID string `json:"subscription_id"`
}

// NewUnsubscribed creates an unsubscribed acknowledgment.
func NewUnsubscribed(subscriptionID string) *Unsubscribed {
	return &Unsubscribed{Type: TypeUnsubscribed, SubscriptionID: subscriptionID}
}

// MessageType implements Message.
func (m *Unsubscribed) MessageType() string { return TypeUnsubscribed }

// Pong answers a Ping.
type Pong struct {
	Type string `json:"type"`
}

// NewPong creates a pong reply.
func NewPong() *Pong {
	return &Pong{Type: TypePong}
}

// MessageType implements Message.
func (m *Pong) MessageType() string { return TypePong }

// ErrorMessage reports a failure that has no request id to correlate with:
// malformed input, unknown message types, and rejected subscription
// operations. SubscriptionID is set when the failure concerns a specific
// subscription and empty for unparseable input.
type ErrorMessage struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// NewError creates a generic error reply.
func NewError(message string) *ErrorMessage {
	return &ErrorMessage{Type: TypeError, Message: message}
}

// NewSubscriptionError creates an error reply correlated to a subscription id.
func NewSubscriptionError(subscriptionID, message string) *ErrorMessage {
	return &ErrorMessage{Type: TypeError, Message: message, SubscriptionID: subscriptionID}
}

// MessageType implements Message.
func (m *ErrorMessage) MessageType() string { return TypeError }

package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/search"
)

// envelope is the minimal shape peeked at to select a concrete message type.
type envelope struct {
	Type string `json:"type"`
}

// Decode parses one raw frame into a typed Message. It fails with a
// classified invalid error when the frame is not JSON, lacks a recognized
// type tag, or is missing required fields for its tag. Decode never
// partially applies: on error the returned message is nil and nothing else
// has happened.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, malformed("frame is not valid json")
	}
	if env.Type == "" {
		return nil, malformed("type field is required")
	}

	switch env.Type {
	case TypeStreamingSearch:
		return decodeStreamingSearch(data)
	case TypeSubscribe:
		return decodeSubscribe(data)
	case TypeUnsubscribe:
		return decodeUnsubscribe(data)
	case TypeCancelSearch:
		return decodeCancelSearch(data)
	case TypePing:
		return NewPing(), nil
	case TypeSearchBatch:
		return decodeSearchBatch(data)
	case TypeSearchComplete:
		return decodeSearchComplete(data)
	case TypeSearchError:
		return decodeSearchError(data)
	case TypeDocumentUpdate:
		return decodeDocumentUpdate(data)
	case TypeSubscribed:
		return decodeSubscribed(data)
	case TypeUnsubscribed:
		return decodeUnsubscribed(data)
	case TypePong:
		return NewPong(), nil
	case TypeError:
		return decodeError(data)
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownType, "Codec", "Decode",
			fmt.Sprintf("unrecognized message type %q", env.Type))
	}
}

// Encode serializes a Message to its wire form, stamping the type
// discriminator so hand-built structs and constructor-built ones encode
// identically.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *StreamingSearch:
		m.Type = TypeStreamingSearch
	case *Subscribe:
		m.Type = TypeSubscribe
	case *Unsubscribe:
		m.Type = TypeUnsubscribe
	case *CancelSearch:
		m.Type = TypeCancelSearch
	case *Ping:
		m.Type = TypePing
	case *SearchBatch:
		m.Type = TypeSearchBatch
	case *SearchComplete:
		m.Type = TypeSearchComplete
	case *SearchError:
		m.Type = TypeSearchError
	case *DocumentUpdate:
		m.Type = TypeDocumentUpdate
	case *Subscribed:
		m.Type = TypeSubscribed
	case *Unsubscribed:
		m.Type = TypeUnsubscribed
	case *Pong:
		m.Type = TypePong
	case *ErrorMessage:
		m.Type = TypeError
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownType, "Codec", "Encode",
			fmt.Sprintf("unsupported message %T", msg))
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "Codec", "Encode", "marshal message")
	}
	return data, nil
}

func malformed(detail string) error {
	return errors.WrapInvalid(errors.ErrMalformedMessage, "Codec", "Decode", detail)
}

func decodeStreamingSearch(data []byte) (Message, error) {
	var raw struct {
		RequestID string        `json:"request_id"`
		Query     *search.Query `json:"query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed("streaming_search fields have wrong shape")
	}
	if raw.RequestID == "" {
		return nil, malformed("streaming_search requires request_id")
	}
	if raw.Query == nil {
		return nil, malformed("streaming_search requires query")
	}
	return NewStreamingSearch(raw.RequestID, *raw.Query), nil
}

func decodeSubscribe(data []byte) (Message, error) {
	var msg Subscribe
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("subscribe fields have wrong shape")
	}
	if msg.SubscriptionID == "" {
		return nil, malformed("subscribe requires subscription_id")
	}
	return NewSubscribe(msg.SubscriptionID, msg.Filters), nil
}

func decodeUnsubscribe(data []byte) (Message, error) {
	var msg Unsubscribe
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("unsubscribe fields have wrong shape")
	}
	if msg.SubscriptionID == "" {
		return nil, malformed("unsubscribe requires subscription_id")
	}
	return NewUnsubscribe(msg.SubscriptionID), nil
}

func decodeCancelSearch(data []byte) (Message, error) {
	var msg CancelSearch
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("cancel_search fields have wrong shape")
	}
	if msg.RequestID == "" {
		return nil, malformed("cancel_search requires request_id")
	}
	return NewCancelSearch(msg.RequestID), nil
}

func decodeSearchBatch(data []byte) (Message, error) {
	var msg SearchBatch
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("search_batch fields have wrong shape")
	}
	if msg.RequestID == "" {
		return nil, malformed("search_batch requires request_id")
	}
	return &msg, nil
}

func decodeSearchComplete(data []byte) (Message, error) {
	var msg SearchComplete
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("search_complete fields have wrong shape")
	}
	if msg.RequestID == "" {
		return nil, malformed("search_complete requires request_id")
	}
	return &msg, nil
}

func decodeSearchError(data []byte) (Message, error) {
	var msg SearchError
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("search_error fields have wrong shape")
	}
	if msg.RequestID == "" {
		return nil, malformed("search_error requires request_id")
	}
	return &msg, nil
}

func decodeDocumentUpdate(data []byte) (Message, error) {
	var msg DocumentUpdate
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("document_update fields have wrong shape")
	}
	if len(msg.SubscriptionIDs) == 0 {
		return nil, malformed("document_update requires subscription_ids")
	}
	if err := msg.Event.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

func decodeSubscribed(data []byte) (Message, error) {
	var msg Subscribed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("subscribed fields have wrong shape")
	}
	if msg.SubscriptionID == "" {
		return nil, malformed("subscribed requires subscription_id")
	}
	return &msg, nil
}

func decodeUnsubscribed(data []byte) (Message, error) {
	var msg Unsubscribed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("unsubscribed fields have wrong shape")
	}
	if msg.SubscriptionID == "" {
		return nil, malformed("unsubscribed requires subscription_id")
	}
	return &msg, nil
}

func decodeError(data []byte) (Message, error) {
	var msg ErrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, malformed("error fields have wrong shape")
	}
	if msg.Message == "" {
		return nil, malformed("error requires message")
	}
	return &msg, nil
}

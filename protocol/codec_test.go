package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/livesearch/errors"
	"github.com/c360/livesearch/search"
)

func TestDecodeStreamingSearch(t *testing.T) {
	raw := `{
		"type": "streaming_search",
		"request_id": "req-1",
		"query": {
			"text": "golang concurrency",
			"filters": {"categories": ["docs"], "tags": ["go"]},
			"limit": 25
		}
	}`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	ss, ok := msg.(*StreamingSearch)
	require.True(t, ok)
	assert.Equal(t, "req-1", ss.RequestID)
	assert.Equal(t, "golang concurrency", ss.Query.Text)
	assert.Equal(t, []string{"docs"}, ss.Query.Filters.Categories)
	assert.Equal(t, []string{"go"}, ss.Query.Filters.Tags)
	assert.Equal(t, 25, ss.Query.Limit)
}

func TestDecodeStreamingSearchEmptyQuery(t *testing.T) {
	// An empty query object is valid; it means match everything.
	msg, err := Decode([]byte(`{"type":"streaming_search","request_id":"req-1","query":{}}`))
	require.NoError(t, err)

	ss := msg.(*StreamingSearch)
	assert.Empty(t, ss.Query.Text)
	assert.True(t, ss.Query.Filters.IsEmpty())
}

func TestDecodeSubscribe(t *testing.T) {
	raw := `{"type":"subscribe","subscription_id":"sub-1","filters":{"categories":["tutorial"]}}`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)

	sub, ok := msg.(*Subscribe)
	require.True(t, ok)
	assert.Equal(t, "sub-1", sub.SubscriptionID)
	assert.Equal(t, []string{"tutorial"}, sub.Filters.Categories)
}

func TestDecodeSubscribeWithoutFilters(t *testing.T) {
	// Filters are optional; a bare subscription matches every update.
	msg, err := Decode([]byte(`{"type":"subscribe","subscription_id":"sub-1"}`))
	require.NoError(t, err)

	sub := msg.(*Subscribe)
	assert.True(t, sub.Filters.IsEmpty())
}

func TestDecodeControlMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "unsubscribe",
			raw:  `{"type":"unsubscribe","subscription_id":"sub-1"}`,
			want: NewUnsubscribe("sub-1"),
		},
		{
			name: "cancel_search",
			raw:  `{"type":"cancel_search","request_id":"req-1"}`,
			want: NewCancelSearch("req-1"),
		},
		{
			name: "ping",
			raw:  `{"type":"ping"}`,
			want: NewPing(),
		},
		{
			name: "pong",
			raw:  `{"type":"pong"}`,
			want: NewPong(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestDecodeServerMessages(t *testing.T) {
	t.Run("search_batch", func(t *testing.T) {
		raw := `{
			"type": "search_batch",
			"request_id": "req-1",
			"results": [
				{"id":"doc-1","title":"First","snippet":"...","similarity":0.92},
				{"id":"doc-2","title":"Second","similarity":0.81}
			],
			"has_more": true,
			"total": 2
		}`

		msg, err := Decode([]byte(raw))
		require.NoError(t, err)

		batch, ok := msg.(*SearchBatch)
		require.True(t, ok)
		assert.Equal(t, "req-1", batch.RequestID)
		assert.True(t, batch.HasMore)
		assert.Equal(t, 2, batch.Total)
		require.Len(t, batch.Results, 2)
		assert.Equal(t, "doc-1", batch.Results[0].ID)
		assert.Equal(t, 0.92, batch.Results[0].Similarity)
	})

	t.Run("search_complete", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"search_complete","request_id":"req-1","total_results":17}`))
		require.NoError(t, err)

		complete := msg.(*SearchComplete)
		assert.Equal(t, "req-1", complete.RequestID)
		assert.Equal(t, 17, complete.TotalResults)
	})

	t.Run("search_error", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"search_error","request_id":"req-1","error":"search failed"}`))
		require.NoError(t, err)

		serr := msg.(*SearchError)
		assert.Equal(t, "req-1", serr.RequestID)
		assert.Equal(t, "search failed", serr.Error)
	})

	t.Run("document_update", func(t *testing.T) {
		raw := `{
			"type": "document_update",
			"subscription_ids": ["sub-1", "sub-2"],
			"event": {"kind":"updated","document_id":"doc-9","category":"tutorial"}
		}`

		msg, err := Decode([]byte(raw))
		require.NoError(t, err)

		update := msg.(*DocumentUpdate)
		assert.Equal(t, []string{"sub-1", "sub-2"}, update.SubscriptionIDs)
		assert.Equal(t, EventUpdated, update.Event.Kind)
		assert.Equal(t, "doc-9", update.Event.DocumentID)
	})

	t.Run("subscribed", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"subscribed","subscription_id":"sub-1"}`))
		require.NoError(t, err)
		assert.Equal(t, NewSubscribed("sub-1"), msg)
	})

	t.Run("unsubscribed", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"unsubscribed","subscription_id":"sub-1"}`))
		require.NoError(t, err)
		assert.Equal(t, NewUnsubscribed("sub-1"), msg)
	})

	t.Run("error", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"error","message":"malformed message"}`))
		require.NoError(t, err)

		em := msg.(*ErrorMessage)
		assert.Equal(t, "malformed message", em.Message)
		assert.Empty(t, em.SubscriptionID)
	})
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"type": "ping"`},
		{"not an object", `"ping"`},
		{"missing type", `{"request_id":"req-1"}`},
		{"empty type", `{"type":""}`},
		{"type has wrong shape", `{"type":42}`},
		{"streaming_search missing request_id", `{"type":"streaming_search","query":{"text":"x"}}`},
		{"streaming_search missing query", `{"type":"streaming_search","request_id":"req-1"}`},
		{"streaming_search null query", `{"type":"streaming_search","request_id":"req-1","query":null}`},
		{"streaming_search request_id wrong shape", `{"type":"streaming_search","request_id":7,"query":{}}`},
		{"subscribe missing subscription_id", `{"type":"subscribe","filters":{}}`},
		{"subscribe filters wrong shape", `{"type":"subscribe","subscription_id":"s","filters":"docs"}`},
		{"unsubscribe missing subscription_id", `{"type":"unsubscribe"}`},
		{"cancel_search missing request_id", `{"type":"cancel_search"}`},
		{"search_batch missing request_id", `{"type":"search_batch","results":[]}`},
		{"search_complete missing request_id", `{"type":"search_complete","total_results":1}`},
		{"search_error missing request_id", `{"type":"search_error","error":"x"}`},
		{"document_update without subscriptions", `{"type":"document_update","subscription_ids":[],"event":{"kind":"created","document_id":"d"}}`},
		{"document_update bad event kind", `{"type":"document_update","subscription_ids":["s"],"event":{"kind":"renamed","document_id":"d"}}`},
		{"document_update event missing document_id", `{"type":"document_update","subscription_ids":["s"],"event":{"kind":"created"}}`},
		{"subscribed missing subscription_id", `{"type":"subscribed"}`},
		{"error missing message", `{"type":"error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.True(t, cerrors.IsInvalid(err))
		})
	}
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"teleport"}`))
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, cerrors.ErrUnknownType)
	assert.True(t, cerrors.IsInvalid(err))
}

func TestEncodeStampsType(t *testing.T) {
	// A hand-built struct without the discriminator still encodes correctly.
	data, err := Encode(&SearchComplete{RequestID: "req-1", TotalResults: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"search_complete","request_id":"req-1","total_results":3}`, string(data))
}

func TestEncodeError(t *testing.T) {
	data, err := Encode(NewError("malformed message"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"malformed message"}`, string(data))

	data, err = Encode(NewSubscriptionError("sub-1", "duplicate subscription id"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"duplicate subscription id","subscription_id":"sub-1"}`, string(data))
}

type bogusMessage struct{}

func (bogusMessage) MessageType() string { return "bogus" }

func TestEncodeUnsupportedMessage(t *testing.T) {
	_, err := Encode(bogusMessage{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrUnknownType)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	messages := []Message{
		NewStreamingSearch("req-1", search.Query{
			Text:    "streaming",
			Filters: search.Filter{Categories: []string{"docs"}},
			Limit:   5,
		}),
		NewSubscribe("sub-1", search.Filter{Tags: []string{"go", "http"}}),
		NewUnsubscribe("sub-1"),
		NewCancelSearch("req-1"),
		NewPing(),
		NewSearchBatch("req-1", []search.Result{{ID: "doc-1", Title: "T", Similarity: 0.5}}, true, 1),
		NewSearchComplete("req-1", 12),
		NewSearchError("req-1", "search failed"),
		NewDocumentUpdate([]string{"sub-1"}, DocumentUpdateEvent{
			Kind:       EventCreated,
			DocumentID: "doc-1",
			Category:   "docs",
			Tags:       []string{"go"},
		}),
		NewSubscribed("sub-1"),
		NewUnsubscribed("sub-1"),
		NewPong(),
		NewError("something went wrong"),
	}

	for _, original := range messages {
		t.Run(original.MessageType(), func(t *testing.T) {
			data, err := Encode(original)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

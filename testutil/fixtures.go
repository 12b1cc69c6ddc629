// Package testutil provides shared fixtures for package tests: a
// deterministic document corpus and event builders matching the shapes
// the engine and the notification pipeline exchange.
package testutil

import (
	"fmt"
	"testing"

	"github.com/c360/livesearch/protocol"
	"github.com/c360/livesearch/search"
)

var (
	categories   = []string{"tutorial", "reference", "guide"}
	repositories = []string{"docs", "ops", "platform"}
	tagSets      = [][]string{
		{"websocket", "search"},
		{"nats", "events"},
		{"batching"},
	}
)

// Documents returns n deterministic documents cycling through a fixed set
// of categories, repositories, and tags. IDs are zero-padded so lexical
// order matches creation order.
func Documents(n int) []search.Document {
	docs := make([]search.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, search.Document{
			ID:         fmt.Sprintf("doc-%03d", i+1),
			Title:      fmt.Sprintf("Document %d", i+1),
			Body:       "generated corpus entry for streaming search tests",
			Category:   categories[i%len(categories)],
			Repository: repositories[i%len(repositories)],
			Tags:       tagSets[i%len(tagSets)],
		})
	}
	return docs
}

// SeedEngine indexes n generated documents into the engine and returns
// them in id order.
func SeedEngine(t testing.TB, engine *search.MemoryEngine, n int) []search.Document {
	t.Helper()

	docs := Documents(n)
	for _, doc := range docs {
		if err := engine.Index(doc); err != nil {
			t.Fatalf("index %s: %v", doc.ID, err)
		}
	}
	return docs
}

// Event builds a well-formed update event from a document.
func Event(kind protocol.EventKind, doc search.Document) protocol.DocumentUpdateEvent {
	return protocol.DocumentUpdateEvent{
		Kind:       kind,
		DocumentID: doc.ID,
		Title:      doc.Title,
		Category:   doc.Category,
		Repository: doc.Repository,
		Tags:       doc.Tags,
	}
}

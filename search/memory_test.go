package search

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/livesearch/errors"
)

// collect drains a stream into a slice, failing the test on any error other
// than io.EOF.
func collect(t *testing.T, stream Stream) []Result {
	t.Helper()

	var results []Result
	for {
		r, err := stream.Next(context.Background())
		if err == io.EOF {
			return results
		}
		require.NoError(t, err)
		results = append(results, r)
	}
}

func testCorpus(t *testing.T) *MemoryEngine {
	t.Helper()

	engine := NewMemoryEngine()
	docs := []Document{
		{
			ID:         "doc-1",
			Title:      "Streaming search architecture",
			Body:       "How incremental result delivery keeps the client responsive during long searches.",
			Category:   "docs",
			Repository: "core",
			Tags:       []string{"search", "streaming"},
		},
		{
			ID:         "doc-2",
			Title:      "Subscription filters",
			Body:       "Filters narrow update streaming to categories, repositories and tags the client cares about.",
			Category:   "docs",
			Repository: "core",
			Tags:       []string{"subscriptions"},
		},
		{
			ID:         "doc-3",
			Title:      "Release notes",
			Body:       "Bug fixes and performance improvements across the board.",
			Category:   "blog",
			Repository: "website",
			Tags:       []string{"release"},
		},
	}
	for _, doc := range docs {
		require.NoError(t, engine.Index(doc))
	}
	return engine
}

func TestMemoryEngineIndexAndGet(t *testing.T) {
	engine := NewMemoryEngine()
	assert.Equal(t, 0, engine.Len())

	require.NoError(t, engine.Index(Document{ID: "a", Title: "First"}))
	require.NoError(t, engine.Index(Document{ID: "b", Title: "Second"}))
	assert.Equal(t, 2, engine.Len())

	doc, ok := engine.Get("a")
	require.True(t, ok)
	assert.Equal(t, "First", doc.Title)

	// Indexing the same id replaces the document.
	require.NoError(t, engine.Index(Document{ID: "a", Title: "Replaced"}))
	assert.Equal(t, 2, engine.Len())
	doc, _ = engine.Get("a")
	assert.Equal(t, "Replaced", doc.Title)

	_, ok = engine.Get("missing")
	assert.False(t, ok)
}

func TestMemoryEngineIndexRequiresID(t *testing.T) {
	engine := NewMemoryEngine()

	err := engine.Index(Document{Title: "No identity"})
	require.Error(t, err)
	assert.True(t, cerrors.IsInvalid(err))
}

func TestMemoryEngineRemove(t *testing.T) {
	engine := testCorpus(t)
	engine.Remove("doc-1")
	assert.Equal(t, 2, engine.Len())

	_, ok := engine.Get("doc-1")
	assert.False(t, ok)

	// Removing an unknown id is a no-op.
	engine.Remove("doc-1")
	assert.Equal(t, 2, engine.Len())
}

func TestMemoryEngineSearchRanking(t *testing.T) {
	engine := testCorpus(t)

	stream, err := engine.Search(context.Background(), Query{Text: "streaming"})
	require.NoError(t, err)

	results := collect(t, stream)
	require.Len(t, results, 2)

	// Title hit outranks body hit.
	assert.Equal(t, "doc-1", results[0].ID)
	assert.Equal(t, "doc-2", results[1].ID)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestMemoryEngineSearchDeterministicOrder(t *testing.T) {
	engine := NewMemoryEngine()
	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, engine.Index(Document{ID: id, Title: "shared term"}))
	}

	// Equal scores fall back to id order, so repeated searches agree.
	for i := 0; i < 5; i++ {
		stream, err := engine.Search(context.Background(), Query{Text: "shared"})
		require.NoError(t, err)

		results := collect(t, stream)
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, "m", results[1].ID)
		assert.Equal(t, "z", results[2].ID)
	}
}

func TestMemoryEngineSearchFilters(t *testing.T) {
	engine := testCorpus(t)

	stream, err := engine.Search(context.Background(), Query{
		Text:    "streaming",
		Filters: Filter{Categories: []string{"docs"}, Tags: []string{"subscriptions"}},
	})
	require.NoError(t, err)

	results := collect(t, stream)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2", results[0].ID)
}

func TestMemoryEngineEmptyQueryMatchesAll(t *testing.T) {
	engine := testCorpus(t)

	stream, err := engine.Search(context.Background(), Query{})
	require.NoError(t, err)

	results := collect(t, stream)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, 1.0, r.Similarity)
	}
	// With uniform scores the order is id order.
	assert.Equal(t, "doc-1", results[0].ID)
}

func TestMemoryEngineNoMatches(t *testing.T) {
	engine := testCorpus(t)

	stream, err := engine.Search(context.Background(), Query{Text: "nonexistent gibberish"})
	require.NoError(t, err)

	results := collect(t, stream)
	assert.Empty(t, results)
}

func TestMemoryEngineQueryLimit(t *testing.T) {
	engine := testCorpus(t)

	stream, err := engine.Search(context.Background(), Query{Limit: 2})
	require.NoError(t, err)

	assert.Len(t, collect(t, stream), 2)
}

func TestMemoryEngineMaxResults(t *testing.T) {
	engine := NewMemoryEngine(WithMaxResults(1))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, engine.Index(Document{ID: id, Title: "term"}))
	}

	// Engine cap applies when the query asks for more.
	stream, err := engine.Search(context.Background(), Query{Text: "term", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, collect(t, stream), 1)

	// And when the query asks for everything.
	stream, err = engine.Search(context.Background(), Query{Text: "term"})
	require.NoError(t, err)
	assert.Len(t, collect(t, stream), 1)
}

func TestMemoryEngineSnippet(t *testing.T) {
	body := strings.Repeat("filler ", 60) + "needle in the haystack " + strings.Repeat("tail ", 60)
	engine := NewMemoryEngine()
	require.NoError(t, engine.Index(Document{ID: "long", Title: "irrelevant", Body: body}))

	stream, err := engine.Search(context.Background(), Query{Text: "needle"})
	require.NoError(t, err)

	results := collect(t, stream)
	require.Len(t, results, 1)

	snippet := results[0].Snippet
	assert.Contains(t, snippet, "needle")
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.LessOrEqual(t, len(snippet), snippetLength+3)
}

func TestMemoryEngineShortBodySnippet(t *testing.T) {
	engine := NewMemoryEngine()
	require.NoError(t, engine.Index(Document{ID: "short", Title: "tiny", Body: "just a few words"}))

	stream, err := engine.Search(context.Background(), Query{Text: "words"})
	require.NoError(t, err)

	results := collect(t, stream)
	require.Len(t, results, 1)
	assert.Equal(t, "just a few words", results[0].Snippet)
}

func TestMemoryEngineSearchCanceledContext(t *testing.T) {
	engine := testCorpus(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Search(ctx, Query{Text: "streaming"})
	assert.ErrorIs(t, err, context.Canceled)
}

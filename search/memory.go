package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/c360/livesearch/errors"
)

const snippetLength = 160

// Document is an indexed item in the in-memory corpus.
type Document struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Category   string   `json:"category,omitempty"`
	Repository string   `json:"repository,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// EngineOption configures a MemoryEngine.
type EngineOption func(*MemoryEngine)

// WithMaxResults caps the number of results any single query can return.
// Zero means unlimited.
func WithMaxResults(max int) EngineOption {
	return func(e *MemoryEngine) {
		if max > 0 {
			e.maxResults = max
		}
	}
}

// WithPullDelay pauses every stream pull for d, mimicking an engine that
// materializes results incrementally rather than all at once.
func WithPullDelay(d time.Duration) EngineOption {
	return func(e *MemoryEngine) {
		if d > 0 {
			e.pullDelay = d
		}
	}
}

// MemoryEngine is an in-memory Engine over a mutable document corpus.
// Scoring is token overlap between the query text and the document's title
// and body, with title matches weighted double. It exists as the reference
// capability for local runs and tests; production deployments supply their
// own Engine.
type MemoryEngine struct {
	mu         sync.RWMutex
	docs       map[string]Document
	maxResults int
	pullDelay  time.Duration
}

// NewMemoryEngine creates an empty in-memory search engine.
func NewMemoryEngine(opts ...EngineOption) *MemoryEngine {
	e := &MemoryEngine{
		docs: make(map[string]Document),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index adds or replaces a document in the corpus.
func (e *MemoryEngine) Index(doc Document) error {
	if doc.ID == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "MemoryEngine", "Index", "document id is required")
	}

	e.mu.Lock()
	e.docs[doc.ID] = doc
	e.mu.Unlock()
	return nil
}

// Remove deletes a document from the corpus. Removing an unknown id is a
// no-op.
func (e *MemoryEngine) Remove(id string) {
	e.mu.Lock()
	delete(e.docs, id)
	e.mu.Unlock()
}

// Get returns a document by id.
func (e *MemoryEngine) Get(id string) (Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[id]
	return doc, ok
}

// Len returns the number of indexed documents.
func (e *MemoryEngine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Search scores the corpus against the query and returns a Stream of
// matching results in descending similarity order. Ties are broken by
// document id so result order is deterministic.
func (e *MemoryEngine) Search(ctx context.Context, query Query) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(query.Text)

	e.mu.RLock()
	results := make([]Result, 0, len(e.docs))
	for _, doc := range e.docs {
		if !query.Filters.Matches(doc.Category, doc.Repository, doc.Tags) {
			continue
		}

		similarity := 1.0
		if len(terms) > 0 {
			similarity = score(terms, doc)
			if similarity == 0 {
				continue
			}
		}

		results = append(results, Result{
			ID:         doc.ID,
			Title:      doc.Title,
			Snippet:    snippet(doc.Body, terms),
			Category:   doc.Category,
			Repository: doc.Repository,
			Tags:       doc.Tags,
			Similarity: similarity,
		})
	}
	e.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	limit := query.Limit
	if e.maxResults > 0 && (limit == 0 || limit > e.maxResults) {
		limit = e.maxResults
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	stream := NewSliceStream(results...)
	if e.pullDelay > 0 {
		stream = &pacedStream{inner: stream, delay: e.pullDelay}
	}
	return stream, nil
}

// pacedStream waits before each pull so consumers observe results arriving
// over time instead of instantly.
type pacedStream struct {
	inner Stream
	delay time.Duration
}

func (s *pacedStream) Next(ctx context.Context) (Result, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
	}
	return s.inner.Next(ctx)
}

// score computes the fraction of query terms found in the document, with
// title hits weighted double.
func score(terms []string, doc Document) float64 {
	titleTokens := tokenSet(doc.Title)
	bodyTokens := tokenSet(doc.Body)

	var hits float64
	for _, term := range terms {
		switch {
		case titleTokens[term]:
			hits += 2
		case bodyTokens[term]:
			hits++
		}
	}

	return hits / float64(2*len(terms))
}

// snippet extracts a window of the body around the first term occurrence,
// falling back to the leading text when nothing matches.
func snippet(body string, terms []string) string {
	if body == "" {
		return ""
	}

	start := 0
	lower := strings.ToLower(body)
	for _, term := range terms {
		if idx := strings.Index(lower, term); idx >= 0 {
			start = idx
			break
		}
	}

	// Back up to give some leading context
	if start > snippetLength/4 {
		start -= snippetLength / 4
	} else {
		start = 0
	}

	end := start + snippetLength
	if end >= len(body) {
		return strings.TrimSpace(body[start:])
	}
	return strings.TrimSpace(body[start:end]) + "..."
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(text) {
		set[token] = true
	}
	return set
}

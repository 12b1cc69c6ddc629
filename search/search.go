package search

import (
	"context"
	"io"
	"slices"
)

// Query describes one search request: free text plus optional filter
// dimensions narrowing the candidate set.
type Query struct {
	Text    string `json:"text"`
	Filters Filter `json:"filters,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Filter holds optional match dimensions shared by search queries and
// update subscriptions. An empty dimension matches everything; a populated
// dimension matches when the candidate value intersects it.
type Filter struct {
	Categories   []string `json:"categories,omitempty"`
	Repositories []string `json:"repositories,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// IsEmpty reports whether no dimension is constrained.
func (f Filter) IsEmpty() bool {
	return len(f.Categories) == 0 && len(f.Repositories) == 0 && len(f.Tags) == 0
}

// Matches reports whether a candidate with the given attributes passes the
// filter. Every non-empty dimension must intersect the corresponding
// attribute: category and repository are single values, tags match when any
// candidate tag appears in the filter's tag set.
func (f Filter) Matches(category, repository string, tags []string) bool {
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, category) {
		return false
	}
	if len(f.Repositories) > 0 && !slices.Contains(f.Repositories, repository) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(f.Tags, tags) {
		return false
	}
	return true
}

func intersects(set, candidates []string) bool {
	for _, c := range candidates {
		if slices.Contains(set, c) {
			return true
		}
	}
	return false
}

// Result is a single scored search hit.
type Result struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Snippet    string   `json:"snippet,omitempty"`
	Category   string   `json:"category,omitempty"`
	Repository string   `json:"repository,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Similarity float64  `json:"similarity"`
}

// Stream is a lazy, finite, non-restartable sequence of results ordered by
// descending similarity. Next returns io.EOF after the final result; any
// other error is a search failure and ends the stream.
type Stream interface {
	Next(ctx context.Context) (Result, error)
}

// Engine executes queries against a document corpus.
type Engine interface {
	Search(ctx context.Context, query Query) (Stream, error)
}

// sliceStream adapts a pre-computed result slice to the Stream contract.
type sliceStream struct {
	results []Result
	pos     int
}

// NewSliceStream returns a Stream yielding the given results in order.
// The caller is responsible for providing results in descending
// similarity order.
func NewSliceStream(results ...Result) Stream {
	return &sliceStream{results: results}
}

func (s *sliceStream) Next(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s.pos >= len(s.results) {
		return Result{}, io.EOF
	}

	r := s.results[s.pos]
	s.pos++
	return r, nil
}

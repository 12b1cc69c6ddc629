package search

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterIsEmpty(t *testing.T) {
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, Filter{Categories: []string{"docs"}}.IsEmpty())
	assert.False(t, Filter{Repositories: []string{"core"}}.IsEmpty())
	assert.False(t, Filter{Tags: []string{"go"}}.IsEmpty())
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name       string
		filter     Filter
		category   string
		repository string
		tags       []string
		want       bool
	}{
		{
			name:     "empty filter matches everything",
			filter:   Filter{},
			category: "docs",
			tags:     []string{"go"},
			want:     true,
		},
		{
			name:   "empty filter matches empty candidate",
			filter: Filter{},
			want:   true,
		},
		{
			name:     "category match",
			filter:   Filter{Categories: []string{"docs", "blog"}},
			category: "docs",
			want:     true,
		},
		{
			name:     "category mismatch",
			filter:   Filter{Categories: []string{"docs", "blog"}},
			category: "code",
			want:     false,
		},
		{
			name:       "repository match",
			filter:     Filter{Repositories: []string{"core"}},
			repository: "core",
			want:       true,
		},
		{
			name:       "repository mismatch",
			filter:     Filter{Repositories: []string{"core"}},
			repository: "tools",
			want:       false,
		},
		{
			name:   "tag intersection matches",
			filter: Filter{Tags: []string{"go", "rust"}},
			tags:   []string{"python", "go"},
			want:   true,
		},
		{
			name:   "tag sets disjoint",
			filter: Filter{Tags: []string{"go", "rust"}},
			tags:   []string{"python", "ruby"},
			want:   false,
		},
		{
			name:   "tag filter rejects candidate without tags",
			filter: Filter{Tags: []string{"go"}},
			tags:   nil,
			want:   false,
		},
		{
			name: "all dimensions must match",
			filter: Filter{
				Categories:   []string{"docs"},
				Repositories: []string{"core"},
				Tags:         []string{"go"},
			},
			category:   "docs",
			repository: "core",
			tags:       []string{"go", "http"},
			want:       true,
		},
		{
			name: "one failing dimension rejects",
			filter: Filter{
				Categories:   []string{"docs"},
				Repositories: []string{"core"},
				Tags:         []string{"go"},
			},
			category:   "docs",
			repository: "tools",
			tags:       []string{"go"},
			want:       false,
		},
		{
			name:       "unconstrained dimensions are ignored",
			filter:     Filter{Categories: []string{"docs"}},
			category:   "docs",
			repository: "anything",
			tags:       []string{"whatever"},
			want:       true,
		},
		{
			name:     "empty candidate category fails constrained filter",
			filter:   Filter{Categories: []string{"docs"}},
			category: "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(tt.category, tt.repository, tt.tags)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSliceStreamYieldsInOrder(t *testing.T) {
	stream := NewSliceStream(
		Result{ID: "a", Similarity: 0.9},
		Result{ID: "b", Similarity: 0.7},
		Result{ID: "c", Similarity: 0.5},
	)

	ctx := context.Background()
	var ids []string
	for {
		r, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids)

	// Exhausted streams stay exhausted.
	_, err := stream.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestSliceStreamEmpty(t *testing.T) {
	stream := NewSliceStream()

	_, err := stream.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestSliceStreamHonorsContext(t *testing.T) {
	stream := NewSliceStream(Result{ID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stream.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

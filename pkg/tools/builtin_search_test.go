package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearchProvider struct {
	name    string
	results []SearchResult
	err     error
}

func (s stubSearchProvider) Name() string { return s.name }
func (s stubSearchProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	return s.results, s.err
}

func TestSearchWebUsesPrimaryWhenHealthy(t *testing.T) {
	primary := stubSearchProvider{name: "google", results: []SearchResult{{Title: "a"}}}
	secondary := stubSearchProvider{name: "bing", results: []SearchResult{{Title: "b"}}}

	fn := SearchWeb(primary, secondary)
	out, err := fn(context.Background(), map[string]any{"query": "go testing"})
	require.NoError(t, err)
	results := out.([]SearchResult)
	assert.Equal(t, "a", results[0].Title)
}

func TestSearchWebFailsOverToSecondary(t *testing.T) {
	primary := stubSearchProvider{name: "google", err: errors.New("rate limited")}
	secondary := stubSearchProvider{name: "bing", results: []SearchResult{{Title: "b"}}}

	fn := SearchWeb(primary, secondary)
	out, err := fn(context.Background(), map[string]any{"query": "go testing"})
	require.NoError(t, err)
	results := out.([]SearchResult)
	assert.Equal(t, "b", results[0].Title)
}

func TestSearchWebNoProviderConfigured(t *testing.T) {
	fn := SearchWeb(nil, nil)
	_, err := fn(context.Background(), map[string]any{"query": "x"})
	assert.Error(t, err)
}

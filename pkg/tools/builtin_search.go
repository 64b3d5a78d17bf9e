package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// SearchResult is one hit returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider is implemented once per search engine (google, bing, ...).
// Providers are optional — the registry only exposes search_web when at
// least one provider is configured (spec.md §4.1).
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// SearchWeb tries the primary provider and automatically fails over to the
// secondary on error, matching spec.md's "primary with automatic failover
// to a secondary" contract.
func SearchWeb(primary, secondary SearchProvider) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return nil, fmt.Errorf("query is required")
		}
		maxResults := 20
		if v, ok := args["max_results"].(float64); ok && v > 0 {
			maxResults = int(v)
		}

		if primary != nil {
			results, err := primary.Search(ctx, query, maxResults)
			if err == nil {
				return results, nil
			}
			slog.Warn("primary search provider failed, failing over",
				"provider", primary.Name(), "error", err)
		}
		if secondary != nil {
			return secondary.Search(ctx, query, maxResults)
		}
		return nil, fmt.Errorf("no search provider available")
	}
}

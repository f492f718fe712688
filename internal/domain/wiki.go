package domain

import (
	"context"
	"strings"
)

// WikiEntry is one row of the wiki registry: a short code users type, the
// display name, the site root, and a short label for choice menus.
type WikiEntry struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Label   string `yaml:"label"`
}

// NormalizeCode lowercases and trims a wiki code for lookup.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// SearchResult is a single article hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResponse is the uniform result every WikiProvider returns.
//
// Error is true only for backend failures (network, non-2xx status, API error
// payload). A successful search with no hits has Error false and empty Results,
// optionally with a Suggestion. Throttled marks an Error response that was
// refused locally by a rate limit without contacting the wiki.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Suggestion string         `json:"suggestion,omitempty"`
	Message    string         `json:"message,omitempty"`
	Error      bool           `json:"error,omitempty"`
	Throttled  bool           `json:"throttled,omitempty"`
}

// NoResults reports whether the search succeeded but found nothing.
func (r SearchResponse) NoResults() bool {
	return !r.Error && len(r.Results) == 0
}

// WikiProvider is a backend-specific implementation of wiki search.
type WikiProvider interface {
	// Name returns the display name of the wiki (e.g. "Memory Alpha").
	Name() string
	// BaseURL returns the site root without a trailing slash.
	BaseURL() string
	// Search runs a query. Failures are reported through SearchResponse.Error,
	// never as a Go error.
	Search(ctx context.Context, query string, limit int) SearchResponse
}

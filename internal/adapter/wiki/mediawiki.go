// Package wiki implements wiki search backends. MediaWikiProvider talks to
// the MediaWiki action API used by Fandom wikis.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"madbot/internal/domain"
	"madbot/internal/infra/tracer"
)

const (
	// DefaultLimit is used when the caller passes a non-positive limit.
	DefaultLimit = 5
	// MaxLimit is the most results the search endpoint is asked for.
	MaxLimit = 10

	defaultTimeout        = 10 * time.Second
	defaultSuggestTimeout = 5 * time.Second
	suggestLimit          = 3
	maxSearchBodySize     = 512 * 1024 // 512KB

	defaultUserAgent = "MadbotWikiLookup/0.1 (Discord bot; https://github.com/alucard87pl/madbot)"
)

// MsgEmptyQuery is returned, without any network call, for blank queries.
const MsgEmptyQuery = "Please enter a search term."

// MsgRateLimited is returned when WithRateLimit refuses a search.
const MsgRateLimited = "Too many searches right now. Please try again in a moment."

// searchAPIResponse models action=query&list=search.
type searchAPIResponse struct {
	Query *struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
		SearchInfo *struct {
			TotalHits int `json:"totalhits"`
		} `json:"searchinfo"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// statusError is a non-2xx response from the wiki.
type statusError struct{ code int }

func (e *statusError) Error() string { return "HTTP " + strconv.Itoa(e.code) }

// apiError is an error payload in an otherwise successful response.
type apiError struct{ code, info string }

func (e *apiError) Error() string {
	if e.info != "" {
		return e.info
	}
	return e.code
}

// Option configures a MediaWikiProvider.
type Option func(*MediaWikiProvider)

// WithHTTPClient replaces the HTTP client (tests use a fake transport).
func WithHTTPClient(c *http.Client) Option {
	return func(p *MediaWikiProvider) { p.client = c }
}

// WithAPIURL overrides the API endpoint; the default is <baseURL>/api.php.
func WithAPIURL(u string) Option {
	return func(p *MediaWikiProvider) { p.apiURL = u }
}

// WithUserAgent sets the User-Agent header sent to the wiki.
func WithUserAgent(ua string) Option {
	return func(p *MediaWikiProvider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithTimeouts sets the per-call timeouts for the search and suggestion calls.
// Non-positive values keep the defaults (10s and 5s).
func WithTimeouts(search, suggest time.Duration) Option {
	return func(p *MediaWikiProvider) {
		if search > 0 {
			p.timeout = search
		}
		if suggest > 0 {
			p.suggestTimeout = suggest
		}
	}
}

// WithRateLimit caps outbound searches per minute. A search that finds the
// bucket empty fails immediately as a backend error; it is never queued.
func WithRateLimit(perMinute int) Option {
	return func(p *MediaWikiProvider) {
		if perMinute <= 0 {
			p.limiter = nil
			return
		}
		burst := perMinute / 4
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
}

// MediaWikiProvider implements domain.WikiProvider against a MediaWiki API.
// It holds no per-request state and is safe for concurrent use.
type MediaWikiProvider struct {
	name           string
	baseURL        string
	apiURL         string
	userAgent      string
	timeout        time.Duration
	suggestTimeout time.Duration
	client         *http.Client
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// NewMediaWikiProvider creates a provider for one registry entry.
func NewMediaWikiProvider(entry domain.WikiEntry, logger *slog.Logger, opts ...Option) *MediaWikiProvider {
	base := strings.TrimRight(entry.BaseURL, "/")
	p := &MediaWikiProvider{
		name:           entry.Name,
		baseURL:        base,
		apiURL:         base + "/api.php",
		userAgent:      defaultUserAgent,
		timeout:        defaultTimeout,
		suggestTimeout: defaultSuggestTimeout,
		client:         &http.Client{},
		logger:         logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MediaWikiProvider) Name() string    { return p.name }
func (p *MediaWikiProvider) BaseURL() string { return p.baseURL }

// ClampLimit maps a requested result count into [1, MaxLimit], using
// DefaultLimit for non-positive input.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search runs a full-text search. On zero hits it makes one opensearch call
// to find a "did you mean" title. Failures never escape as Go errors.
func (p *MediaWikiProvider) Search(ctx context.Context, query string, limit int) domain.SearchResponse {
	ctx, span := tracer.StartSpan(ctx, "wiki.search")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("wiki.name", p.name))

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.SearchResponse{Results: []domain.SearchResult{}, Message: MsgEmptyQuery}
	}
	limit = ClampLimit(limit)
	span.SetAttributes(tracer.StringAttr("wiki.query", trimmed), tracer.IntAttr("wiki.limit", limit))

	if p.limiter != nil && !p.limiter.Allow() {
		p.logger.Warn("wiki search rate limited", "wiki", p.name)
		tracer.RecordError(span, domain.ErrRateLimit)
		return domain.SearchResponse{
			Results: []domain.SearchResult{},
			Message:   MsgRateLimited,
			Error:     true,
			Throttled: true,
		}
	}

	results, err := p.fullTextSearch(ctx, trimmed, limit)
	if err != nil {
		tracer.RecordError(span, err)
		p.logger.Warn("wiki search failed", "wiki", p.name, "query", trimmed, "error", err)
		return domain.SearchResponse{
			Results: []domain.SearchResult{},
			Message: p.failureMessage(err),
			Error:   true,
		}
	}

	span.SetAttributes(tracer.IntAttr("wiki.results", len(results)))
	if len(results) > 0 {
		tracer.SetOK(span)
		p.logger.Debug("wiki search completed", "wiki", p.name, "query", trimmed, "results", len(results))
		return domain.SearchResponse{Results: results}
	}

	suggestion := p.suggest(ctx, trimmed)
	span.SetAttributes(tracer.BoolAttr("wiki.suggested", suggestion != ""))
	tracer.SetOK(span)

	resp := domain.SearchResponse{Results: []domain.SearchResult{}, Suggestion: suggestion}
	if suggestion != "" {
		resp.Message = fmt.Sprintf("No exact results. Did you mean: **%s**?", suggestion)
	} else {
		resp.Message = fmt.Sprintf("No results found for \"%s\". Try different words or check the spelling.", trimmed)
	}
	return resp
}

func (p *MediaWikiProvider) failureMessage(err error) string {
	var se *statusError
	var ae *apiError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("Wiki returned %d. Please try again later.", se.code)
	case errors.As(err, &ae):
		return fmt.Sprintf("Wiki API error: %s.", ae.Error())
	case errors.Is(err, domain.ErrTimeout):
		return fmt.Sprintf("Search failed: the wiki did not answer within %s. Please try again later.", p.timeout)
	default:
		return fmt.Sprintf("Search failed: %v. Please try again later.", err)
	}
}

func (p *MediaWikiProvider) fullTextSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")
	params.Set("format", "json")
	params.Set("origin", "*")

	body, err := p.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var data searchAPIResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if data.Error != nil {
		return nil, &apiError{code: data.Error.Code, info: data.Error.Info}
	}
	if data.Query == nil {
		return []domain.SearchResult{}, nil
	}

	hits := data.Query.Search
	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			Title:   h.Title,
			URL:     ArticleURL(p.baseURL, h.Title),
			Snippet: StripHTML(h.Snippet),
		})
	}
	return results, nil
}

// suggest returns the first opensearch title for query, or "" on any failure.
func (p *MediaWikiProvider) suggest(ctx context.Context, query string) string {
	ctx, cancel := context.WithTimeout(ctx, p.suggestTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", strconv.Itoa(suggestLimit))
	params.Set("format", "json")
	params.Set("origin", "*")

	body, err := p.get(ctx, params)
	if err != nil {
		p.logger.Debug("wiki suggestion failed", "wiki", p.name, "error", err)
		return ""
	}

	// [searchTerm, titles[], descriptions[], urls[]]
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil || len(data) < 2 {
		return ""
	}
	var titles []string
	if err := json.Unmarshal(data[1], &titles); err != nil || len(titles) == 0 {
		return ""
	}
	return titles[0]
}

func (p *MediaWikiProvider) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

var _ domain.WikiProvider = (*MediaWikiProvider)(nil)

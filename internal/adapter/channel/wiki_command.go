package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"madbot/internal/domain"
	"madbot/internal/infra/metrics"
	"madbot/internal/usecase"
)

// Command and button limits shared by every chat transport.
const (
	CommandName        = "wiki"
	ButtonPrefix       = "wiki:"
	DefaultResultLimit = 5
	MinResultLimit     = 1
	MaxResultLimit     = 10
	ButtonsPerRow      = 5
	ButtonLabelMax     = 80
	SnippetMax         = 200
	ResultColor        = 0x1e88e5
)

// User-facing notices.
const (
	MsgEmptyQuery    = "Please enter a search term."
	MsgNoResults     = "No results."
	MsgInvalidButton = "Invalid button. Run /wiki again."
	MsgMenuExpired   = "This menu has expired. Run /wiki again."
	MsgBadSelection  = "Invalid selection."
	MsgLinkPosted    = "Link posted below."
	MsgPostFailed    = "Could not post the link in this channel."
)

// WikiResolver picks the provider for a wiki code.
type WikiResolver interface {
	Resolve(code string) domain.WikiProvider
	Choices() []usecase.Choice
}

// ResultStore holds the URLs behind a rendered result menu.
type ResultStore interface {
	Put(urls []string) string
	Take(id string, index int) (string, error)
}

// SearchOutcome is what a transport renders for one /wiki invocation.
// Text is set when there is nothing to click; otherwise CacheID and Results
// describe the result menu.
type SearchOutcome struct {
	Text    string
	Wiki    string
	BaseURL string
	Query   string
	CacheID string
	Results []domain.SearchResult
}

// HasMenu reports whether the outcome carries result buttons.
func (o SearchOutcome) HasMenu() bool { return o.CacheID != "" && len(o.Results) > 0 }

// WikiHandler runs the /wiki search and result-button flows for any transport.
type WikiHandler struct {
	wikis   WikiResolver
	cache   ResultStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWikiHandler creates a handler. m may be nil.
func NewWikiHandler(wikis WikiResolver, cache ResultStore, m *metrics.Metrics, logger *slog.Logger) *WikiHandler {
	return &WikiHandler{wikis: wikis, cache: cache, metrics: m, logger: logger}
}

// Choices returns the wiki selector options.
func (h *WikiHandler) Choices() []usecase.Choice { return h.wikis.Choices() }

// Search resolves the wiki, runs the query and caches result URLs for the
// buttons. limit <= 0 means "not given".
func (h *WikiHandler) Search(ctx context.Context, code, query string, limit int) SearchOutcome {
	query = strings.TrimSpace(query)
	provider := h.wikis.Resolve(code)
	out := SearchOutcome{Wiki: provider.Name(), BaseURL: provider.BaseURL(), Query: query}

	if query == "" {
		h.metrics.ObserveSearch(provider.Name(), metrics.OutcomeEmpty, 0)
		out.Text = MsgEmptyQuery
		return out
	}

	limit = resultLimit(limit)
	start := time.Now()
	resp := provider.Search(ctx, query, limit)
	elapsed := time.Since(start)

	if resp.Error || resp.NoResults() {
		outcome := metrics.OutcomeNoResults
		switch {
		case resp.Throttled:
			outcome = metrics.OutcomeThrottled
		case resp.Error:
			outcome = metrics.OutcomeError
		}
		h.metrics.ObserveSearch(provider.Name(), outcome, elapsed)
		h.logger.Info("wiki search answered without results",
			"wiki", provider.Name(), "query", query, "error", resp.Error, "suggestion", resp.Suggestion)
		out.Text = noResultText(resp)
		return out
	}

	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}
	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}

	h.metrics.ObserveSearch(provider.Name(), metrics.OutcomeResults, elapsed)
	out.CacheID = h.cache.Put(urls)
	out.Results = results
	h.logger.Info("wiki search served",
		"wiki", provider.Name(), "query", query, "results", len(results), "cache_id", out.CacheID)
	return out
}

// Select resolves a result button to the URL it stands for. On failure the
// returned notice is the private message to show the clicker.
func (h *WikiHandler) Select(customID string) (url string, notice string) {
	id, index, err := ParseButtonID(customID)
	if err == nil {
		url, err = h.cache.Take(id, index)
	}
	if err != nil {
		var outcome string
		outcome, notice = clickFailure(err)
		h.metrics.ObserveClick(outcome)
		h.logger.Debug("wiki button rejected",
			"custom_id", customID,
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		return "", notice
	}
	return url, ""
}

// Posted records the result of posting a selected link.
func (h *WikiHandler) Posted(url string, err error) {
	if err != nil {
		h.metrics.ObserveClick(metrics.OutcomeSendError)
		h.logger.Error("posting wiki link failed", "url", url, "error", err)
		return
	}
	h.metrics.ObserveClick(metrics.OutcomePosted)
}

func clickFailure(err error) (outcome, notice string) {
	switch {
	case errors.Is(err, domain.ErrMalformedButton):
		return metrics.OutcomeMalformed, MsgInvalidButton
	case errors.Is(err, domain.ErrMenuExpired):
		return metrics.OutcomeExpired, MsgMenuExpired
	default:
		return metrics.OutcomeBadIndex, MsgBadSelection
	}
}

// resultLimit applies the command's default and bounds.
func resultLimit(limit int) int {
	if limit <= 0 {
		return DefaultResultLimit
	}
	return min(MaxResultLimit, max(MinResultLimit, limit))
}

// noResultText renders an error or empty response: the message plus an
// italic suggestion line.
func noResultText(resp domain.SearchResponse) string {
	var lines []string
	if resp.Message != "" {
		lines = append(lines, resp.Message)
	}
	if resp.Suggestion != "" {
		lines = append(lines, "*Suggestion: "+resp.Suggestion+"*")
	}
	if len(lines) == 0 {
		return MsgNoResults
	}
	return strings.Join(lines, "\n")
}

// ButtonID encodes a result button id.
func ButtonID(cacheID string, index int) string {
	return ButtonPrefix + cacheID + ":" + strconv.Itoa(index)
}

// ParseButtonID splits "wiki:<cacheId>:<index>". The prefix is optional so
// transports that namespace buttons elsewhere can pass the bare value.
func ParseButtonID(customID string) (string, int, error) {
	parts := strings.Split(strings.TrimPrefix(customID, ButtonPrefix), ":")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("%w: %q", domain.ErrMalformedButton, customID)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", domain.ErrMalformedButton, customID)
	}
	return parts[0], index, nil
}

// ResultHeading is the menu description shown above the results.
func ResultHeading(query string) string {
	return fmt.Sprintf("Search results for **%s**. %s", escapeMarkdown(query), resultHint)
}

const resultHint = "Click a result to post its link in the channel."

// ResultFieldValue is the body shown under one result title.
func ResultFieldValue(r domain.SearchResult) string {
	if r.Snippet == "" {
		return r.URL
	}
	return r.URL + "\n" + truncate(r.Snippet, SnippetMax)
}

// ButtonLabel fits a result title into a button.
func ButtonLabel(title string) string { return truncate(title, ButtonLabelMax) }

// truncate shortens s to at most limit runes, ending in an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "~", `\~`, "|", `\|`,
)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// chunk splits items into groups of at most size.
func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

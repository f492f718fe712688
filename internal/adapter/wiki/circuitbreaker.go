package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"madbot/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive backend errors before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

var (
	errBackend   = fmt.Errorf("wiki backend error: %w", domain.ErrProviderError)
	errThrottled = fmt.Errorf("wiki search throttled: %w", domain.ErrRateLimit)
)

// CircuitBreakerProvider wraps a WikiProvider so that a wiki which keeps
// failing is answered locally instead of being hit again. It never retries.
type CircuitBreakerProvider struct {
	inner   domain.WikiProvider
	breaker *gobreaker.CircuitBreaker[domain.SearchResponse]
	logger  *slog.Logger
}

// NewCircuitBreakerProvider wraps inner with a circuit breaker.
// Zero-valued config fields fall back to defaults.
func NewCircuitBreakerProvider(inner domain.WikiProvider, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[domain.SearchResponse](gobreaker.Settings{
		Name:        "wiki:" + inner.Name(),
		MaxRequests: 1, // one probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		// Local throttling says nothing about the wiki's health.
		IsExcluded: func(err error) bool {
			return errors.Is(err, errThrottled)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &CircuitBreakerProvider{inner: inner, breaker: cb, logger: logger}
}

func (p *CircuitBreakerProvider) Name() string    { return p.inner.Name() }
func (p *CircuitBreakerProvider) BaseURL() string { return p.inner.BaseURL() }

// Search implements domain.WikiProvider. Backend errors count as breaker
// failures; empty queries, "no results" and throttled searches do not.
func (p *CircuitBreakerProvider) Search(ctx context.Context, query string, limit int) domain.SearchResponse {
	resp, err := p.breaker.Execute(func() (domain.SearchResponse, error) {
		r := p.inner.Search(ctx, query, limit)
		switch {
		case r.Throttled:
			return r, errThrottled
		case r.Error:
			return r, errBackend
		}
		return r, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", domain.ErrCircuitOpen, err)
		p.logger.Debug("wiki search short-circuited",
			"wiki", p.inner.Name(),
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		return domain.SearchResponse{
			Results: []domain.SearchResult{},
			Message: fmt.Sprintf("%s is temporarily unavailable. Please try again later.", p.inner.Name()),
			Error:   true,
		}
	}
	return resp
}

// State returns the current circuit breaker state for monitoring.
func (p *CircuitBreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}

var _ domain.WikiProvider = (*CircuitBreakerProvider)(nil)

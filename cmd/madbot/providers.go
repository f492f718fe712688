package main

import (
	"log/slog"

	"madbot/internal/adapter/wiki"
	"madbot/internal/domain"
	"madbot/internal/infra/config"
	"madbot/internal/usecase"
)

// providerFactory builds the MediaWiki backend for each registry entry,
// wrapped in a circuit breaker when enabled.
func providerFactory(sc config.SearchConfig, log *slog.Logger) usecase.ProviderFactory {
	return func(entry domain.WikiEntry) domain.WikiProvider {
		var p domain.WikiProvider = wiki.NewMediaWikiProvider(entry, log,
			wiki.WithUserAgent(sc.UserAgent),
			wiki.WithTimeouts(sc.Timeout, sc.SuggestTimeout),
			wiki.WithRateLimit(sc.RateLimitPerMinute),
		)
		if sc.CircuitBreaker.Enabled {
			p = wiki.NewCircuitBreakerProvider(p, wiki.CircuitBreakerConfig{
				MaxFailures: sc.CircuitBreaker.MaxFailures,
				Timeout:     sc.CircuitBreaker.Timeout,
			}, log)
		}
		return p
	}
}

func buildRegistry(cfg *config.Config, log *slog.Logger) (*usecase.Registry, error) {
	return usecase.NewRegistry(cfg.Wikis, providerFactory(cfg.Search, log))
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"madbot/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap lets callers match validation failures with errors.Is(err, domain.ErrConfigLoad).
func (v *ValidationError) Unwrap() error { return domain.ErrConfigLoad }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
// Chat secrets are not checked here so that offline commands (search, doctor)
// work without them; see RequireSecrets.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateWikis(cfg, ve)
	validateSearch(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateMetrics(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// RequireSecrets checks the startup secrets needed to connect to chat
// platforms. The bot refuses to start without a Discord token and
// application ID.
func RequireSecrets(cfg *Config) error {
	ve := &ValidationError{}
	if cfg.Discord.Token == "" {
		ve.Add("discord.token is required (set via DISCORD_TOKEN)")
	}
	if cfg.Discord.ApplicationID == "" {
		ve.Add("discord.application_id is required (set via DISCORD_APPLICATION_ID)")
	}
	if cfg.Slack != nil {
		if cfg.Slack.BotToken == "" {
			ve.Add("slack.bot_token is required when slack is configured (set via MADBOT_SLACK_BOT_TOKEN)")
		}
		if cfg.Slack.AppToken == "" {
			ve.Add("slack.app_token is required when slack is configured (set via MADBOT_SLACK_APP_TOKEN)")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateWikis(cfg *Config, ve *ValidationError) {
	if len(cfg.Wikis) == 0 {
		ve.Add("wikis must contain at least one entry")
		return
	}
	seen := make(map[string]int, len(cfg.Wikis))
	for i, w := range cfg.Wikis {
		code := domain.NormalizeCode(w.Code)
		if code == "" {
			ve.Add("wikis[%d].code must not be empty", i)
			continue
		}
		if j, dup := seen[code]; dup {
			ve.Add("wikis[%d]: duplicate code %q (first seen at wikis[%d])", i, code, j)
		}
		seen[code] = i

		if w.Name == "" {
			ve.Add("wikis[%d] (%s): name must not be empty", i, code)
		}
		if err := validateBaseURL(w.BaseURL); err != nil {
			ve.Add("wikis[%d] (%s): base_url %v", i, code, err)
		}
	}
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is invalid: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if s.Timeout <= 0 {
		ve.Add("search.timeout must be > 0")
	}
	if s.SuggestTimeout <= 0 {
		ve.Add("search.suggest_timeout must be > 0")
	}
	if s.UserAgent == "" {
		ve.Add("search.user_agent must not be empty")
	}
	if s.RateLimitPerMinute < 0 {
		ve.Add("search.rate_limit_per_minute must be >= 0")
	}
	if s.CircuitBreaker.Enabled && s.CircuitBreaker.Timeout < 0 {
		ve.Add("search.circuit_breaker.timeout must be >= 0")
	}
}

var validLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateMetrics(cfg *Config, ve *ValidationError) {
	if cfg.Metrics.Addr == "" {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
		ve.Add("metrics.addr %q is invalid: %v", cfg.Metrics.Addr, err)
	}
}

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"madbot/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

const doctorProbeTimeout = 5 * time.Second

// runDoctor executes all health checks and reports results.
func runDoctor() error {
	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)

	client := &http.Client{Timeout: doctorProbeTimeout}
	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Discord secrets", Fn: checkDiscordSecrets},
		{Name: "Slack", Fn: checkSlack},
		{Name: "Metrics", Fn: checkMetrics},
		{Name: "Wikis", Fn: checkWikis(client)},
	}

	fmt.Println("madbot doctor")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println()

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Printf("  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Printf("      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Println("\nFix the FAIL issues above before starting madbot.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Println("\nmadbot should work, but consider addressing the warnings.")
	} else {
		fmt.Println("\nAll checks passed! madbot is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file loaded. A missing file is
// only a warning since defaults and environment variables are enough.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check config.yaml syntax and the values reported above",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s; using built-in defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkDiscordSecrets verifies the token and application ID are present.
func checkDiscordSecrets(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	var missing []string
	if cfg.Discord.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if cfg.Discord.ApplicationID == "" {
		missing = append(missing, "DISCORD_APPLICATION_ID")
	}
	if len(missing) > 0 {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("missing %s", strings.Join(missing, " and ")),
			Fix:     "Copy the values from the Discord Developer Portal into the environment",
		}
	}
	scope := "global commands"
	if cfg.Discord.GuildID != "" {
		scope = "commands for guild " + cfg.Discord.GuildID
	}
	return CheckResult{Status: StatusPass, Message: "token and application ID set; " + scope}
}

// checkSlack reports the optional Slack transport.
func checkSlack(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	if cfg.Slack == nil {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	if cfg.Slack.BotToken == "" || cfg.Slack.AppToken == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "slack is configured but a token is missing",
			Fix:     "Set MADBOT_SLACK_BOT_TOKEN and MADBOT_SLACK_APP_TOKEN",
		}
	}
	return CheckResult{Status: StatusPass, Message: "bot and app tokens set (requires a build with -tags slack)"}
}

// checkMetrics verifies the metrics listen address is free.
func checkMetrics(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
	}
	if cfg.Metrics.Addr == "" {
		return CheckResult{Status: StatusPass, Message: "disabled"}
	}
	ln, err := net.Listen("tcp", cfg.Metrics.Addr)
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("cannot listen on %s: %v", cfg.Metrics.Addr, err),
			Fix:     "Pick a free address for metrics.addr",
		}
	}
	ln.Close()
	return CheckResult{Status: StatusPass, Message: "will listen on " + cfg.Metrics.Addr}
}

// checkWikis probes each wiki's api.php with a siteinfo query.
func checkWikis(client *http.Client) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: StatusFail, Message: "cannot check: config not loaded"}
		}

		var ok, broken []string
		for _, w := range cfg.Wikis {
			if err := probeWiki(client, w.BaseURL, cfg.Search.UserAgent); err != nil {
				broken = append(broken, fmt.Sprintf("%s (%v)", w.Code, err))
				continue
			}
			ok = append(ok, w.Code)
		}

		switch {
		case len(ok) == 0:
			return CheckResult{
				Status:  StatusFail,
				Message: "no wiki reachable: " + strings.Join(broken, ", "),
				Fix:     "Check network access and the base_url of each wiki",
			}
		case len(broken) > 0:
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("reachable: %s; unreachable: %s", strings.Join(ok, ", "), strings.Join(broken, ", ")),
			}
		default:
			return CheckResult{Status: StatusPass, Message: "reachable: " + strings.Join(ok, ", ")}
		}
	}
}

func probeWiki(client *http.Client, baseURL, userAgent string) error {
	ctx, cancel := context.WithTimeout(context.Background(), doctorProbeTimeout)
	defer cancel()

	u := strings.TrimRight(baseURL, "/") + "/api.php?action=query&meta=siteinfo&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

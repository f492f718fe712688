package main

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madbot/internal/domain"
	"madbot/internal/infra/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestCheckConfigFileMissingIsWarning(t *testing.T) {
	result := checkConfigFile(filepath.Join(t.TempDir(), "config.yaml"), nil)(nil)
	assert.Equal(t, StatusWarn, result.Status)
}

func TestCheckConfigFileError(t *testing.T) {
	result := checkConfigFile("config.yaml", &config.ValidationError{Errors: []string{"wikis[0].code is required"}})(nil)
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "wikis[0].code is required")
	assert.NotEmpty(t, result.Fix)
}

func TestCheckConfigFileValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: debug\n"), 0o600))

	result := checkConfigFile(path, nil)(nil)
	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckDiscordSecrets(t *testing.T) {
	assert.Equal(t, StatusFail, checkDiscordSecrets(nil).Status)

	cfg := config.Defaults()
	result := checkDiscordSecrets(cfg)
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "DISCORD_TOKEN and DISCORD_APPLICATION_ID")

	cfg.Discord.Token = "tok"
	cfg.Discord.ApplicationID = "123"
	result = checkDiscordSecrets(cfg)
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "global")

	cfg.Discord.GuildID = "42"
	assert.Contains(t, checkDiscordSecrets(cfg).Message, "guild 42")
}

func TestCheckSlack(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, StatusPass, checkSlack(cfg).Status)

	cfg.Slack = &config.SlackConfig{BotToken: "xoxb"}
	assert.Equal(t, StatusFail, checkSlack(cfg).Status)

	cfg.Slack.AppToken = "xapp"
	assert.Equal(t, StatusPass, checkSlack(cfg).Status)
}

func TestCheckMetricsDisabled(t *testing.T) {
	assert.Equal(t, StatusPass, checkMetrics(config.Defaults()).Status)
}

func TestCheckWikis(t *testing.T) {
	var userAgents []string
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		userAgents = append(userAgents, req.Header.Get("User-Agent"))
		assert.Equal(t, "/api.php", req.URL.Path)
		assert.Equal(t, "siteinfo", req.URL.Query().Get("meta"))
		switch req.URL.Host {
		case "memory-alpha.fandom.com":
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
		case "stargate.fandom.com":
			return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader(""))}, nil
		default:
			return nil, errors.New("no such host")
		}
	})}

	cfg := config.Defaults()
	result := checkWikis(client)(cfg)
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Message, "reachable: ma")
	assert.Contains(t, result.Message, "sgc (HTTP 403)")
	assert.Contains(t, result.Message, "b5")
	assert.Equal(t, config.DefaultUserAgent, userAgents[0])

	cfg.Wikis = []domain.WikiEntry{cfg.Wikis[0]}
	assert.Equal(t, StatusPass, checkWikis(client)(cfg).Status)

	cfg.Wikis = []domain.WikiEntry{{Code: "x", BaseURL: "https://nowhere.example"}}
	assert.Equal(t, StatusFail, checkWikis(client)(cfg).Status)
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "[PASS]", statusIcon(StatusPass))
	assert.Equal(t, "[WARN]", statusIcon(StatusWarn))
	assert.Equal(t, "[FAIL]", statusIcon(StatusFail))
	assert.Equal(t, "[????]", statusIcon("other"))
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madbot/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DISCORD_TOKEN", "DISCORD_APPLICATION_ID", "MADBOT_DISCORD_GUILD_ID",
		"MADBOT_SLACK_BOT_TOKEN", "MADBOT_SLACK_APP_TOKEN", "MADBOT_LOGGER_LEVEL",
		"MADBOT_LOGGER_FORMAT", "MADBOT_TRACER_ENABLED", "MADBOT_TRACER_EXPORTER",
		"MADBOT_METRICS_ADDR", "MADBOT_SEARCH_RATE_LIMIT", "MADBOT_SEARCH_TIMEOUT",
		"MADBOT_CONFIG_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Search.Timeout != 10*time.Second {
		t.Errorf("Search.Timeout = %v, want 10s", cfg.Search.Timeout)
	}
	if cfg.Search.SuggestTimeout != 5*time.Second {
		t.Errorf("Search.SuggestTimeout = %v, want 5s", cfg.Search.SuggestTimeout)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	require.Len(t, cfg.Wikis, 3)
	assert.Equal(t, "ma", cfg.Wikis[0].Code)
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultWikis(), cfg.Wikis)
	assert.Empty(t, cfg.Discord.Token)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", `
discord:
  token: "file-token"
  application_id: "1234"
wikis:
  - code: "wp"
    name: "Wookieepedia"
    base_url: "https://starwars.fandom.com"
    label: "Star Wars"
search:
  timeout: 3s
  rate_limit_per_minute: 30
logger:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "1234", cfg.Discord.ApplicationID)
	require.Len(t, cfg.Wikis, 1, "a wikis list in the file replaces the defaults")
	assert.Equal(t, "Wookieepedia", cfg.Wikis[0].Name)
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Search.SuggestTimeout, "unset fields keep defaults")
	assert.Equal(t, 30, cfg.Search.RateLimitPerMinute)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", "wikis: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadInsecurePermissions(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", "logger:\n  level: info\n")
	require.NoError(t, os.Chmod(path, 0o666))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestLoadValidationFailure(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
wikis:
  - code: "ma"
    name: "Memory Alpha"
    base_url: "ftp://memory-alpha.fandom.com"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfigLoad))
	assert.Contains(t, err.Error(), "must use http or https")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("DISCORD_APPLICATION_ID", "env-app")
	t.Setenv("MADBOT_DISCORD_GUILD_ID", "guild-1")
	t.Setenv("MADBOT_LOGGER_LEVEL", "warn")
	t.Setenv("MADBOT_TRACER_ENABLED", "true")
	t.Setenv("MADBOT_TRACER_EXPORTER", "stdout")
	t.Setenv("MADBOT_METRICS_ADDR", ":9090")
	t.Setenv("MADBOT_SEARCH_RATE_LIMIT", "12")
	t.Setenv("MADBOT_SEARCH_TIMEOUT", "7s")
	t.Setenv("MADBOT_SLACK_BOT_TOKEN", "xoxb-1")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, "env-app", cfg.Discord.ApplicationID)
	assert.Equal(t, "guild-1", cfg.Discord.GuildID)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "stdout", cfg.Tracer.Exporter)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, 12, cfg.Search.RateLimitPerMinute)
	assert.Equal(t, 7*time.Second, cfg.Search.Timeout)
	require.NotNil(t, cfg.Slack)
	assert.Equal(t, "xoxb-1", cfg.Slack.BotToken)
}

func TestEnvOverridesIgnoreBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("MADBOT_SEARCH_RATE_LIMIT", "lots")
	t.Setenv("MADBOT_SEARCH_TIMEOUT", "soon")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	assert.Equal(t, 0, cfg.Search.RateLimitPerMinute)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("secret-token", "passphrase")
	require.NoError(t, err)

	dec, err := DecryptValue(enc, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", dec)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := EncryptValue("secret-token", "right")
	require.NoError(t, err)

	_, err = DecryptValue(enc, "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDecryption))
}

func TestDecryptInvalidFormat(t *testing.T) {
	_, err := DecryptValue("no-colon", "key")
	assert.Error(t, err)
}

func TestLoadDecryptsTokens(t *testing.T) {
	clearEnv(t)
	enc, err := EncryptValue("real-token", "pass")
	require.NoError(t, err)

	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
discord:
  token: "enc:`+enc+`"
  application_id: "1"
`)
	t.Setenv("MADBOT_CONFIG_KEY", "pass")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "real-token", cfg.Discord.Token)
}

func TestLoadIgnoresCacheSection(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
cache:
  ttl: 1s
logger:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

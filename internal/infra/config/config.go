package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"madbot/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Discord  DiscordConfig      `yaml:"discord"`
	Slack    *SlackConfig       `yaml:"slack,omitempty"` // nil = Slack disabled
	Wikis    []domain.WikiEntry `yaml:"wikis"`
	Search   SearchConfig       `yaml:"search"`
	Logger   LoggerConfig       `yaml:"logger"`
	Tracer   TracerConfig       `yaml:"tracer"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	Includes []string           `yaml:"includes,omitempty"`
}

// DiscordConfig holds Discord bot settings. Token and ApplicationID are
// required to run the bot.
type DiscordConfig struct {
	Token         string `yaml:"token"`
	ApplicationID string `yaml:"application_id"`
	GuildID       string `yaml:"guild_id,omitempty"` // register commands per guild instead of globally
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// SearchConfig holds outbound wiki API settings.
type SearchConfig struct {
	Timeout            time.Duration        `yaml:"timeout"`
	SuggestTimeout     time.Duration        `yaml:"suggest_timeout"`
	UserAgent          string               `yaml:"user_agent"`
	RateLimitPerMinute int                  `yaml:"rate_limit_per_minute"` // 0 = unlimited
	CircuitBreaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures fail-fast behavior for a misbehaving wiki.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = no HTTP listener
}

// DefaultUserAgent identifies the bot to wiki operators.
const DefaultUserAgent = "MadbotWikiLookup/0.1 (Discord bot; https://github.com/alucard87pl/madbot)"

// DefaultWikis is the built-in registry table. The first entry is the
// fallback for unknown codes.
func DefaultWikis() []domain.WikiEntry {
	return []domain.WikiEntry{
		{Code: "ma", Name: "Memory Alpha", BaseURL: "https://memory-alpha.fandom.com", Label: "Star Trek"},
		{Code: "sgc", Name: "SGCommand", BaseURL: "https://stargate.fandom.com", Label: "Stargate"},
		{Code: "b5", Name: "The Babylon Project", BaseURL: "https://babylon5.fandom.com", Label: "Babylon 5"},
	}
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Wikis: DefaultWikis(),
		Search: SearchConfig{
			Timeout:        10 * time.Second,
			SuggestTimeout: 5 * time.Second,
			UserAgent:      DefaultUserAgent,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	// First pass: unmarshal to get the includes list.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Includes) > 0 {
		visited := map[string]bool{absPath: true}
		var extra []domain.WikiEntry
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0, &extra); err != nil {
			return nil, err
		}

		// Second pass: re-unmarshal main config so it takes precedence over includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
		cfg.Wikis = append(cfg.Wikis, extra...)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("MADBOT_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps DISCORD_* and MADBOT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_APPLICATION_ID"); v != "" {
		cfg.Discord.ApplicationID = v
	}
	if v := os.Getenv("MADBOT_DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("MADBOT_SLACK_BOT_TOKEN"); v != "" {
		if cfg.Slack == nil {
			cfg.Slack = &SlackConfig{}
		}
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("MADBOT_SLACK_APP_TOKEN"); v != "" {
		if cfg.Slack == nil {
			cfg.Slack = &SlackConfig{}
		}
		cfg.Slack.AppToken = v
	}
	if v := os.Getenv("MADBOT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("MADBOT_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("MADBOT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("MADBOT_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("MADBOT_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("MADBOT_SEARCH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("MADBOT_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Timeout = d
		}
	}
}

// decryptSecrets finds "enc:..." values in chat tokens and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	fields := []*string{&cfg.Discord.Token}
	if cfg.Slack != nil {
		fields = append(fields, &cfg.Slack.BotToken, &cfg.Slack.AppToken)
	}
	for _, fp := range fields {
		if strings.HasPrefix(*fp, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("chat token: %w", err)
			}
			*fp = decrypted
		}
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", domain.ErrEncryption, err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: create cipher: %v", domain.ErrEncryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: create gcm: %v", domain.ErrEncryption, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generate nonce: %v", domain.ErrEncryption, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid encrypted format: %w", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %w", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}

// config.go defines all configuration structures for the command2llm host
// and its bundled plugins.
package bot

import (
	"time"

	"github.com/vmoranv/command2llm/pkg/command2llm/channels/discord"
)

// Config holds the full bot configuration.
type Config struct {
	// Name is the bot name shown in status output.
	Name string `yaml:"name"`

	// WakeWord is the command prefix (default "/"). Messages starting
	// with it are dispatched as commands; "#" and "!" always count too.
	WakeWord string `yaml:"wake_word"`

	// Model is the LLM model used for intent classification and the
	// command-selection agent (e.g. "gpt-4o-mini").
	Model string `yaml:"model"`

	// API configures the LLM provider endpoint.
	API APIConfig `yaml:"api"`

	// Intent configures the intent interceptor plugin.
	Intent IntentConfig `yaml:"intent"`

	// Channels configures communication channels.
	Channels ChannelsConfig `yaml:"channels"`

	// Store configures the SQLite persistence.
	Store StoreConfig `yaml:"store"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the LLM provider (OpenAI-compatible).
type APIConfig struct {
	// BaseURL is the API base URL (default "https://api.openai.com/v1").
	BaseURL string `yaml:"base_url"`

	// APIKey is the provider API key. Prefer ${ENV} references or the
	// OS keyring over plaintext values.
	APIKey string `yaml:"api_key"`
}

// IntentConfig configures the interceptor that turns free-text messages
// into command dispatches.
type IntentConfig struct {
	// Enabled turns the interceptor on at startup.
	Enabled bool `yaml:"enabled"`

	// Threshold is the minimum fuzzy-match ratio [0,1] required before a
	// direct (non-agent) dispatch is accepted.
	Threshold float64 `yaml:"threshold"`

	// Keywords overrides the built-in trigger keyword list. Empty keeps
	// the defaults.
	Keywords []string `yaml:"keywords"`

	// CacheTTLSeconds is how long the command inventory cache stays
	// valid, in seconds.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// RefreshSchedule is the cron spec for background inventory refresh
	// (e.g. "@every 5m"). Empty disables the background refresher.
	RefreshSchedule string `yaml:"refresh_schedule"`

	// MaxSteps bounds the agent tool loop (command call + final reply).
	MaxSteps int `yaml:"max_steps"`

	// ToolTimeoutSeconds is the per-tool execution timeout for the
	// agent, in seconds.
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`
}

// CacheTTL returns the inventory cache TTL as a duration.
func (c IntentConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ToolTimeout returns the per-tool timeout as a duration.
func (c IntentConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}

// ChannelsConfig holds configuration for all channels.
type ChannelsConfig struct {
	// Discord is the Discord channel config.
	Discord DiscordChannelConfig `yaml:"discord"`
}

// DiscordChannelConfig wraps the discord adapter config with an enable flag.
type DiscordChannelConfig struct {
	Enabled        bool `yaml:"enabled"`
	discord.Config `yaml:",inline"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default bot configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "command2llm",
		WakeWord: "/",
		Model:    "gpt-4o-mini",
		API: APIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Intent: IntentConfig{
			Enabled:            true,
			Threshold:          0.6,
			CacheTTLSeconds:    300,
			RefreshSchedule:    "@every 5m",
			MaxSteps:           2,
			ToolTimeoutSeconds: 60,
		},
		Channels: ChannelsConfig{
			Discord: DiscordChannelConfig{Config: discord.DefaultConfig()},
		},
		Store: StoreConfig{
			Path: "./data/command2llm.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/channels/discord"
	"github.com/vmoranv/command2llm/pkg/command2llm/intent"
	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
	"github.com/vmoranv/command2llm/pkg/command2llm/plugins/core"
	"github.com/vmoranv/command2llm/pkg/command2llm/store"
)

// newServeCmd creates the `command2llm serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bot with messaging channels",
		Long: `Start command2llm as a daemon, connecting the enabled channels and
processing messages through the command dispatcher and the intent
interceptor.

Examples:
  command2llm serve
  command2llm serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().Bool("no-intent", false, "start without the intent interceptor")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	// Keyring → env → config, in that order.
	bot.ResolveAPIKey(cfg, logger)

	b := bot.New(cfg, logger)

	// ── Persistence ──
	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// ── Plugins ──
	if err := b.Registry().Register(core.New(b.Registry(), b.ChannelManager())); err != nil {
		return fmt.Errorf("registering core plugin: %w", err)
	}

	noIntent, _ := cmd.Flags().GetBool("no-intent")
	if !noIntent {
		client := llm.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.Model, logger)
		interceptor := intent.New(b, b.Registry(), client, st, cfg.Intent, cfg.WakeWord, logger)
		if err := b.Registry().Register(interceptor); err != nil {
			return fmt.Errorf("registering intent plugin: %w", err)
		}
	}

	// ── Channels ──
	if cfg.Channels.Discord.Enabled {
		dc := discord.New(cfg.Channels.Discord.Config, logger)
		if err := b.ChannelManager().Register(dc); err != nil {
			logger.Error("failed to register Discord", "error", err)
		} else {
			logger.Info("Discord channel registered")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	logger.Info("command2llm running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"wake_word", cfg.WakeWord,
		"intent", !noIntent && cfg.Intent.Enabled,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout.
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// resolveConfig loads the config from the --config flag, an auto-discovered
// file, or falls back to defaults.
func resolveConfig(cmd *cobra.Command) (*bot.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := bot.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := bot.FindConfigFile(); found != "" {
		cfg, err := bot.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	slog.Warn("no configuration file found, using defaults",
		"hint", "run 'command2llm config init' to create one")
	return bot.DefaultConfig(), nil
}

// newLogger builds the slog logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, cfg *bot.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch {
	case verbose || cfg.Logging.Level == "debug":
		level = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		level = slog.LevelWarn
	case cfg.Logging.Level == "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

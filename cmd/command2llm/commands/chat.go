package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/channels/console"
	"github.com/vmoranv/command2llm/pkg/command2llm/intent"
	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
	"github.com/vmoranv/command2llm/pkg/command2llm/plugins/core"
	"github.com/vmoranv/command2llm/pkg/command2llm/store"
)

// newChatCmd creates the `command2llm chat` command: an interactive REPL
// driving the bot in-process through the console channel.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive local session",
		Long: `Start an interactive session against the bot without connecting any
platform. Typed lines flow through the same dispatch pipeline as platform
messages, so commands and the intent interceptor behave exactly as they
would in a real chat.

Examples:
  command2llm chat
  command2llm chat --verbose`,
		RunE: runChat,
	}
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	bot.ResolveAPIKey(cfg, logger)

	b := bot.New(cfg, logger)

	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := b.Registry().Register(core.New(b.Registry(), b.ChannelManager())); err != nil {
		return fmt.Errorf("registering core plugin: %w", err)
	}

	client := llm.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.Model, logger)
	interceptor := intent.New(b, b.Registry(), client, st, cfg.Intent, cfg.WakeWord, logger)
	if err := b.Registry().Register(interceptor); err != nil {
		return fmt.Errorf("registering intent plugin: %w", err)
	}

	term := console.New(os.Stdout)
	if err := b.ChannelManager().Register(term); err != nil {
		return fmt.Errorf("registering console channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer b.Stop()

	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("command2llm chat. Wake word %q, type 'exit' to quit.\n", cfg.WakeWord)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		if err := term.Push("user", line); err != nil {
			logger.Warn("failed to queue message", "error", err)
		}
	}

	return nil
}

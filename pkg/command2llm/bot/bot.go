// bot.go implements the host orchestrator. Message flow: receive →
// wrap as event → command dispatch (wake-word prefixed) → plugin
// interceptor chain → reply routing. Forged events re-enter the same
// pipeline through CommitEvent.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmoranv/command2llm/pkg/command2llm/channels"
)

// Bot is the command2llm host orchestrator.
type Bot struct {
	cfg *Config

	// registry tracks plugins and their commands.
	registry *Registry

	// channelMgr manages communication channels.
	channelMgr *channels.Manager

	// events is the internal dispatch queue. Platform messages and
	// forged events both land here.
	events chan *Event

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Bot with the given configuration.
func New(cfg *Config, logger *slog.Logger) *Bot {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		cfg:        cfg,
		registry:   NewRegistry(logger),
		channelMgr: channels.NewManager(logger.With("component", "channels")),
		events:     make(chan *Event, 256),
		logger:     logger,
	}
}

// Registry returns the plugin registry.
func (b *Bot) Registry() *Registry { return b.registry }

// ChannelManager returns the channel manager for external registration.
func (b *Bot) ChannelManager() *channels.Manager { return b.channelMgr }

// Config returns the bot configuration.
func (b *Bot) Config() *Config { return b.cfg }

// Start initializes plugins, connects channels, and starts the dispatch loop.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.logger.Info("starting command2llm",
		"name", b.cfg.Name,
		"wake_word", b.cfg.WakeWord,
		"plugins", len(b.registry.Active()),
	)

	// Plugin init hooks run before any message is dispatched.
	for _, p := range b.registry.Active() {
		if init, ok := p.(Initializer); ok {
			if err := init.Init(b.ctx); err != nil {
				return fmt.Errorf("initializing plugin %q: %w", p.Name(), err)
			}
		}
	}

	if err := b.channelMgr.Start(b.ctx); err != nil {
		return fmt.Errorf("starting channels: %w", err)
	}

	go b.receiveLoop()
	go b.dispatchLoop()

	b.logger.Info("command2llm started")
	return nil
}

// Stop shuts down channels and plugins gracefully.
func (b *Bot) Stop() {
	b.logger.Info("stopping command2llm...")

	if b.cancel != nil {
		b.cancel()
	}

	b.channelMgr.Stop()

	for _, p := range b.registry.Active() {
		if term, ok := p.(Terminator); ok {
			term.Terminate()
		}
	}

	b.logger.Info("command2llm stopped")
}

// CommitEvent injects an event into the dispatch queue. This is how a
// plugin executes another plugin's command: forge a wake-word-prefixed
// event and commit it, reusing the normal dispatch machinery.
func (b *Bot) CommitEvent(ev *Event) error {
	select {
	case b.events <- ev:
		return nil
	default:
		return fmt.Errorf("event queue full, dropping event %s", ev.Msg.ID)
	}
}

// Reply sends content back to the chat an event originated from.
// Forged events reply into the original chat, so command output forced by
// the interceptor lands in front of the user.
func (b *Bot) Reply(ev *Event, content string) {
	if content == "" {
		return
	}

	out := &channels.OutgoingMessage{Content: content}
	if !ev.Synthetic {
		out.ReplyTo = ev.Msg.ID
	}

	if err := b.channelMgr.Send(b.context(), ev.Msg.Channel, ev.Msg.ChatID, out); err != nil {
		b.logger.Error("failed to send reply",
			"channel", ev.Msg.Channel,
			"chat_id", ev.Msg.ChatID,
			"error", err,
		)
	}
}

// receiveLoop wraps platform messages as events and queues them.
func (b *Bot) receiveLoop() {
	for {
		select {
		case msg, ok := <-b.channelMgr.Messages():
			if !ok {
				return
			}
			if err := b.CommitEvent(NewEvent(msg)); err != nil {
				b.logger.Warn("dropping incoming message", "error", err)
			}

		case <-b.ctx.Done():
			return
		}
	}
}

// dispatchLoop processes queued events one at a time. Sequential dispatch
// keeps the per-session ordering guarantees interceptors rely on.
func (b *Bot) dispatchLoop() {
	for {
		select {
		case ev := <-b.events:
			b.dispatch(ev)

		case <-b.ctx.Done():
			return
		}
	}
}

// dispatch routes one event: commands first, then the interceptor chain.
func (b *Bot) dispatch(ev *Event) {
	// Gateways echo our own outbound messages back. A reply that happens
	// to start with a command prefix must not re-execute, so own messages
	// are dropped before command dispatch. Forged events keep the original
	// sender identity and pass.
	if ev.FromSelf() {
		return
	}

	start := time.Now()
	logger := b.logger.With(
		"channel", ev.Msg.Channel,
		"session", ev.SessionID,
		"msg_id", ev.Msg.ID,
	)

	content := strings.TrimSpace(ev.Msg.Content)
	if content == "" {
		return
	}

	// ── Step 1: Command dispatch ──
	// Wake-word-prefixed messages resolve against the command registry
	// and never reach the interceptor chain.
	if rest, ok := b.stripWakeWord(content); ok {
		spec, args, found := b.registry.ResolveCommand(rest)
		if !found {
			logger.Debug("no command matched", "input", rest)
			return
		}

		reply, err := spec.Handler(b.context(), ev, args)
		if err != nil {
			logger.Warn("command failed", "command", spec.Name, "error", err)
			b.Reply(ev, fmt.Sprintf("Command %q failed: %v", spec.Name, err))
			return
		}
		b.Reply(ev, reply)

		logger.Info("command dispatched",
			"command", spec.Name,
			"forged", ev.IsForged(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	// ── Step 2: Plugin interceptor chain ──
	for _, p := range b.registry.Active() {
		if err := p.OnMessage(b.context(), ev); err != nil {
			logger.Warn("plugin interceptor error",
				"plugin", p.Name(),
				"error", err,
			)
		}
		if ev.Stopped() {
			logger.Debug("propagation stopped", "plugin", p.Name())
			break
		}
	}
}

// context returns the run context, or Background before Start is called
// (tests drive dispatch directly).
func (b *Bot) context() context.Context {
	if b.ctx != nil {
		return b.ctx
	}
	return context.Background()
}

// stripWakeWord removes the command prefix from content. The configured
// wake word plus the fixed "#" and "!" prefixes all mark commands.
func (b *Bot) stripWakeWord(content string) (string, bool) {
	for _, prefix := range b.commandPrefixes() {
		if strings.HasPrefix(content, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(content, prefix)), true
		}
	}
	return content, false
}

// commandPrefixes returns the configured wake word followed by the fixed
// alternates every platform treats as command markers.
func (b *Bot) commandPrefixes() []string {
	prefixes := []string{"#", "!"}
	if b.cfg.WakeWord != "" && b.cfg.WakeWord != "#" && b.cfg.WakeWord != "!" {
		prefixes = append([]string{b.cfg.WakeWord}, prefixes...)
	}
	return prefixes
}

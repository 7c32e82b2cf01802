// plugin.go implements the interceptor: the OnMessage hook that watches
// free-text messages, runs the intent gate chain, and either lets the
// agent pick a command through the execute_command tool or falls back to
// direct fuzzy dispatch when no LLM is configured.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
	"github.com/vmoranv/command2llm/pkg/command2llm/store"
)

// PluginName is the registry identifier of the interceptor.
const PluginName = "intent"

// agentPromptFmt is the system prompt for the command-selection agent.
// %s is the newline-joined "name#description" command list.
const agentPromptFmt = `你是一个命令调度助手。下面是当前可用的命令列表（格式为 命令名#描述）:

%s

用户的消息在请求执行其中某个命令。选择最匹配的一个命令，通过 execute_command 工具执行它，
然后用一句话告诉用户你执行了什么。如果需要参数，从用户消息中提取。`

// Interceptor is the intent plugin. It implements bot.Plugin plus the
// Initializer and Terminator hooks.
type Interceptor struct {
	host     Host
	cfg      bot.IntentConfig
	wakeWord string

	client     *llm.Client
	classifier *Classifier
	inventory  *Inventory
	store      *store.Store
	logger     *slog.Logger

	enabled atomic.Bool

	// lastSeen records the last free-text message per base session,
	// surfaced by ai_status for debugging gate decisions.
	mu       sync.Mutex
	lastSeen map[string]string
}

// Compile-time interface checks.
var (
	_ bot.Plugin      = (*Interceptor)(nil)
	_ bot.Initializer = (*Interceptor)(nil)
	_ bot.Terminator  = (*Interceptor)(nil)
)

// New creates the interceptor. registry is the host registry the command
// inventory enumerates; st may be nil, which disables the audit log and
// the persistent session latch.
func New(host Host, registry *bot.Registry, client *llm.Client, st *store.Store, cfg bot.IntentConfig, wakeWord string, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "intent")

	p := &Interceptor{
		host:       host,
		cfg:        cfg,
		wakeWord:   wakeWord,
		client:     client,
		classifier: NewClassifier(client, cfg.Keywords, logger),
		inventory:  NewInventory(registry, PluginName, cfg.CacheTTL(), logger),
		store:      st,
		logger:     logger,
		lastSeen:   make(map[string]string),
	}
	p.enabled.Store(cfg.Enabled)
	return p
}

// Name implements bot.Plugin.
func (p *Interceptor) Name() string { return PluginName }

// Description implements bot.Plugin.
func (p *Interceptor) Description() string {
	return "Turns free-text requests into command dispatches"
}

// Commands implements bot.Plugin: the control commands for toggling and
// inspecting the interceptor.
func (p *Interceptor) Commands() []bot.CommandSpec {
	return []bot.CommandSpec{
		{Name: "ai_enable", Description: "启用智能命令识别", Handler: p.cmdEnable},
		{Name: "ai_disable", Description: "禁用智能命令识别", Handler: p.cmdDisable},
		{Name: "ai_status", Description: "查看智能命令识别状态", Handler: p.cmdStatus},
		{Name: "refresh_commands", Description: "刷新命令列表并重置会话", Handler: p.cmdRefresh},
	}
}

// Init warms the inventory cache and starts the background refresher.
func (p *Interceptor) Init(ctx context.Context) error {
	p.inventory.Refresh()
	if err := p.inventory.StartRefresher(p.cfg.RefreshSchedule); err != nil {
		return err
	}
	p.logger.Info("intent interceptor ready",
		"enabled", p.enabled.Load(),
		"threshold", p.cfg.Threshold,
		"llm", p.client.Available(),
	)
	return nil
}

// Terminate stops the background refresher.
func (p *Interceptor) Terminate() {
	p.inventory.StopRefresher()
}

// OnMessage runs the gate chain over a free-text message and dispatches a
// command when the gates agree the user asked for one.
func (p *Interceptor) OnMessage(ctx context.Context, ev *bot.Event) error {
	// ── Gate 1: interceptor toggled off ──
	if !p.enabled.Load() {
		return nil
	}

	// ── Gate 2: our own outbound messages and forged events ──
	// Forged events already went through dispatch once; touching them
	// again would loop.
	if ev.FromSelf() || ev.IsForged() {
		return nil
	}

	content := strings.TrimSpace(ev.Msg.Content)
	if content == "" {
		return nil
	}

	session := ev.BaseSessionID()
	p.mu.Lock()
	p.lastSeen[session] = content
	p.mu.Unlock()

	// ── Gate 3: one dispatch per session ──
	if p.store != nil && p.store.SessionLatched(session) {
		return nil
	}

	// ── Gate 4: keyword heuristic ──
	if !p.classifier.KeywordHit(content) {
		return nil
	}

	names := p.inventory.Names()
	if len(names) == 0 {
		return nil
	}

	if p.client.Available() {
		return p.dispatchAgent(ctx, ev, content)
	}
	return p.dispatchFuzzy(ev, content, names)
}

// dispatchAgent runs the LLM path: yes/no classification, then the tool
// loop in which the model picks a command and executes it.
func (p *Interceptor) dispatchAgent(ctx context.Context, ev *bot.Event, content string) error {
	labels := p.inventory.Labels()

	// ── Gate 5: LLM yes/no ──
	yes, err := p.classifier.Classify(ctx, content, labels)
	if err != nil {
		return err
	}
	if !yes {
		return nil
	}

	var dispatched string
	executor := llm.NewToolExecutor(p.logger)
	executor.SetTimeout(p.cfg.ToolTimeout())

	def, handler := executeCommandTool(p.host, ev, p.inventory, p.wakeWord, func(command string) {
		dispatched = command
	})
	executor.Register(def, handler)

	agent := llm.NewAgent(p.client, executor, p.cfg.MaxSteps, p.logger)
	answer, err := agent.Run(ctx, fmt.Sprintf(agentPromptFmt, strings.Join(labels, "\n")), content)
	if err != nil {
		return fmt.Errorf("intent agent: %w", err)
	}

	if dispatched == "" {
		// The model decided not to call the tool. Let the message flow on.
		p.logger.Debug("agent declined to dispatch", "input", content)
		return nil
	}

	ev.StopPropagation()
	p.latchAndLog(ev, content, dispatched, 0, "agent")
	if answer != "" {
		p.host.Reply(ev, answer)
	}

	p.logger.Info("command dispatched via agent",
		"session", ev.BaseSessionID(),
		"command", dispatched,
	)
	return nil
}

// dispatchFuzzy is the no-LLM fallback: the best fuzzy match over the
// message's first token dispatches directly when it clears the threshold.
func (p *Interceptor) dispatchFuzzy(ev *bot.Event, content string, names []string) error {
	match, ok := BestMatch(content, names)
	if !ok || match.Ratio < p.cfg.Threshold {
		return nil
	}

	// Carry the rest of the message as arguments.
	rest := ""
	if fields := strings.Fields(content); len(fields) > 1 {
		rest = " " + strings.Join(fields[1:], " ")
	}

	forged := bot.Forge(ev, p.wakeWord+match.Command+rest)
	if err := p.host.CommitEvent(forged); err != nil {
		return fmt.Errorf("fuzzy dispatch %q: %w", match.Command, err)
	}

	ev.StopPropagation()
	p.latchAndLog(ev, content, match.Command, match.Ratio, "fuzzy")

	p.logger.Info("command dispatched via fuzzy match",
		"session", ev.BaseSessionID(),
		"command", match.Command,
		"ratio", match.Ratio,
	)
	return nil
}

// latchAndLog records the dispatch in the audit log and latches the
// session. No-op without a store.
func (p *Interceptor) latchAndLog(ev *bot.Event, input, command string, score float64, decidedBy string) {
	if p.store == nil {
		return
	}
	session := ev.BaseSessionID()
	if err := p.store.LatchSession(session); err != nil {
		p.logger.Warn("failed to latch session", "session", session, "error", err)
	}
	p.store.LogDispatch(store.DispatchRecord{
		SessionID: session,
		Input:     input,
		Command:   command,
		Score:     score,
		DecidedBy: decidedBy,
	})
}

// ---------- Control Commands ----------

func (p *Interceptor) cmdEnable(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	p.enabled.Store(true)
	return "智能命令识别已启用", nil
}

func (p *Interceptor) cmdDisable(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	p.enabled.Store(false)
	return "智能命令识别已禁用", nil
}

func (p *Interceptor) cmdStatus(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	state := "禁用"
	if p.enabled.Load() {
		state = "启用"
	}
	llmState := "未配置（使用模糊匹配回退）"
	if p.client.Available() {
		llmState = "已配置"
	}

	dispatches := 0
	if p.store != nil {
		dispatches = p.store.Count()
	}

	p.mu.Lock()
	sessions := len(p.lastSeen)
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "智能命令识别: %s\n", state)
	fmt.Fprintf(&b, "LLM: %s\n", llmState)
	fmt.Fprintf(&b, "可用命令: %d\n", len(p.inventory.Names()))
	fmt.Fprintf(&b, "匹配阈值: %.2f\n", p.cfg.Threshold)
	fmt.Fprintf(&b, "历史调度: %d\n", dispatches)
	fmt.Fprintf(&b, "观察会话: %d", sessions)
	return b.String(), nil
}

func (p *Interceptor) cmdRefresh(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	commands := p.inventory.Refresh()
	if p.store != nil {
		if err := p.store.UnlatchAll(); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("命令列表已刷新（%d 个命令），会话已重置", len(commands)), nil
}

// Package core bundles the baseline chat commands every installation gets:
// command listing, liveness check, channel status, clock, and echo. They
// also give the intent interceptor a non-empty inventory out of the box.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/channels"
)

// HealthReporter exposes channel health for the status command.
type HealthReporter interface {
	HealthAll() map[string]channels.HealthStatus
}

// Plugin implements the baseline commands.
type Plugin struct {
	registry *bot.Registry
	health   HealthReporter
	started  time.Time
}

var _ bot.Plugin = (*Plugin)(nil)

// New creates the core plugin. registry is used by the help command to
// enumerate every active command; health (typically the channel manager)
// backs the status command and may be nil.
func New(registry *bot.Registry, health HealthReporter) *Plugin {
	return &Plugin{
		registry: registry,
		health:   health,
		started:  time.Now(),
	}
}

func (p *Plugin) Name() string        { return "core" }
func (p *Plugin) Description() string { return "Baseline commands" }

func (p *Plugin) Commands() []bot.CommandSpec {
	return []bot.CommandSpec{
		{Name: "help", Description: "列出所有可用命令", Handler: p.cmdHelp},
		{Name: "ping", Description: "连通性测试", Handler: p.cmdPing},
		{Name: "status", Description: "查看通道连接状态", Handler: p.cmdStatus},
		{Name: "时间", Description: "显示当前时间", Handler: p.cmdTime},
		{Name: "echo", Description: "原样返回参数", Handler: p.cmdEcho},
	}
}

// OnMessage is a no-op; core only provides commands.
func (p *Plugin) OnMessage(ctx context.Context, ev *bot.Event) error {
	return nil
}

func (p *Plugin) cmdHelp(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	inventory := p.registry.CommandInventory("")

	var b strings.Builder
	b.WriteString("可用命令:\n")
	for _, c := range inventory {
		fmt.Fprintf(&b, "  %s", c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " - %s", c.Description)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (p *Plugin) cmdPing(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	return fmt.Sprintf("pong (uptime %s)", time.Since(p.started).Round(time.Second)), nil
}

func (p *Plugin) cmdStatus(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "运行时间: %s\n", time.Since(p.started).Round(time.Second))

	if p.health == nil {
		b.WriteString("通道: 无")
		return b.String(), nil
	}

	statuses := p.health.HealthAll()
	if len(statuses) == 0 {
		b.WriteString("通道: 无")
		return b.String(), nil
	}

	// Sorted for stable output.
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := statuses[name]
		state := "未连接"
		if st.Connected {
			state = "已连接"
		}
		fmt.Fprintf(&b, "通道 %s: %s", name, state)
		if st.ErrorCount > 0 {
			fmt.Fprintf(&b, "（连续错误 %d）", st.ErrorCount)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (p *Plugin) cmdTime(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	return time.Now().Format("2006-01-02 15:04:05 MST"), nil
}

func (p *Plugin) cmdEcho(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	if len(args) == 0 {
		return "echo: 没有参数", nil
	}
	return strings.Join(args, " "), nil
}

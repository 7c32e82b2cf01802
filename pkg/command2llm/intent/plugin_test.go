package intent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/channels"
	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
)

// fakeHost records committed events and replies.
type fakeHost struct {
	committed []*bot.Event
	replies   []string
}

func (h *fakeHost) CommitEvent(ev *bot.Event) error {
	h.committed = append(h.committed, ev)
	return nil
}

func (h *fakeHost) Reply(ev *bot.Event, content string) {
	h.replies = append(h.replies, content)
}

// stubPlugin registers fixed commands and ignores messages.
type stubPlugin struct {
	name  string
	specs []bot.CommandSpec
}

func (s *stubPlugin) Name() string                                { return s.name }
func (s *stubPlugin) Description() string                         { return "stub" }
func (s *stubPlugin) Commands() []bot.CommandSpec                 { return s.specs }
func (s *stubPlugin) OnMessage(context.Context, *bot.Event) error { return nil }

func noopHandler(ctx context.Context, ev *bot.Event, args []string) (string, error) {
	return "", nil
}

func testRegistry(t *testing.T) *bot.Registry {
	t.Helper()
	reg := bot.NewRegistry(nil)
	err := reg.Register(&stubPlugin{
		name: "tools",
		specs: []bot.CommandSpec{
			{Name: "天气", Description: "查询天气", Handler: noopHandler},
			{Name: "新闻", Description: "今日新闻", Handler: noopHandler},
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return reg
}

func testInterceptor(t *testing.T, host *fakeHost) *Interceptor {
	t.Helper()
	cfg := bot.IntentConfig{
		Enabled:         true,
		Threshold:       0.6,
		CacheTTLSeconds: 300,
		MaxSteps:        2,
	}
	// Empty API key keeps the client unavailable, forcing the fuzzy path.
	client := llm.NewClient("", "", "test-model", nil)
	return New(host, testRegistry(t), client, nil, cfg, "/", nil)
}

func testEvent(content string) *bot.Event {
	return bot.NewEvent(&channels.IncomingMessage{
		ID:        "m1",
		Channel:   "console",
		From:      "user",
		ChatID:    "c1",
		Content:   content,
		Timestamp: time.Now(),
	})
}

func TestInterceptor_FuzzyDispatch(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	ev := testEvent("天气 北京")
	if err := p.OnMessage(context.Background(), ev); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}

	if len(host.committed) != 1 {
		t.Fatalf("committed = %d events, want 1", len(host.committed))
	}

	forged := host.committed[0]
	if !forged.IsForged() {
		t.Error("committed event IsForged() = false, want true")
	}
	if got, want := forged.Msg.Content, "/天气 北京"; got != want {
		t.Errorf("forged content = %q, want %q", got, want)
	}
	if !ev.Stopped() {
		t.Error("original event propagation not stopped")
	}
}

func TestInterceptor_BelowThresholdNoDispatch(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	// Contains keywords but the first token only half-matches "天气"
	// (ratio 0.5 < threshold 0.6).
	ev := testEvent("天气预报如何")
	if err := p.OnMessage(context.Background(), ev); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}

	if len(host.committed) != 0 {
		t.Errorf("committed = %d events, want 0", len(host.committed))
	}
	if ev.Stopped() {
		t.Error("propagation stopped without a dispatch")
	}
}

func TestInterceptor_NoKeywordNoDispatch(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	if err := p.OnMessage(context.Background(), testEvent("hello world")); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}
	if len(host.committed) != 0 {
		t.Errorf("committed = %d events, want 0", len(host.committed))
	}
}

func TestInterceptor_SkipsForgedEvents(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	forged := bot.Forge(testEvent("天气"), "/天气")
	if err := p.OnMessage(context.Background(), forged); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}
	if len(host.committed) != 0 {
		t.Errorf("committed = %d events, want 0 (forged events must be skipped)", len(host.committed))
	}
}

func TestInterceptor_SkipsOwnMessages(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	ev := testEvent("天气")
	ev.Msg.SelfID = "bot"
	ev.Msg.From = "bot"
	if err := p.OnMessage(context.Background(), ev); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}
	if len(host.committed) != 0 {
		t.Errorf("committed = %d events, want 0 (own messages must be skipped)", len(host.committed))
	}
}

func TestInterceptor_DisabledSkipsEverything(t *testing.T) {
	host := &fakeHost{}
	p := testInterceptor(t, host)

	if _, err := p.cmdDisable(context.Background(), nil, nil); err != nil {
		t.Fatalf("cmdDisable() error = %v", err)
	}
	if err := p.OnMessage(context.Background(), testEvent("天气 北京")); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}
	if len(host.committed) != 0 {
		t.Errorf("committed = %d events, want 0 while disabled", len(host.committed))
	}

	if _, err := p.cmdEnable(context.Background(), nil, nil); err != nil {
		t.Fatalf("cmdEnable() error = %v", err)
	}
	if err := p.OnMessage(context.Background(), testEvent("天气 北京")); err != nil {
		t.Fatalf("OnMessage() error = %v", err)
	}
	if len(host.committed) != 1 {
		t.Errorf("committed = %d events, want 1 after re-enable", len(host.committed))
	}
}

func TestInterceptor_StatusReportsState(t *testing.T) {
	p := testInterceptor(t, &fakeHost{})

	out, err := p.cmdStatus(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("cmdStatus() error = %v", err)
	}
	if !strings.Contains(out, "启用") {
		t.Errorf("status output missing enabled state: %q", out)
	}
	if !strings.Contains(out, "可用命令: 2") {
		t.Errorf("status output missing command count: %q", out)
	}
}

func TestInterceptor_RefreshPicksUpNewCommands(t *testing.T) {
	host := &fakeHost{}
	reg := testRegistry(t)
	cfg := bot.IntentConfig{Enabled: true, Threshold: 0.6, CacheTTLSeconds: 300}
	client := llm.NewClient("", "", "test-model", nil)
	p := New(host, reg, client, nil, cfg, "/", nil)

	if got := len(p.inventory.Names()); got != 2 {
		t.Fatalf("inventory = %d commands, want 2", got)
	}

	err := reg.Register(&stubPlugin{
		name:  "extra",
		specs: []bot.CommandSpec{{Name: "音乐", Description: "播放音乐", Handler: noopHandler}},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	out, err := p.cmdRefresh(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("cmdRefresh() error = %v", err)
	}
	if !strings.Contains(out, "3") {
		t.Errorf("refresh output = %q, want mention of 3 commands", out)
	}
	if got := len(p.inventory.Names()); got != 3 {
		t.Errorf("inventory = %d commands after refresh, want 3", got)
	}
}

package llm

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func call(name, args string) ToolCall {
	return ToolCall{
		ID:       "call_" + name,
		Type:     "function",
		Function: FunctionCall{Name: name, Arguments: args},
	}
}

func TestToolExecutor_Execute(t *testing.T) {
	e := NewToolExecutor(nil)
	e.Register(
		MakeToolDefinition("greet", "greets", nil),
		func(ctx context.Context, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return "hello " + name, nil
		},
	)

	results := e.Execute(context.Background(), []ToolCall{call("greet", `{"name":"world"}`)})
	if len(results) != 1 {
		t.Fatalf("Execute() = %d results, want 1", len(results))
	}
	if results[0].Error != nil {
		t.Fatalf("result error = %v", results[0].Error)
	}
	if results[0].Content != "hello world" {
		t.Errorf("content = %q, want hello world", results[0].Content)
	}
	if results[0].ToolCallID != "call_greet" {
		t.Errorf("ToolCallID = %q, want call_greet", results[0].ToolCallID)
	}
}

func TestToolExecutor_UnknownTool(t *testing.T) {
	e := NewToolExecutor(nil)

	results := e.Execute(context.Background(), []ToolCall{call("missing", "{}")})
	if results[0].Error == nil {
		t.Error("result error = nil for unknown tool, want error")
	}
}

func TestToolExecutor_BadArguments(t *testing.T) {
	e := NewToolExecutor(nil)
	e.Register(MakeToolDefinition("noop", "", nil), func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})

	results := e.Execute(context.Background(), []ToolCall{call("noop", "{broken")})
	if results[0].Error == nil {
		t.Error("result error = nil for invalid JSON arguments, want error")
	}
}

func TestToolExecutor_HandlerError(t *testing.T) {
	e := NewToolExecutor(nil)
	e.Register(MakeToolDefinition("fail", "", nil), func(ctx context.Context, args map[string]any) (any, error) {
		return nil, fmt.Errorf("boom")
	})

	results := e.Execute(context.Background(), []ToolCall{call("fail", "{}")})
	if results[0].Error == nil {
		t.Error("result error = nil, want handler error")
	}
}

func TestToolExecutor_Timeout(t *testing.T) {
	e := NewToolExecutor(nil)
	e.SetTimeout(20 * time.Millisecond)
	e.Register(MakeToolDefinition("slow", "", nil), func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	start := time.Now()
	results := e.Execute(context.Background(), []ToolCall{call("slow", "{}")})
	if results[0].Error == nil {
		t.Error("result error = nil for timed-out tool, want error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("Execute() did not honor the tool timeout")
	}
}

func TestToolExecutor_HasTool(t *testing.T) {
	e := NewToolExecutor(nil)
	if e.HasTool("x") {
		t.Error("HasTool() = true before registration")
	}
	e.Register(MakeToolDefinition("x", "", nil), func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})
	if !e.HasTool("x") {
		t.Error("HasTool() = false after registration")
	}
	if got := len(e.Tools()); got != 1 {
		t.Errorf("Tools() = %d definitions, want 1", got)
	}
}

func TestSanitizeToolName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"execute_command", "execute_command"},
		{"run command!", "run_command"},
		{"a..b", "a_b"},
		{"__x__", "x"},
	}
	for _, tc := range cases {
		if got := sanitizeToolName(tc.in); got != tc.want {
			t.Errorf("sanitizeToolName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatToolOutput(t *testing.T) {
	if got := formatToolOutput(nil); got != "OK" {
		t.Errorf("formatToolOutput(nil) = %q, want OK", got)
	}
	if got := formatToolOutput("plain"); got != "plain" {
		t.Errorf("formatToolOutput(string) = %q, want plain", got)
	}
	if got := formatToolOutput(map[string]int{"n": 1}); got != `{"n":1}` {
		t.Errorf("formatToolOutput(map) = %q, want JSON", got)
	}
}

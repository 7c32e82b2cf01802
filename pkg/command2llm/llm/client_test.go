package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Available(t *testing.T) {
	if NewClient("", "", "m", nil).Available() {
		t.Error("Available() = true without API key, want false")
	}
	if !NewClient("", "key", "m", nil).Available() {
		t.Error("Available() = false with API key, want true")
	}

	var nilClient *Client
	if nilClient.Available() {
		t.Error("Available() = true on nil client, want false")
	}
}

func TestClient_Complete(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  是  "}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 1, "total_tokens": 11},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	out, err := c.Complete(context.Background(), "system prompt", "user message")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "是" {
		t.Errorf("Complete() = %q, want trimmed 是", out)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("request messages = %+v, want system+user", gotReq.Messages)
	}
}

func TestClient_CompleteWithTools_ReturnsToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      "execute_command",
							"arguments": `{"command":"天气 北京"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", nil)
	resp, err := c.CompleteWithTools(context.Background(), []Message{{Role: "user", Content: "帮我查天气"}}, nil)
	if err != nil {
		t.Fatalf("CompleteWithTools() error = %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %d, want 1", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.Function.Name != "execute_command" {
		t.Errorf("tool name = %q, want execute_command", call.Function.Name)
	}
	if call.ID != "call_1" {
		t.Errorf("tool call ID = %q, want call_1", call.ID)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
}

func TestClient_NoAPIKey(t *testing.T) {
	c := NewClient("http://localhost:1", "", "m", nil)
	if _, err := c.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("Complete() error = nil without API key, want error")
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "m", nil)
	if _, err := c.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("Complete() error = nil for HTTP 429, want error")
	}
}

func TestClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "m", nil)
	if _, err := c.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("Complete() error = nil for empty choices, want error")
	}
}

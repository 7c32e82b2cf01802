// agent.go implements the bounded tool-calling loop: send the conversation
// with tool definitions, execute any requested tools, feed results back,
// repeat until the model answers in text or the step budget runs out.
package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxSteps bounds the agent loop when no limit is configured.
const DefaultMaxSteps = 2

// Agent runs a bounded tool loop over a Client and a ToolExecutor.
type Agent struct {
	client   *Client
	executor *ToolExecutor
	maxSteps int
	logger   *slog.Logger
}

// NewAgent creates an agent with the given step budget.
func NewAgent(client *Client, executor *ToolExecutor, maxSteps int, logger *slog.Logger) *Agent {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client:   client,
		executor: executor,
		maxSteps: maxSteps,
		logger:   logger.With("component", "agent"),
	}
}

// Run executes the tool loop and returns the model's final text answer.
// Tool results are appended as tool-role messages between steps. When the
// step budget is exhausted while the model still wants tools, the last
// text content (possibly empty) is returned.
func (a *Agent) Run(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userMessage})

	tools := a.executor.Tools()

	var lastContent string
	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.client.CompleteWithTools(ctx, messages, tools)
		if err != nil {
			return "", fmt.Errorf("agent step %d: %w", step+1, err)
		}

		lastContent = resp.Content

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		// Echo the assistant turn (with its tool calls) before results.
		messages = append(messages, Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := a.executor.Execute(ctx, resp.ToolCalls)
		for _, r := range results {
			messages = append(messages, Message{
				Role:       "tool",
				Content:    r.Content,
				ToolCallID: r.ToolCallID,
			})
		}

		a.logger.Debug("agent step complete",
			"step", step+1,
			"tool_calls", len(resp.ToolCalls),
		)
	}

	a.logger.Warn("agent step budget exhausted", "max_steps", a.maxSteps)
	return lastContent, nil
}

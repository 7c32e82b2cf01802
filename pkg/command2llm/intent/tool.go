// tool.go defines the execute_command tool the agent calls to actually run
// a command: it forges a wake-word-prefixed synthetic event in the
// originating chat and commits it back through the host dispatch queue.
package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
)

// Host is the subset of the bot the interceptor needs: event injection and
// reply routing.
type Host interface {
	CommitEvent(ev *bot.Event) error
	Reply(ev *bot.Event, content string)
}

// executeCommandTool builds the tool definition and handler bound to one
// originating event. onDispatch is invoked with the forged command line so
// the caller can record what was executed.
func executeCommandTool(host Host, origin *bot.Event, inv *Inventory, wakeWord string, onDispatch func(command string)) (llm.ToolDefinition, llm.ToolHandlerFunc) {
	def := llm.MakeToolDefinition(
		"execute_command",
		"执行一个命令。command 为完整命令行（命令名加参数），不要包含唤醒词前缀。",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "要执行的完整命令行，例如 \"天气 北京\"",
				},
			},
			"required": []string{"command"},
		},
	)

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		command, _ := args["command"].(string)
		command = strings.TrimSpace(command)
		if command == "" {
			return nil, fmt.Errorf("command argument is required")
		}

		// The model occasionally echoes the wake word back. Strip it so
		// the forged content carries exactly one prefix.
		command = strings.TrimPrefix(command, wakeWord)
		command = strings.TrimSpace(command)

		if !knownCommand(command, inv.Names()) {
			return nil, fmt.Errorf("unknown command %q", firstToken(command))
		}

		forged := bot.Forge(origin, wakeWord+command)
		if err := host.CommitEvent(forged); err != nil {
			return nil, fmt.Errorf("dispatching command %q: %w", command, err)
		}

		if onDispatch != nil {
			onDispatch(command)
		}
		return fmt.Sprintf("命令 %q 已提交执行，结果会直接发送到会话中。", command), nil
	}

	return def, handler
}

// knownCommand reports whether the command line starts with a registered
// command name. Grouped two-token names are checked before single names,
// mirroring registry resolution.
func knownCommand(commandLine string, names []string) bool {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return false
	}

	candidates := []string{fields[0]}
	if len(fields) >= 2 {
		candidates = append([]string{fields[0] + " " + fields[1]}, candidates...)
	}
	for _, cand := range candidates {
		for _, name := range names {
			if name == cand {
				return true
			}
		}
	}
	return false
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// classifier.go decides whether a free-text message implies a command.
// Two stages: a cheap keyword heuristic that filters obvious chatter, then
// an LLM yes/no call over the command inventory. The LLM answers with a
// single 是/否 token, which keeps parsing trivial and token cost near zero.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vmoranv/command2llm/pkg/command2llm/llm"
)

// DefaultKeywords are the trigger words scanned before any LLM call.
// A message containing none of them is never treated as a command request.
var DefaultKeywords = []string{
	"帮我", "请", "能否", "可以", "能不能",
	"如何", "怎么", "怎样",
	"查看", "搜索", "找", "获取",
	"设置", "配置", "启动", "停止",
	"天气", "时间", "日期", "新闻",
	"音乐", "视频", "图片",
}

// classifyPromptFmt is the system prompt for the yes/no stage. %s is the
// newline-joined "name#description" command list.
const classifyPromptFmt = `你是一个命令识别助手。下面是当前可用的命令列表（格式为 命令名#描述）:

%s

判断用户的消息是否在请求执行上述某个命令的功能。
只回答一个字: 是 或 否。不要输出其他任何内容。`

// Classifier runs the two-stage intent gate.
type Classifier struct {
	client   *llm.Client
	keywords []string
	logger   *slog.Logger
}

// NewClassifier builds a classifier. An empty keyword list falls back to
// DefaultKeywords.
func NewClassifier(client *llm.Client, keywords []string, logger *slog.Logger) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		client:   client,
		keywords: keywords,
		logger:   logger.With("component", "classifier"),
	}
}

// KeywordHit reports whether the message contains any trigger keyword.
func (c *Classifier) KeywordHit(message string) bool {
	for _, kw := range c.keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

// Classify asks the LLM whether the message implies one of the listed
// commands. labels is the "name#description" inventory. Any answer that
// does not start with 是 counts as no.
func (c *Classifier) Classify(ctx context.Context, message string, labels []string) (bool, error) {
	if !c.client.Available() {
		return false, fmt.Errorf("llm client not configured")
	}

	prompt := fmt.Sprintf(classifyPromptFmt, strings.Join(labels, "\n"))
	answer, err := c.client.Complete(ctx, prompt, message)
	if err != nil {
		return false, fmt.Errorf("intent classification: %w", err)
	}

	yes := strings.HasPrefix(strings.TrimSpace(answer), "是")
	c.logger.Debug("intent classified", "answer", strings.TrimSpace(answer), "yes", yes)
	return yes, nil
}

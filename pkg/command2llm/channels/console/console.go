// Package console implements an in-process channel that feeds typed lines
// into the bot and prints replies to stdout. Used by the `chat` REPL and
// by tests that need a real channel without a platform connection.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vmoranv/command2llm/pkg/command2llm/channels"
)

// ChatID is the fixed chat identifier used by the console channel.
const ChatID = "console"

// Console implements channels.Channel backed by an io.Writer.
type Console struct {
	out       io.Writer
	messages  chan *channels.IncomingMessage
	connected atomic.Bool
	lastMsg   atomic.Value // time.Time
	seq       atomic.Int64
}

// New creates a console channel writing replies to out (stdout if nil).
func New(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:      out,
		messages: make(chan *channels.IncomingMessage, 64),
	}
}

// Name returns "console".
func (c *Console) Name() string { return "console" }

// Connect marks the channel as connected.
func (c *Console) Connect(ctx context.Context) error {
	c.connected.Store(true)
	return nil
}

// Disconnect closes the incoming stream.
func (c *Console) Disconnect() error {
	if c.connected.CompareAndSwap(true, false) {
		close(c.messages)
	}
	return nil
}

// Send prints the reply to the configured writer.
func (c *Console) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if !c.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	_, err := fmt.Fprintln(c.out, message.Content)
	return err
}

// Receive returns the incoming messages channel.
func (c *Console) Receive() <-chan *channels.IncomingMessage {
	return c.messages
}

// IsConnected reports the connection state.
func (c *Console) IsConnected() bool { return c.connected.Load() }

// Health returns the channel health status.
func (c *Console) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := c.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     c.connected.Load(),
		LastMessageAt: lastAt,
	}
}

// Push injects a typed line as an incoming message.
func (c *Console) Push(from, content string) error {
	if !c.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	msg := &channels.IncomingMessage{
		ID:        fmt.Sprintf("console-%d", c.seq.Add(1)),
		Channel:   "console",
		From:      from,
		FromName:  from,
		ChatID:    ChatID,
		Content:   content,
		Timestamp: time.Now(),
	}
	c.lastMsg.Store(time.Now())

	select {
	case c.messages <- msg:
		return nil
	default:
		return fmt.Errorf("console: message buffer full")
	}
}

var _ channels.Channel = (*Console)(nil)

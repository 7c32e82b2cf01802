// event.go defines the chat event that flows through command dispatch and
// plugin interceptors, plus the forging of synthetic events: the mechanism
// a plugin uses to execute another plugin's command by re-injecting a
// wake-word-prefixed message through the normal dispatch path.
package bot

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vmoranv/command2llm/pkg/command2llm/channels"
)

// ForgedSuffix marks the session ID of synthetic events so interceptors
// can recognize (and skip) events they forged themselves.
const ForgedSuffix = "::forged"

// Event wraps an incoming message with session identity and propagation
// state while it moves through the dispatch pipeline.
type Event struct {
	// Msg is the underlying platform message.
	Msg *channels.IncomingMessage

	// SessionID identifies the conversation ("channel:chat_id"). Forged
	// events carry the originating session ID plus ForgedSuffix.
	SessionID string

	// Synthetic is true for events forged by a plugin rather than
	// received from a platform.
	Synthetic bool

	// stopped is set once a handler stops propagation.
	stopped atomic.Bool
}

// NewEvent builds an Event for a platform message.
func NewEvent(msg *channels.IncomingMessage) *Event {
	return &Event{
		Msg:       msg,
		SessionID: msg.Channel + ":" + msg.ChatID,
	}
}

// StopPropagation prevents later plugins from seeing this event.
func (e *Event) StopPropagation() {
	e.stopped.Store(true)
}

// Stopped reports whether propagation has been stopped.
func (e *Event) Stopped() bool {
	return e.stopped.Load()
}

// IsForged reports whether this event was forged by a plugin, either via
// the Synthetic flag or the session ID marker.
func (e *Event) IsForged() bool {
	return e.Synthetic || strings.HasSuffix(e.SessionID, ForgedSuffix)
}

// FromSelf reports whether the message was sent by the bot itself.
func (e *Event) FromSelf() bool {
	return e.Msg.SelfID != "" && e.Msg.From == e.Msg.SelfID
}

// BaseSessionID returns the session ID without the forged marker.
func (e *Event) BaseSessionID() string {
	return strings.TrimSuffix(e.SessionID, ForgedSuffix)
}

// Forge builds a synthetic event carrying content as if the original
// sender had typed it in the original chat. The forged event keeps the
// chat and sender identity (so command handlers reply to the right place)
// but gets a fresh message ID and the forged session marker.
func Forge(orig *Event, content string) *Event {
	msg := &channels.IncomingMessage{
		ID:        uuid.NewString(),
		Channel:   orig.Msg.Channel,
		From:      orig.Msg.From,
		FromName:  orig.Msg.FromName,
		ChatID:    orig.Msg.ChatID,
		IsGroup:   orig.Msg.IsGroup,
		SelfID:    orig.Msg.SelfID,
		Content:   content,
		Timestamp: time.Now(),
	}

	return &Event{
		Msg:       msg,
		SessionID: orig.BaseSessionID() + ForgedSuffix,
		Synthetic: true,
	}
}

// Package agent connects to the agent backend over WebSocket. It sends user
// messages and delivers the backend's streamed output events on a channel.
// The package never interprets event payloads beyond framing; interceptors
// decide what happens to them.
package agent

import (
	"encoding/json"
	"time"
)

// EventType discriminates streamed agent events.
type EventType string

// Event types emitted by the agent backend.
const (
	EventText  EventType = "text"
	EventTool  EventType = "tool_use"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one streamed output event. Text carries the delta for EventText,
// the tool name for EventTool, and the error description for EventError.
type Event struct {
	Type  EventType `json:"type"`
	Text  string    `json:"text,omitempty"`
	Model string    `json:"model,omitempty"`
}

// IsTerminal reports whether no further events follow in this turn.
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// envelope is the wire frame for both directions.
type envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// userMessage is the payload for an outgoing "user_message" envelope.
type userMessage struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Model     string `json:"model,omitempty"`
}

// Envelope types on the wire.
const (
	msgUserMessage = "user_message"
	msgEvent       = "event"
)

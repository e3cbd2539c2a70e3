// internal/models/chat.go
package models

import "time"

// Chat event types sent to the browser client. One JSON object per frame.
const (
	EventMessageReceived = "message_received"
	EventTypingIndicator = "typing_indicator"
	EventStreamStart     = "stream_start"
	EventStreamChunk     = "stream_chunk"
	EventStreamFinalize  = "stream_finalize"
	EventError           = "error"
)

// Sender tags carried by message_received events.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// ClientCommand types accepted from the browser client.
const (
	CommandSendMessage = "send_message"
)

// ChatEvent is one outbound protocol event. Fields are populated per type;
// everything optional is omitted from the wire when unset.
type ChatEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Typing    *bool  `json:"typing,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ClientCommand is the inbound client message. send_message is the only
// supported command.
type ClientCommand struct {
	Type string `json:"type" validate:"required,oneof=send_message"`
	Text string `json:"text" validate:"required,max=2000"`
}

// ChatMessage is one role/content pair in the LLM wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewMessageReceivedEvent(text, sender string) ChatEvent {
	return ChatEvent{
		Type:      EventMessageReceived,
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UnixMilli(),
	}
}

func NewTypingEvent(active bool) ChatEvent {
	return ChatEvent{Type: EventTypingIndicator, Typing: &active}
}

func NewStreamStartEvent() ChatEvent {
	return ChatEvent{Type: EventStreamStart, Timestamp: time.Now().UnixMilli()}
}

func NewStreamChunkEvent(text string) ChatEvent {
	return ChatEvent{Type: EventStreamChunk, Text: text}
}

func NewStreamFinalizeEvent() ChatEvent {
	return ChatEvent{Type: EventStreamFinalize}
}

func NewErrorEvent(message string) ChatEvent {
	return ChatEvent{Type: EventError, Message: message}
}

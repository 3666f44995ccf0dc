package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSessionChanged      MessageType = "session.changed"
	TypeAppointmentsChanged MessageType = "appointments.changed"
	TypeSignInExpired       MessageType = "signin.expired"
	TypeLaunchRequested     MessageType = "launch.requested"
	TypeNotification        MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SessionPayload is the payload for session.changed events.
type SessionPayload struct {
	State    string `json:"state"`
	Gate     string `json:"gate"`
	Provider string `json:"provider,omitempty"`
}

// AppointmentsPayload is the payload for appointments.changed events.
type AppointmentsPayload struct {
	Count int `json:"count"`
}

// SignInExpiredPayload is the payload for signin.expired events.
type SignInExpiredPayload struct {
	AttemptID string `json:"attempt_id"`
	Reason    string `json:"reason"`
	CanRetry  bool   `json:"can_retry"`
}

// LaunchPayload is the payload for launch.requested events. The shell
// opens URL with the platform's handler.
type LaunchPayload struct {
	URL    string `json:"url"`
	Scheme string `json:"scheme"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

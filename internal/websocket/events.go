package websocket

import (
	"net/url"

	"go.uber.org/zap"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
	log *zap.Logger
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub, log *zap.Logger) *EventBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBroadcaster{hub: hub, log: log}
}

// BroadcastSessionChanged sends a session state change.
func (b *EventBroadcaster) BroadcastSessionChanged(state, gate, provider string) {
	b.broadcast(NewMessage(TypeSessionChanged, SessionPayload{
		State:    state,
		Gate:     gate,
		Provider: provider,
	}))
}

// BroadcastAppointmentsChanged sends the new appointment count.
func (b *EventBroadcaster) BroadcastAppointmentsChanged(count int) {
	b.broadcast(NewMessage(TypeAppointmentsChanged, AppointmentsPayload{Count: count}))
}

// BroadcastSignInExpired tells the shell a sign-in attempt timed out.
func (b *EventBroadcaster) BroadcastSignInExpired(attemptID, reason string) {
	b.broadcast(NewMessage(TypeSignInExpired, SignInExpiredPayload{
		AttemptID: attemptID,
		Reason:    reason,
		CanRetry:  true,
	}))
}

// BroadcastLaunch asks the shell to open rawURL externally.
func (b *EventBroadcaster) BroadcastLaunch(rawURL string) {
	payload := LaunchPayload{URL: rawURL}
	if u, err := url.Parse(rawURL); err == nil {
		payload.Scheme = u.Scheme
	}
	b.broadcast(NewMessage(TypeLaunchRequested, payload))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.log.Error("encoding websocket message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	b.hub.Broadcast(data)
}

package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alumni-chat-service/internal/models"
)

// Inbound socket event names.
const (
	inboundSendMessage          = "send_message"
	inboundTypingStart          = "typing_start"
	inboundTypingStop           = "typing_stop"
	inboundSetOnlineStatus      = "set_online_status"
	inboundMarkNotificationRead = "mark_notification_read"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
)

// InboundEvent is the closed set of events a client may send. Payloads are
// validated at the boundary before reaching any handler logic.
type InboundEvent interface {
	validate() error
}

// RelayMessage is the live copy of a message already persisted over HTTP.
// The gateway relays it verbatim; it never persists on this path.
type RelayMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// SendMessageEvent asks the gateway to push a persisted message to the
// other participants.
type SendMessageEvent struct {
	ConversationID string       `json:"conversation_id"`
	Message        RelayMessage `json:"message"`
}

func (e SendMessageEvent) validate() error {
	if e.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrMalformedEvent)
	}
	if e.Message.Content == "" {
		return fmt.Errorf("%w: message content is required", ErrMalformedEvent)
	}
	if e.Message.MessageType != "" && !models.ValidMessageType(e.Message.MessageType) {
		return fmt.Errorf("%w: invalid message type %q", ErrMalformedEvent, e.Message.MessageType)
	}
	return nil
}

// TypingStartEvent and TypingStopEvent are pure relays; they never touch
// the store.
type TypingStartEvent struct {
	ConversationID string `json:"conversation_id"`
}

func (e TypingStartEvent) validate() error {
	if e.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrMalformedEvent)
	}
	return nil
}

type TypingStopEvent struct {
	ConversationID string `json:"conversation_id"`
}

func (e TypingStopEvent) validate() error {
	if e.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", ErrMalformedEvent)
	}
	return nil
}

// SetOnlineStatusEvent durably updates the user's presence fields.
type SetOnlineStatusEvent struct {
	Status string `json:"status"`
}

func (e SetOnlineStatusEvent) validate() error {
	if !models.ValidPresenceStatus(e.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrMalformedEvent, e.Status)
	}
	return nil
}

// MarkNotificationReadEvent is acknowledged but has no durable effect.
type MarkNotificationReadEvent struct {
	NotificationID string `json:"notification_id"`
}

func (e MarkNotificationReadEvent) validate() error {
	if e.NotificationID == "" {
		return fmt.Errorf("%w: notification_id is required", ErrMalformedEvent)
	}
	return nil
}

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeInbound parses and validates a raw client frame.
func DecodeInbound(raw []byte) (InboundEvent, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var event InboundEvent
	switch env.Event {
	case inboundSendMessage:
		event = &SendMessageEvent{}
	case inboundTypingStart:
		event = &TypingStartEvent{}
	case inboundTypingStop:
		event = &TypingStopEvent{}
	case inboundSetOnlineStatus:
		event = &SetOnlineStatusEvent{}
	case inboundMarkNotificationRead:
		event = &MarkNotificationReadEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, event); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	if err := event.validate(); err != nil {
		return nil, err
	}
	return event, nil
}

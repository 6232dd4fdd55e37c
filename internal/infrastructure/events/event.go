// Package events carries domain events out of the request path: to RabbitMQ
// for other services and to websocket dashboards.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	MessageReceived     Type = "message.received"
	MessageSent         Type = "message.sent"
	MessageStatus       Type = "message.status"
	BotResponded        Type = "bot.responded"
	BotToggled          Type = "bot.toggled"
	ConversationCreated Type = "conversation.created"
)

const producer = "wabridge"

// Event is something that happened to a conversation.
type Event struct {
	ID             string
	Type           Type
	BusinessID     string
	ConversationID string
	At             time.Time
	Data           any
}

func New(t Type, businessID, conversationID string, data any) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           t,
		BusinessID:     businessID,
		ConversationID: conversationID,
		At:             time.Now().UTC(),
		Data:           data,
	}
}

// Meta is the envelope header shared by every transport.
type Meta struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Time           time.Time `json:"time"`
	Producer       string    `json:"producer"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	BusinessID     string    `json:"business_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Envelope wraps the event for the wire. The conversation id doubles as the
// correlation id so consumers can group a conversation's events.
func (e Event) Envelope() Envelope {
	return Envelope{
		Meta: Meta{
			ID:             e.ID,
			Type:           string(e.Type),
			Time:           e.At,
			Producer:       producer,
			CorrelationID:  e.ConversationID,
			BusinessID:     e.BusinessID,
			ConversationID: e.ConversationID,
		},
		Data: e.Data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

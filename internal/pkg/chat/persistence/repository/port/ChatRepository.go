package repository

import (
	"context"

	chat "go-wabridge/internal/pkg/chat/application/domain"
)

// ChatRepository is the Message Store: the only owner of persisted state.
// Lookups return chat.ErrNotFound when nothing matches.
type ChatRepository interface {
	FindBusinessByNumber(ctx context.Context, number string) (*chat.Business, error)
	GetBusiness(ctx context.Context, id string) (*chat.Business, error)

	// UpsertConversation returns the conversation for (businessID, phone),
	// creating it when missing. created reports whether this call inserted it.
	UpsertConversation(ctx context.Context, businessID, phone string, name *string) (conv *chat.Conversation, created bool, err error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	FindConversationByPhone(ctx context.Context, businessID, phone string) (*chat.Conversation, error)
	// FindLatestConversationByPhone picks the most recently active conversation
	// for the contact across businesses.
	FindLatestConversationByPhone(ctx context.Context, phone string) (*chat.Conversation, error)
	ListConversations(ctx context.Context, businessID string, limit, offset int) ([]chat.Conversation, error)

	// SaveMessage appends m and returns its id and sequence number.
	// A message whose ExternalID is already stored yields chat.ErrDuplicate.
	SaveMessage(ctx context.Context, m chat.Message) (id string, seq int64, err error)
	GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error)
	UpdateMessageStatus(ctx context.Context, externalID string, status chat.DeliveryStatus) (int64, error)

	ApplySummary(ctx context.Context, conversationID string, u chat.SummaryUpdate) error
	SetBotActive(ctx context.Context, conversationID string, active bool) error
	GetBotActive(ctx context.Context, conversationID string) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
}

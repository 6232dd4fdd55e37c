package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch messages of a conversation
type GetMessageInput struct {
	ConversationID string
	Limit          int
	Offset         int
}

// GetMessageUseCase fetches messages for a given conversation, oldest first
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

// Execute returns messages for the conversation honoring limit/offset
func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	id := strings.TrimSpace(in.ConversationID)
	if !chat.IsConversationID(id) {
		return nil, fmt.Errorf("%w: conversationId must be a conversation id", chat.ErrValidation)
	}
	if _, err := uc.Repo.GetConversation(ctx, id); err != nil {
		return nil, storeError(err, "conversation "+id)
	}
	msgs, err := uc.Repo.GetMessagesByConversation(ctx, id, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}

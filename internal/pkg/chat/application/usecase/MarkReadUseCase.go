package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

type MarkReadInput struct {
	ConversationID string
}

// MarkReadUseCase clears the unread counter once an agent opened the conversation.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
}

func NewMarkReadUseCase(repo repository.ChatRepository) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) error {
	id := strings.TrimSpace(in.ConversationID)
	if !chat.IsConversationID(id) {
		return fmt.Errorf("%w: conversationId must be a conversation id", chat.ErrValidation)
	}
	if err := uc.Repo.MarkConversationRead(ctx, id); err != nil {
		return storeError(err, "conversation "+id)
	}
	return nil
}

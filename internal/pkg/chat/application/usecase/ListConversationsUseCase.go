package usecase

import (
	"context"
	"fmt"

	chat "go-wabridge/internal/pkg/chat/application/domain"
)

type ListConversationsInput struct {
	BusinessID string
	Limit      int
	Offset     int
}

// ListConversationsUseCase returns a business' conversations, most recently
// active first. An empty business id means the default business.
type ListConversationsUseCase struct {
	Deps
}

func NewListConversationsUseCase(d Deps) *ListConversationsUseCase {
	return &ListConversationsUseCase{Deps: d}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]chat.Conversation, error) {
	businessID, err := uc.businessOrDefault(in.BusinessID)
	if err != nil {
		return nil, err
	}
	convs, err := uc.Repo.ListConversations(ctx, businessID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return convs, nil
}

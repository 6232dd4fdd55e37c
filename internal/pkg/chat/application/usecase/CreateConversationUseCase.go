package usecase

import (
	"context"
	"fmt"
	"strings"

	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
)

// CreateConversationInput opens a conversation with a contact ahead of any message.
type CreateConversationInput struct {
	BusinessID  string
	PhoneNumber string
	Name        string
}

// CreateConversationUseCase is idempotent: an existing conversation for the
// same contact is returned with created=false.
type CreateConversationUseCase struct {
	Deps
}

func NewCreateConversationUseCase(d Deps) *CreateConversationUseCase {
	return &CreateConversationUseCase{Deps: d}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*chat.Conversation, bool, error) {
	businessID, err := uc.businessOrDefault(in.BusinessID)
	if err != nil {
		return nil, false, err
	}
	phone := chat.NormalizePhone(in.PhoneNumber)
	if phone == "" {
		return nil, false, fmt.Errorf("%w: phoneNumber is required", chat.ErrValidation)
	}
	var name *string
	if n := strings.TrimSpace(in.Name); n != "" {
		name = &n
	}

	conv, created, err := uc.Repo.UpsertConversation(ctx, businessID, phone, name)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if created {
		uc.Events.Emit(ctx, events.New(events.ConversationCreated, businessID, conv.ID, conv))
	}
	return conv, created, nil
}

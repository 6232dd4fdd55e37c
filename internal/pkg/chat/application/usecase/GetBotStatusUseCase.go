package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	chat "go-wabridge/internal/pkg/chat/application/domain"
)

type GetBotStatusInput struct {
	ConversationID string
}

// BotStatus is the answer to "should the bot reply". When the store cannot
// be read the answer defaults to active, Defaulted is set and Err holds the
// cause.
type BotStatus struct {
	Active    bool
	Defaulted bool
	Err       error
}

type GetBotStatusUseCase struct {
	Deps
}

func NewGetBotStatusUseCase(d Deps) *GetBotStatusUseCase {
	return &GetBotStatusUseCase{Deps: d}
}

// Execute returns an error only for invalid input or an unknown conversation.
func (uc *GetBotStatusUseCase) Execute(ctx context.Context, in GetBotStatusInput) (BotStatus, error) {
	ref := strings.TrimSpace(in.ConversationID)
	if ref == "" {
		return BotStatus{}, fmt.Errorf("%w: conversationId is required", chat.ErrValidation)
	}

	if !chat.IsConversationID(ref) {
		conv, err := resolveConversation(ctx, uc.Repo, ref)
		if err != nil {
			return uc.failOpen(ref, err)
		}
		uc.botCache().fill(ctx, conv.ID, conv.BotActive)
		return BotStatus{Active: conv.BotActive}, nil
	}

	cache := uc.botCache()
	if active, ok := cache.get(ctx, ref); ok {
		return BotStatus{Active: active}, nil
	}
	active, err := uc.Repo.GetBotActive(ctx, ref)
	if err != nil {
		return uc.failOpen(ref, storeError(err, "conversation "+ref))
	}
	cache.fill(ctx, ref, active)
	return BotStatus{Active: active}, nil
}

func (uc *GetBotStatusUseCase) failOpen(ref string, err error) (BotStatus, error) {
	if errors.Is(err, chat.ErrNotFound) {
		return BotStatus{}, err
	}
	uc.Log.Warn().Err(err).Str("conversation_id", ref).Msg("bot status unavailable, defaulting to active")
	return BotStatus{Active: true, Defaulted: true, Err: err}, nil
}

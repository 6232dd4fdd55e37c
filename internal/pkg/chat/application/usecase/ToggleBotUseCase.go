package usecase

import (
	"context"
	"fmt"
	"strings"

	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
)

type ToggleBotInput struct {
	ConversationID string
	IsActive       bool
}

type ToggleBotResult struct {
	ConversationID string `json:"conversationId"`
	IsActive       bool   `json:"isActive"`
}

// ToggleBotUseCase sets the bot flag explicitly. It races with the relay's
// implicit deactivation and the last write wins.
type ToggleBotUseCase struct {
	Deps
}

func NewToggleBotUseCase(d Deps) *ToggleBotUseCase {
	return &ToggleBotUseCase{Deps: d}
}

func (uc *ToggleBotUseCase) Execute(ctx context.Context, in ToggleBotInput) (*ToggleBotResult, error) {
	ref := strings.TrimSpace(in.ConversationID)
	if ref == "" {
		return nil, fmt.Errorf("%w: conversationId is required", chat.ErrValidation)
	}

	conv, err := resolveConversation(ctx, uc.Repo, ref)
	if err != nil {
		return nil, err
	}
	if err := uc.Repo.SetBotActive(ctx, conv.ID, in.IsActive); err != nil {
		return nil, storeError(err, "conversation "+conv.ID)
	}
	uc.botCache().store(ctx, conv.ID, in.IsActive)
	uc.Metrics.ObserveBotToggle("api", in.IsActive)
	uc.Events.Emit(ctx, events.New(events.BotToggled, conv.BusinessID, conv.ID, map[string]any{
		"isActive": in.IsActive,
		"source":   "api",
	}))

	uc.Log.Info().Str("conversation_id", conv.ID).Bool("active", in.IsActive).Msg("bot toggled")
	return &ToggleBotResult{ConversationID: conv.ID, IsActive: in.IsActive}, nil
}

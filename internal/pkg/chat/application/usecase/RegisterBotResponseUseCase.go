package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
)

// RegisterBotResponseInput identifies the conversation by store id or by the
// contact's phone number.
type RegisterBotResponseInput struct {
	ConversationID string
	Message        string
	Timestamp      *time.Time
}

type RegisterBotResponseResult struct {
	MessageID           string `json:"messageId"`
	ConversationID      string `json:"conversationId"`
	ConversationUpdated bool   `json:"conversationUpdated"`
}

// RegisterBotResponseUseCase records a reply produced by the external bot.
// The message write is the contract; the summary update is best effort.
type RegisterBotResponseUseCase struct {
	Deps
}

func NewRegisterBotResponseUseCase(d Deps) *RegisterBotResponseUseCase {
	return &RegisterBotResponseUseCase{Deps: d}
}

func (uc *RegisterBotResponseUseCase) Execute(ctx context.Context, in RegisterBotResponseInput) (*RegisterBotResponseResult, error) {
	res, err := uc.execute(ctx, in)
	if err != nil {
		uc.Metrics.ObserveBotResponse(outcomeOf(err))
		return nil, err
	}
	outcome := "ok"
	if !res.ConversationUpdated {
		outcome = "summary_deferred"
	}
	uc.Metrics.ObserveBotResponse(outcome)
	return res, nil
}

func (uc *RegisterBotResponseUseCase) execute(ctx context.Context, in RegisterBotResponseInput) (*RegisterBotResponseResult, error) {
	ref := strings.TrimSpace(in.ConversationID)
	text := strings.TrimSpace(in.Message)
	if ref == "" || text == "" {
		return nil, fmt.Errorf("%w: conversationId and message are required", chat.ErrValidation)
	}

	conv, err := resolveConversation(ctx, uc.Repo, ref)
	if err != nil {
		return nil, err
	}

	draft := chat.Message{
		ConversationID: conv.ID,
		Content:        text,
		MsgType:        chat.MessageTypeText,
		Sender:         chat.SenderBot,
		Status:         chat.StatusSent,
		Read:           true,
	}
	if in.Timestamp != nil {
		draft.CreatedAt = in.Timestamp.UTC()
	}
	msg, err := chat.NewMessage(draft)
	if err != nil {
		return nil, err
	}
	id, seq, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID, msg.Seq = id, seq

	updated := true
	update := chat.SummaryUpdate{LastMessage: msg.Preview(), LastMessageAt: msg.CreatedAt}
	if err := uc.Repo.ApplySummary(ctx, conv.ID, update); err != nil {
		updated = false
		uc.Log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("bot response summary update failed, deferring")
		uc.scheduleSummary(ctx, conv.ID, update)
	}

	uc.Events.Emit(ctx, events.New(events.BotResponded, conv.BusinessID, conv.ID, msg))

	return &RegisterBotResponseResult{
		MessageID:           msg.ID,
		ConversationID:      conv.ID,
		ConversationUpdated: updated,
	}, nil
}

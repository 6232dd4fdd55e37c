package usecase

import (
	"context"
	"fmt"
	"time"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

type RefreshSummaryInput struct {
	ConversationID string
	Update         chat.SummaryUpdate
}

// RefreshSummaryUseCase re-applies a summary update that failed in the
// request path. The monotonic update makes a late apply harmless. The unread
// delta is not monotonic, so it is dropped when the conversation already
// carries this exact update: the failed write committed after all.
type RefreshSummaryUseCase struct {
	Repo repository.ChatRepository
}

func NewRefreshSummaryUseCase(repo repository.ChatRepository) *RefreshSummaryUseCase {
	return &RefreshSummaryUseCase{Repo: repo}
}

func (uc *RefreshSummaryUseCase) Execute(ctx context.Context, in RefreshSummaryInput) error {
	if in.ConversationID == "" {
		return fmt.Errorf("%w: conversationId is required", chat.ErrValidation)
	}
	u := in.Update
	if u.UnreadDelta != 0 && alreadyApplied(ctx, uc.Repo, in.ConversationID, u) {
		u.UnreadDelta = 0
	}
	if err := uc.Repo.ApplySummary(ctx, in.ConversationID, u); err != nil {
		return storeError(err, "conversation "+in.ConversationID)
	}
	return nil
}

func alreadyApplied(ctx context.Context, repo repository.ChatRepository, conversationID string, u chat.SummaryUpdate) bool {
	conv, err := repo.GetConversation(ctx, conversationID)
	if err != nil || conv.LastMessageAt == nil || conv.LastMessage == nil {
		return false
	}
	// timestamptz keeps microseconds
	same := conv.LastMessageAt.Truncate(time.Microsecond).Equal(u.LastMessageAt.Truncate(time.Microsecond))
	return same && *conv.LastMessage == u.LastMessage
}

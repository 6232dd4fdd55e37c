package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	qport "go-wabridge/internal/infrastructure/queue/port"
	chat "go-wabridge/internal/pkg/chat/application/domain"
	"go-wabridge/internal/pkg/chat/application/usecase"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

// RefreshSummaryTaskType is the queue task name for re-applying a conversation summary.
const RefreshSummaryTaskType = "chat:refresh_summary"

// RefreshSummaryTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type RefreshSummaryTaskPayload struct {
	ConversationID string    `json:"conversationId"`
	LastMessage    string    `json:"lastMessage"`
	LastMessageAt  time.Time `json:"lastMessageAt"`
	UnreadDelta    int       `json:"unreadDelta"`
	DeactivateBot  bool      `json:"deactivateBot"`
}

// Scheduler enqueues summary refreshes; it satisfies usecase.SummaryRefresher.
type Scheduler struct {
	Q qport.Client
}

func NewScheduler(client qport.Client) *Scheduler {
	return &Scheduler{Q: client}
}

var _ usecase.SummaryRefresher = (*Scheduler)(nil)

func (s *Scheduler) ScheduleSummary(ctx context.Context, conversationID string, u chat.SummaryUpdate) error {
	b, err := json.Marshal(RefreshSummaryTaskPayload{
		ConversationID: conversationID,
		LastMessage:    u.LastMessage,
		LastMessageAt:  u.LastMessageAt,
		UnreadDelta:    u.UnreadDelta,
		DeactivateBot:  u.DeactivateBot,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// a short delay gives a struggling database room before the first retry
	opts := qport.EnqueueOption{Queue: "chat", MaxRetry: 20, ProcessIn: 5 * time.Second}
	_, err = s.Q.Enqueue(ctx, qport.Task{Type: RefreshSummaryTaskType, Payload: b}, opts)
	return err
}

// RegisterRefreshSummaryTask binds the task handler to the provided server.
func RegisterRefreshSummaryTask(srv qport.Server, repo repository.ChatRepository, log zerolog.Logger) {
	uc := usecase.NewRefreshSummaryUseCase(repo)
	srv.Register(RefreshSummaryTaskType, func(ctx context.Context, t qport.Task) error {
		var p RefreshSummaryTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying cannot fix it
			log.Error().Err(err).Msg("drop malformed summary task")
			return nil
		}

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err := uc.Execute(ctx, usecase.RefreshSummaryInput{
			ConversationID: p.ConversationID,
			Update: chat.SummaryUpdate{
				LastMessage:   p.LastMessage,
				LastMessageAt: p.LastMessageAt,
				UnreadDelta:   p.UnreadDelta,
				DeactivateBot: p.DeactivateBot,
			},
		})
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrValidation) {
			log.Warn().Err(err).Str("conversation_id", p.ConversationID).Msg("drop summary task")
			return nil
		}
		// persistence errors are retried per the server's backoff policy
		return err
	})
}

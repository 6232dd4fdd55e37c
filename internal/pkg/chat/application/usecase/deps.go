package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cacheport "go-wabridge/internal/infrastructure/cache/port"
	"go-wabridge/internal/infrastructure/events"
	"go-wabridge/internal/infrastructure/metrics"
	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"
)

// SummaryRefresher retries a summary update out of band.
type SummaryRefresher interface {
	ScheduleSummary(ctx context.Context, conversationID string, u chat.SummaryUpdate) error
}

// Deps bundles the collaborators shared by the chat use cases.
// Cache, Refresher, Events and Metrics may be nil.
type Deps struct {
	Repo              repository.ChatRepository
	Cache             cacheport.Cache
	Refresher         SummaryRefresher
	Events            *events.Dispatcher
	Metrics           *metrics.Metrics
	Log               zerolog.Logger
	DefaultBusinessID string
	BotStatusTTL      time.Duration
}

func (d Deps) botCache() botStatusCache {
	return botStatusCache{cache: d.Cache, ttl: d.BotStatusTTL, log: d.Log}
}

// businessOrDefault picks the requested business, falling back to the
// configured default. The result must be a store id.
func (d Deps) businessOrDefault(requested string) (string, error) {
	id := strings.TrimSpace(requested)
	if id == "" {
		id = d.DefaultBusinessID
	}
	if id == "" {
		return "", fmt.Errorf("%w: businessId is required", chat.ErrValidation)
	}
	if !isStoreID(id) {
		return "", fmt.Errorf("%w: businessId %q is not a valid id", chat.ErrValidation, id)
	}
	return id, nil
}

// resolveConversation loads a conversation by store id, or by the contact
// phone number when ref is not an id.
func resolveConversation(ctx context.Context, repo repository.ChatRepository, ref string) (*chat.Conversation, error) {
	ref = strings.TrimSpace(ref)
	var (
		conv *chat.Conversation
		err  error
	)
	if chat.IsConversationID(ref) {
		conv, err = repo.GetConversation(ctx, ref)
	} else {
		phone := chat.NormalizePhone(ref)
		if phone == "" {
			return nil, fmt.Errorf("%w: conversation %q", chat.ErrNotFound, ref)
		}
		conv, err = repo.FindLatestConversationByPhone(ctx, phone)
	}
	if err != nil {
		return nil, storeError(err, "conversation "+ref)
	}
	return conv, nil
}

// storeError keeps not-found distinguishable and folds the rest into ErrPersistence.
func storeError(err error, what string) error {
	if errors.Is(err, chat.ErrNotFound) {
		return fmt.Errorf("%w: %s", chat.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// scheduleSummary hands a failed summary update to the refresher. It reports
// whether the retry was queued.
func (d Deps) scheduleSummary(ctx context.Context, conversationID string, u chat.SummaryUpdate) bool {
	if d.Refresher == nil {
		d.Log.Error().Str("conversation_id", conversationID).Msg("summary update lost: no task queue")
		return false
	}
	if err := d.Refresher.ScheduleSummary(context.WithoutCancel(ctx), conversationID, u); err != nil {
		d.Log.Error().Err(err).Str("conversation_id", conversationID).Msg("schedule summary refresh")
		return false
	}
	return true
}

func isStoreID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
)

const defaultDedupeTTL = 24 * time.Hour

// WebhookKind classifies what the receiver did with an event.
type WebhookKind string

const (
	WebhookMessage WebhookKind = "message"
	WebhookStatus  WebhookKind = "status"
)

type ReceiveWebhookInput struct {
	Payload WebhookPayload
}

type ReceiveWebhookResult struct {
	Kind                WebhookKind
	Duplicate           bool
	ConversationID      string
	MessageID           string
	ConversationCreated bool
	StatusUpdated       int64
}

// ReceiveWebhookUseCase ingests BSP callbacks: inbound messages become
// user messages, delivery events update stored message status.
type ReceiveWebhookUseCase struct {
	Deps
	DedupeTTL time.Duration
}

func NewReceiveWebhookUseCase(d Deps, dedupeTTL time.Duration) *ReceiveWebhookUseCase {
	if dedupeTTL <= 0 {
		dedupeTTL = defaultDedupeTTL
	}
	return &ReceiveWebhookUseCase{Deps: d, DedupeTTL: dedupeTTL}
}

func (uc *ReceiveWebhookUseCase) Execute(ctx context.Context, in ReceiveWebhookInput) (*ReceiveWebhookResult, error) {
	kind := in.Payload.EventType()
	switch {
	case kind == "":
		uc.Metrics.ObserveWebhook("unknown", "invalid")
		return nil, fmt.Errorf("%w: event type is required", chat.ErrValidation)
	case statusKinds[kind]:
		return uc.status(ctx, kind, in.Payload)
	case kind == "message":
		return uc.message(ctx, chat.MessageTypeText, in.Payload)
	}
	if msgType, ok := chat.ParseMessageType(kind); ok {
		return uc.message(ctx, msgType, in.Payload)
	}
	uc.Metrics.ObserveWebhook("unknown", "invalid")
	uc.Log.Warn().Str("type", kind).Str("app", in.Payload.App).Msg("unsupported webhook event")
	return nil, fmt.Errorf("%w: unsupported event type %q", chat.ErrValidation, kind)
}

func (uc *ReceiveWebhookUseCase) message(ctx context.Context, msgType chat.MessageType, p WebhookPayload) (*ReceiveWebhookResult, error) {
	body := p.Body()
	phone := chat.NormalizePhone(p.SourcePhone())
	if body == "" || phone == "" {
		uc.Metrics.ObserveWebhook("message", "invalid")
		return nil, fmt.Errorf("%w: message body and source are required", chat.ErrValidation)
	}

	businessID, err := uc.routeBusiness(ctx, p.DestinationNumber())
	if err != nil {
		uc.Metrics.ObserveWebhook("message", outcomeOf(err))
		return nil, err
	}

	eventID := strings.TrimSpace(p.Payload.ID)
	if eventID != "" {
		claimed := uc.claim(ctx, eventID)
		if !claimed {
			uc.Metrics.ObserveWebhook("message", "duplicate")
			return &ReceiveWebhookResult{Kind: WebhookMessage, Duplicate: true}, nil
		}
	}

	res, err := uc.store(ctx, businessID, phone, msgType, body, p)
	if err != nil {
		if eventID != "" {
			// let the BSP redelivery through
			uc.release(ctx, eventID)
		}
		uc.Metrics.ObserveWebhook("message", outcomeOf(err))
		return nil, err
	}
	if res.Duplicate {
		uc.Metrics.ObserveWebhook("message", "duplicate")
		return res, nil
	}
	uc.Metrics.ObserveWebhook("message", "ok")
	return res, nil
}

func (uc *ReceiveWebhookUseCase) store(ctx context.Context, businessID, phone string, msgType chat.MessageType, body string, p WebhookPayload) (*ReceiveWebhookResult, error) {
	var name *string
	if n := p.SenderName(); n != "" {
		name = &n
	}
	conv, created, err := uc.Repo.UpsertConversation(ctx, businessID, phone, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	draft := chat.Message{
		ConversationID: conv.ID,
		Content:        body,
		MsgType:        msgType,
		Sender:         chat.SenderUser,
		Status:         chat.StatusDelivered,
		Read:           false,
	}
	if u := p.MediaURL(); u != "" {
		draft.MediaURL = &u
	}
	if id := strings.TrimSpace(p.Payload.ID); id != "" {
		draft.ExternalID = &id
	}
	if ts, ok := chat.ParseTimestamp(string(p.Timestamp)); ok {
		draft.CreatedAt = ts
	}
	msg, err := chat.NewMessage(draft)
	if err != nil {
		return nil, err
	}

	id, seq, err := uc.Repo.SaveMessage(ctx, *msg)
	if errors.Is(err, chat.ErrDuplicate) {
		return &ReceiveWebhookResult{Kind: WebhookMessage, Duplicate: true, ConversationID: conv.ID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID, msg.Seq = id, seq

	update := chat.SummaryUpdate{LastMessage: msg.Preview(), LastMessageAt: msg.CreatedAt, UnreadDelta: 1}
	if err := uc.Repo.ApplySummary(ctx, conv.ID, update); err != nil {
		// the message row exists, so a redelivery is acked as duplicate;
		// the summary has to be completed by the worker
		uc.scheduleSummary(ctx, conv.ID, update)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if created {
		uc.Events.Emit(ctx, events.New(events.ConversationCreated, businessID, conv.ID, conv))
	}
	uc.Events.Emit(ctx, events.New(events.MessageReceived, businessID, conv.ID, msg))

	uc.Log.Info().
		Str("conversation_id", conv.ID).
		Str("message_id", msg.ID).
		Bool("conversation_created", created).
		Msg("inbound message stored")

	return &ReceiveWebhookResult{
		Kind:                WebhookMessage,
		ConversationID:      conv.ID,
		MessageID:           msg.ID,
		ConversationCreated: created,
	}, nil
}

func (uc *ReceiveWebhookUseCase) status(ctx context.Context, kind string, p WebhookPayload) (*ReceiveWebhookResult, error) {
	res := &ReceiveWebhookResult{Kind: WebhookStatus}
	status, known := chat.ParseDeliveryStatus(kind)
	ref := p.CorrelationID()
	if !known || ref == "" {
		uc.Metrics.ObserveWebhook("status", "ignored")
		return res, nil
	}

	n, err := uc.Repo.UpdateMessageStatus(ctx, ref, status)
	if err != nil {
		// status events are acked regardless; a later event carries the state forward
		uc.Log.Warn().Err(err).Str("external_id", ref).Str("status", string(status)).Msg("update message status")
		uc.Metrics.ObserveWebhook("status", "error")
		return res, nil
	}
	res.StatusUpdated = n
	if n > 0 {
		uc.Events.Emit(ctx, events.New(events.MessageStatus, "", "", map[string]string{
			"externalId": ref,
			"status":     string(status),
		}))
	}
	uc.Metrics.ObserveWebhook("status", "ok")
	return res, nil
}

// routeBusiness maps the receiving number to a business, falling back to
// the configured default.
func (uc *ReceiveWebhookUseCase) routeBusiness(ctx context.Context, destination string) (string, error) {
	if normalized := chat.NormalizePhone(destination); normalized != "" {
		for _, candidate := range []string{normalized, chat.ProviderPhone(normalized)} {
			b, err := uc.Repo.FindBusinessByNumber(ctx, candidate)
			if err == nil {
				return b.ID, nil
			}
			if !errors.Is(err, chat.ErrNotFound) {
				return "", fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
		uc.Log.Debug().Str("destination", destination).Msg("no business for destination, using default")
	}
	if uc.DefaultBusinessID == "" {
		return "", fmt.Errorf("%w: no business for destination %q and no default configured", chat.ErrValidation, destination)
	}
	return uc.DefaultBusinessID, nil
}

func dedupeKey(eventID string) string {
	return "webhook:event:" + eventID
}

// claim reports whether this delivery is the first for eventID. An
// unavailable cache lets the event through; the unique external id still
// rejects a second insert.
func (uc *ReceiveWebhookUseCase) claim(ctx context.Context, eventID string) bool {
	if uc.Cache == nil {
		return true
	}
	ok, err := uc.Cache.SetNX(ctx, dedupeKey(eventID), "1", uc.DedupeTTL)
	if err != nil {
		uc.Log.Warn().Err(err).Str("event_id", eventID).Msg("webhook dedupe unavailable")
		return true
	}
	return ok
}

func (uc *ReceiveWebhookUseCase) release(ctx context.Context, eventID string) {
	if uc.Cache == nil {
		return
	}
	if _, err := uc.Cache.Del(context.WithoutCancel(ctx), dedupeKey(eventID)); err != nil {
		uc.Log.Warn().Err(err).Str("event_id", eventID).Msg("release webhook claim")
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return "invalid"
	case errors.Is(err, chat.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstreamAuth):
		return "auth"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}

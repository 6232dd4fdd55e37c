package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-wabridge/internal/infrastructure/bsp"
	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
)

// SenderDefaults are used for whatever the business record does not provide.
type SenderDefaults struct {
	SourceNumber string
	AppName      string
	APIKey       string
}

type RelayMessageInput struct {
	PhoneNumber    string
	Message        string
	ConversationID string
	Type           string
	MediaURL       string
}

type RelayMessageResult struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ExternalID     string `json:"externalId"`
	BotActive      bool   `json:"botActive"`
}

// RelayMessageUseCase forwards a dashboard message to the BSP and records it.
// A human message always turns the conversation's bot off.
type RelayMessageUseCase struct {
	Deps
	Sender   bsp.Sender
	Defaults SenderDefaults
}

func NewRelayMessageUseCase(d Deps, sender bsp.Sender, defaults SenderDefaults) *RelayMessageUseCase {
	return &RelayMessageUseCase{Deps: d, Sender: sender, Defaults: defaults}
}

func (uc *RelayMessageUseCase) Execute(ctx context.Context, in RelayMessageInput) (*RelayMessageResult, error) {
	res, err := uc.execute(ctx, in)
	if err != nil {
		uc.Metrics.ObserveRelay(outcomeOf(err))
		return nil, err
	}
	uc.Metrics.ObserveRelay("ok")
	return res, nil
}

func (uc *RelayMessageUseCase) execute(ctx context.Context, in RelayMessageInput) (*RelayMessageResult, error) {
	text := strings.TrimSpace(in.Message)
	if strings.TrimSpace(in.PhoneNumber) == "" || text == "" {
		return nil, fmt.Errorf("%w: phoneNumber and message are required", chat.ErrValidation)
	}
	phone := chat.NormalizePhone(in.PhoneNumber)
	if phone == "" {
		return nil, fmt.Errorf("%w: phoneNumber %q has no digits", chat.ErrValidation, in.PhoneNumber)
	}
	msgType := chat.MessageTypeText
	if in.Type != "" {
		t, ok := chat.ParseMessageType(in.Type)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported message type %q", chat.ErrValidation, in.Type)
		}
		msgType = t
	}
	mediaURL := strings.TrimSpace(in.MediaURL)
	if mediaURL != "" && msgType == chat.MessageTypeText {
		msgType = chat.MessageTypeImage
	}

	conv, businessID, err := uc.target(ctx, strings.TrimSpace(in.ConversationID), phone)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		phone = conv.ContactPhone
	}

	business, err := uc.Repo.GetBusiness(ctx, businessID)
	if err != nil && !errors.Is(err, chat.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	sent, err := uc.Sender.Send(ctx, uc.sendRequest(business, phone, text, mediaURL))
	if err != nil {
		uc.Log.Error().Err(err).Str("destination", phone).Str("business_id", businessID).Msg("bsp send failed")
		if errors.Is(err, bsp.ErrAuth) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	created := false
	if conv == nil {
		conv, created, err = uc.Repo.UpsertConversation(ctx, businessID, phone, nil)
		if err != nil {
			return nil, uc.unrecorded(sent.MessageID, err)
		}
	}

	draft := chat.Message{
		ConversationID: conv.ID,
		Content:        text,
		MsgType:        msgType,
		Sender:         chat.SenderBusiness,
		Status:         chat.StatusSent,
		Read:           true,
		ExternalID:     &sent.MessageID,
	}
	if mediaURL != "" {
		draft.MediaURL = &mediaURL
	}
	msg, err := chat.NewMessage(draft)
	if err != nil {
		return nil, uc.unrecorded(sent.MessageID, err)
	}
	id, seq, err := uc.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, uc.unrecorded(sent.MessageID, err)
	}
	msg.ID, msg.Seq = id, seq

	update := chat.SummaryUpdate{LastMessage: msg.Preview(), LastMessageAt: msg.CreatedAt, DeactivateBot: true}
	if err := uc.Repo.ApplySummary(ctx, conv.ID, update); err != nil {
		return nil, uc.unrecorded(sent.MessageID, err)
	}
	uc.botCache().store(ctx, conv.ID, false)
	if conv.BotActive {
		uc.Metrics.ObserveBotToggle("relay", false)
		uc.Events.Emit(ctx, events.New(events.BotToggled, conv.BusinessID, conv.ID, map[string]any{
			"isActive": false,
			"source":   "relay",
		}))
	}

	if created {
		uc.Events.Emit(ctx, events.New(events.ConversationCreated, conv.BusinessID, conv.ID, conv))
	}
	uc.Events.Emit(ctx, events.New(events.MessageSent, conv.BusinessID, conv.ID, msg))

	uc.Log.Info().
		Str("conversation_id", conv.ID).
		Str("message_id", msg.ID).
		Str("external_id", sent.MessageID).
		Msg("outbound message relayed")

	return &RelayMessageResult{
		MessageID:      msg.ID,
		ConversationID: conv.ID,
		ExternalID:     sent.MessageID,
		BotActive:      false,
	}, nil
}

// unrecorded wraps a store failure that happened after the BSP accepted the
// message. Callers must not resend it.
func (uc *RelayMessageUseCase) unrecorded(externalID string, err error) error {
	uc.Log.Error().Err(err).Str("external_id", externalID).Msg("message sent but not recorded")
	if !errors.Is(err, chat.ErrValidation) {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &SentNotRecordedError{ExternalID: externalID, Err: err}
}

// target resolves the conversation to write to. An explicit conversation id
// wins; otherwise the default business is used and the conversation may not
// exist yet.
func (uc *RelayMessageUseCase) target(ctx context.Context, conversationID, phone string) (*chat.Conversation, string, error) {
	if conversationID != "" && chat.IsConversationID(conversationID) {
		conv, err := uc.Repo.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, "", storeError(err, "conversation "+conversationID)
		}
		return conv, conv.BusinessID, nil
	}

	businessID, err := uc.businessOrDefault("")
	if err != nil {
		return nil, "", fmt.Errorf("%w: conversationId is required when no default business is configured", chat.ErrValidation)
	}
	conv, err := uc.Repo.FindConversationByPhone(ctx, businessID, phone)
	if errors.Is(err, chat.ErrNotFound) {
		return nil, businessID, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return conv, businessID, nil
}

func (uc *RelayMessageUseCase) sendRequest(b *chat.Business, phone, text, mediaURL string) bsp.SendRequest {
	source, name, key := uc.Defaults.SourceNumber, uc.Defaults.AppName, uc.Defaults.APIKey
	if b != nil {
		if b.WhatsAppNumber != "" {
			source = b.WhatsAppNumber
		}
		if b.Name != "" {
			name = b.Name
		}
		if b.APIKey != "" {
			key = b.APIKey
		}
	}
	return bsp.SendRequest{
		APIKey:      key,
		Source:      chat.ProviderPhone(chat.NormalizePhone(source)),
		Destination: chat.ProviderPhone(phone),
		AppName:     name,
		Text:        text,
		MediaURL:    mediaURL,
	}
}

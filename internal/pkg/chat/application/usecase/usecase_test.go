package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"go-wabridge/internal/infrastructure/bsp"
	cacheAdapter "go-wabridge/internal/infrastructure/cache/adapter"
	"go-wabridge/internal/infrastructure/events"
	chat "go-wabridge/internal/pkg/chat/application/domain"
	repoAdapter "go-wabridge/internal/pkg/chat/persistence/repository/adapter"
)

type fakeSender struct {
	got  []bsp.SendRequest
	err  error
	next int
}

func (s *fakeSender) Send(_ context.Context, req bsp.SendRequest) (*bsp.SendResult, error) {
	s.got = append(s.got, req)
	if s.err != nil {
		return nil, s.err
	}
	s.next++
	return &bsp.SendResult{MessageID: fmt.Sprintf("gs-%d", s.next), Status: "submitted"}, nil
}

type fakeRefresher struct {
	scheduled []string
}

func (f *fakeRefresher) ScheduleSummary(_ context.Context, conversationID string, _ chat.SummaryUpdate) error {
	f.scheduled = append(f.scheduled, conversationID)
	return nil
}

type recordingPublisher struct {
	types []events.Type
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.types = append(p.types, ev.Type)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	repo     *repoAdapter.MemoryChatRepository
	cache    *cacheAdapter.MemoryCache
	refresh  *fakeRefresher
	pub      *recordingPublisher
	business chat.Business
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    repoAdapter.NewMemoryChatRepository(),
		cache:   cacheAdapter.NewMemoryCache(),
		refresh: &fakeRefresher{},
		pub:     &recordingPublisher{},
	}
	f.business = f.repo.AddBusiness(chat.Business{Name: "Acme", WhatsAppNumber: "+15550001", APIKey: "biz-key"})
	f.deps = Deps{
		Repo:              f.repo,
		Cache:             f.cache,
		Refresher:         f.refresh,
		Events:            events.NewDispatcher(f.pub, zerolog.Nop(), nil),
		Log:               zerolog.Nop(),
		DefaultBusinessID: f.business.ID,
	}
	return f
}

func (f *fixture) conversation(t *testing.T, phone string) *chat.Conversation {
	t.Helper()
	conv, _, err := f.repo.UpsertConversation(context.Background(), f.business.ID, phone, nil)
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func payload(t *testing.T, raw string) WebhookPayload {
	t.Helper()
	var p WebhookPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWebhookInboundMessage(t *testing.T) {
	f := newFixture(t)
	uc := NewReceiveWebhookUseCase(f.deps, time.Hour)
	p := payload(t, `{"type":"message","timestamp":1714557600000,"payload":{
		"id":"wamid-1","type":"text","source":"5491112345678","destination":"15550001",
		"text":"Hola","sender":{"phone":"5491112345678","name":"Ana"}}}`)

	res, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != WebhookMessage || res.Duplicate || !res.ConversationCreated {
		t.Fatalf("result = %+v", res)
	}

	conv, _ := f.repo.GetConversation(context.Background(), res.ConversationID)
	if conv.BusinessID != f.business.ID || conv.ContactPhone != "+5491112345678" {
		t.Errorf("conversation = %+v", conv)
	}
	if conv.UnreadCount != 1 || *conv.LastMessage != "Hola" || *conv.ContactName != "Ana" {
		t.Errorf("summary = %+v", conv)
	}

	msgs := f.repo.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d", len(msgs))
	}
	m := msgs[0]
	if m.Sender != chat.SenderUser || m.Status != chat.StatusDelivered || m.Read || *m.ExternalID != "wamid-1" {
		t.Errorf("message = %+v", m)
	}
	if m.CreatedAt.Unix() != 1714557600 {
		t.Errorf("created_at = %v", m.CreatedAt)
	}
	if len(f.pub.types) != 2 || f.pub.types[0] != events.ConversationCreated || f.pub.types[1] != events.MessageReceived {
		t.Errorf("events = %v", f.pub.types)
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	uc := NewReceiveWebhookUseCase(f.deps, time.Hour)
	p := payload(t, `{"type":"message","payload":{"id":"wamid-2","type":"text","source":"+1 555 0100","text":"hi"}}`)

	if _, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p}); err != nil {
		t.Fatal(err)
	}
	res, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Duplicate {
		t.Error("second delivery should be reported as duplicate")
	}
	if n := len(f.repo.Messages()); n != 1 {
		t.Errorf("messages = %d, want 1", n)
	}

	// without the cache the unique external id still catches it
	f.deps.Cache = nil
	res, err = NewReceiveWebhookUseCase(f.deps, time.Hour).Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if err != nil || !res.Duplicate {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	conv, _ := f.repo.FindLatestConversationByPhone(context.Background(), "+15550100")
	if conv.UnreadCount != 1 {
		t.Errorf("unread = %d, duplicates must not count", conv.UnreadCount)
	}
}

func TestWebhookMediaFallsBackToCaption(t *testing.T) {
	f := newFixture(t)
	uc := NewReceiveWebhookUseCase(f.deps, time.Hour)
	p := payload(t, `{"type":"message","payload":{"id":"m3","type":"image","source":"+1555",
		"payload":{"url":"https://cdn.example/a.jpg","caption":"look"}}}`)

	if _, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p}); err != nil {
		t.Fatal(err)
	}
	m := f.repo.Messages()[0]
	if m.Content != "look" || m.MsgType != chat.MessageTypeImage || m.MediaURL == nil || *m.MediaURL != "https://cdn.example/a.jpg" {
		t.Errorf("message = %+v", m)
	}
}

func TestWebhookValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no body", `{"type":"message","payload":{"type":"text","source":"+1555"}}`},
		{"no source", `{"type":"message","payload":{"type":"text","text":"hi"}}`},
		{"unknown type", `{"type":"billing-event","payload":{}}`},
		{"no type", `{"payload":{"text":"hi"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := NewReceiveWebhookUseCase(f.deps, time.Hour).Execute(context.Background(), ReceiveWebhookInput{Payload: payload(t, tt.raw)})
			if !errors.Is(err, chat.ErrValidation) {
				t.Fatalf("err = %v", err)
			}
			if len(f.repo.Messages()) != 0 {
				t.Error("no message must be written")
			}
			if convs := f.repo.Conversations(); len(convs) != 0 {
				t.Errorf("no conversation must be created, got %d", len(convs))
			}
		})
	}
}

func TestWebhookWithoutAnyBusiness(t *testing.T) {
	f := newFixture(t)
	f.deps.DefaultBusinessID = ""
	p := payload(t, `{"type":"message","payload":{"type":"text","source":"+1555","destination":"+19990000","text":"hi"}}`)
	_, err := NewReceiveWebhookUseCase(f.deps, time.Hour).Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if !errors.Is(err, chat.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestWebhookStoreFailureReleasesClaim(t *testing.T) {
	f := newFixture(t)
	uc := NewReceiveWebhookUseCase(f.deps, time.Hour)
	p := payload(t, `{"type":"message","payload":{"id":"m4","type":"text","source":"+1555","text":"hi"}}`)

	f.repo.Fail["UpsertConversation"] = errors.New("db down")
	if _, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v", err)
	}
	delete(f.repo.Fail, "UpsertConversation")

	res, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if err != nil || res.Duplicate {
		t.Fatalf("redelivery must be processed: res=%+v err=%v", res, err)
	}
}

func TestWebhookSummaryFailureIsScheduled(t *testing.T) {
	f := newFixture(t)
	f.repo.Fail["ApplySummary"] = errors.New("timeout")
	p := payload(t, `{"type":"message","payload":{"id":"m5","type":"text","source":"+1555","text":"hi"}}`)

	_, err := NewReceiveWebhookUseCase(f.deps, time.Hour).Execute(context.Background(), ReceiveWebhookInput{Payload: p})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v", err)
	}
	if len(f.refresh.scheduled) != 1 {
		t.Errorf("scheduled = %v", f.refresh.scheduled)
	}
}

func TestWebhookStatusEvent(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	ext := "gs-77"
	_, _, _ = f.repo.SaveMessage(context.Background(), chat.Message{ConversationID: conv.ID, Content: "x", Sender: chat.SenderBusiness, Status: chat.StatusSent, ExternalID: &ext})

	uc := NewReceiveWebhookUseCase(f.deps, time.Hour)
	res, err := uc.Execute(context.Background(), ReceiveWebhookInput{Payload: payload(t,
		`{"type":"message-event","payload":{"id":"wa-1","gsId":"gs-77","type":"read"}}`)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != WebhookStatus || res.StatusUpdated != 1 {
		t.Errorf("res = %+v", res)
	}
	if f.repo.Messages()[0].Status != chat.StatusRead {
		t.Error("status not updated")
	}

	// bare status event without correlation is acked untouched
	res, err = uc.Execute(context.Background(), ReceiveWebhookInput{Payload: payload(t, `{"type":"message-event","payload":{}}`)})
	if err != nil || res.Kind != WebhookStatus {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	before, _ := f.repo.GetConversation(context.Background(), conv.ID)
	if before.UnreadCount != 0 {
		t.Error("status events must not touch conversations")
	}
}

func TestRelayDeactivatesBot(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+5491112345678")
	f.cache.Set(context.Background(), botStatusKey(conv.ID), "true", time.Hour)
	sender := &fakeSender{}
	uc := NewRelayMessageUseCase(f.deps, sender, SenderDefaults{SourceNumber: "+1999", AppName: "Default", APIKey: "default-key"})

	res, err := uc.Execute(context.Background(), RelayMessageInput{PhoneNumber: "5491112345678", Message: "Hola!", ConversationID: conv.ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.ConversationID != conv.ID || res.ExternalID != "gs-1" || res.BotActive {
		t.Errorf("res = %+v", res)
	}

	req := sender.got[0]
	if req.APIKey != "biz-key" || req.Source != "15550001" || req.Destination != "5491112345678" || req.AppName != "Acme" {
		t.Errorf("bsp request = %+v", req)
	}

	got, _ := f.repo.GetConversation(context.Background(), conv.ID)
	if got.BotActive {
		t.Error("a human message must turn the bot off")
	}
	if *got.LastMessage != "Hola!" {
		t.Errorf("summary = %q", *got.LastMessage)
	}
	m := f.repo.Messages()[0]
	if m.Sender != chat.SenderBusiness || m.Status != chat.StatusSent || !m.Read {
		t.Errorf("message = %+v", m)
	}
	if v, _ := f.cache.Get(context.Background(), botStatusKey(conv.ID)); v != "false" {
		t.Errorf("cached bot status = %q, want false", v)
	}
}

func TestRelayNeverReactivates(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	_ = f.repo.SetBotActive(context.Background(), conv.ID, false)
	uc := NewRelayMessageUseCase(f.deps, &fakeSender{}, SenderDefaults{})

	if _, err := uc.Execute(context.Background(), RelayMessageInput{PhoneNumber: "+1555", Message: "x", ConversationID: conv.ID}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.repo.GetConversation(context.Background(), conv.ID)
	if got.BotActive {
		t.Error("bot must stay off")
	}
	for _, typ := range f.pub.types {
		if typ == events.BotToggled {
			t.Error("no toggle event when the bot was already off")
		}
	}
}

func TestRelayCreatesConversationAfterSend(t *testing.T) {
	f := newFixture(t)
	uc := NewRelayMessageUseCase(f.deps, &fakeSender{}, SenderDefaults{})

	res, err := uc.Execute(context.Background(), RelayMessageInput{PhoneNumber: "+44 20 0000", Message: "welcome"})
	if err != nil {
		t.Fatal(err)
	}
	conv, err := f.repo.FindConversationByPhone(context.Background(), f.business.ID, "+44200000")
	if err != nil {
		t.Fatal(err)
	}
	if conv.ID != res.ConversationID || conv.BotActive {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestRelayFailures(t *testing.T) {
	tests := []struct {
		name    string
		in      RelayMessageInput
		sendErr error
		want    error
	}{
		{"missing phone", RelayMessageInput{Message: "x"}, nil, chat.ErrValidation},
		{"missing message", RelayMessageInput{PhoneNumber: "+1555", Message: "  "}, nil, chat.ErrValidation},
		{"bad type", RelayMessageInput{PhoneNumber: "+1555", Message: "x", Type: "hologram"}, nil, chat.ErrValidation},
		{"auth", RelayMessageInput{PhoneNumber: "+1555", Message: "x"}, fmt.Errorf("%w: status 401", bsp.ErrAuth), ErrUpstreamAuth},
		{"upstream", RelayMessageInput{PhoneNumber: "+1555", Message: "x"}, fmt.Errorf("%w: status 502", bsp.ErrUpstream), ErrUpstream},
		{"unknown conversation", RelayMessageInput{PhoneNumber: "+1555", Message: "x", ConversationID: "0b6a9f3c-1f8e-4c11-9a7e-3f0c2d6c1a10"}, nil, chat.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := NewRelayMessageUseCase(f.deps, &fakeSender{err: tt.sendErr}, SenderDefaults{}).Execute(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(f.repo.Messages()) != 0 {
				t.Error("failed relays must not be recorded")
			}
		})
	}
}

func TestRelaySentButNotRecorded(t *testing.T) {
	tests := []struct {
		name string
		op   string
	}{
		{"message write", "SaveMessage"},
		{"summary write", "ApplySummary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			conv := f.conversation(t, "+1555")
			f.repo.Fail[tt.op] = errors.New("db down")
			sender := &fakeSender{}

			_, err := NewRelayMessageUseCase(f.deps, sender, SenderDefaults{}).Execute(context.Background(),
				RelayMessageInput{PhoneNumber: "+1555", Message: "x", ConversationID: conv.ID})
			var unrecorded *SentNotRecordedError
			if !errors.As(err, &unrecorded) || unrecorded.ExternalID != "gs-1" {
				t.Fatalf("err = %v", err)
			}
			if !errors.Is(err, ErrPersistence) {
				t.Errorf("err = %v, want ErrPersistence in the chain", err)
			}
			if len(sender.got) != 1 {
				t.Errorf("sends = %d", len(sender.got))
			}
		})
	}
}

// slowBotRead parks GetBotActive after the store read until released.
type slowBotRead struct {
	*repoAdapter.MemoryChatRepository
	read    chan struct{}
	release chan struct{}
}

func (r *slowBotRead) GetBotActive(ctx context.Context, conversationID string) (bool, error) {
	active, err := r.MemoryChatRepository.GetBotActive(ctx, conversationID)
	close(r.read)
	<-r.release
	return active, err
}

func TestBotStatusReadDoesNotUndoRelay(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	slow := &slowBotRead{MemoryChatRepository: f.repo, read: make(chan struct{}), release: make(chan struct{})}
	readDeps := f.deps
	readDeps.Repo = slow
	ctx := context.Background()

	done := make(chan BotStatus, 1)
	go func() {
		st, _ := NewGetBotStatusUseCase(readDeps).Execute(ctx, GetBotStatusInput{ConversationID: conv.ID})
		done <- st
	}()
	<-slow.read

	if _, err := NewRelayMessageUseCase(f.deps, &fakeSender{}, SenderDefaults{}).Execute(ctx,
		RelayMessageInput{PhoneNumber: "+1555", Message: "taking over", ConversationID: conv.ID}); err != nil {
		t.Fatal(err)
	}
	close(slow.release)
	<-done

	st, err := NewGetBotStatusUseCase(f.deps).Execute(ctx, GetBotStatusInput{ConversationID: conv.ID})
	if err != nil || st.Active {
		t.Errorf("status after relay = %+v, %v; want inactive", st, err)
	}
}

func TestRegisterBotResponse(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+5491112345678")
	uc := NewRegisterBotResponseUseCase(f.deps)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	res, err := uc.Execute(context.Background(), RegisterBotResponseInput{ConversationID: conv.ID, Message: "I can help", Timestamp: &at})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ConversationUpdated || res.ConversationID != conv.ID {
		t.Errorf("res = %+v", res)
	}
	m := f.repo.Messages()[0]
	if m.Sender != chat.SenderBot || !m.CreatedAt.Equal(at) {
		t.Errorf("message = %+v", m)
	}

	// by phone number
	res, err = uc.Execute(context.Background(), RegisterBotResponseInput{ConversationID: "+54 9 11 1234-5678", Message: "again"})
	if err != nil || res.ConversationID != conv.ID {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

func TestRegisterBotResponseFailures(t *testing.T) {
	f := newFixture(t)
	uc := NewRegisterBotResponseUseCase(f.deps)

	if _, err := uc.Execute(context.Background(), RegisterBotResponseInput{Message: "x"}); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("missing id: %v", err)
	}
	if _, err := uc.Execute(context.Background(), RegisterBotResponseInput{ConversationID: "+1000", Message: "x"}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown phone: %v", err)
	}
	if len(f.repo.Messages()) != 0 {
		t.Error("nothing must be written for unknown conversations")
	}

	conv := f.conversation(t, "+1555")
	f.repo.Fail["SaveMessage"] = errors.New("disk full")
	if _, err := uc.Execute(context.Background(), RegisterBotResponseInput{ConversationID: conv.ID, Message: "x"}); !errors.Is(err, ErrPersistence) {
		t.Errorf("insert failure: %v", err)
	}
}

func TestRegisterBotResponseSummaryIsBestEffort(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	f.repo.Fail["ApplySummary"] = errors.New("lock timeout")

	res, err := NewRegisterBotResponseUseCase(f.deps).Execute(context.Background(), RegisterBotResponseInput{ConversationID: conv.ID, Message: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ConversationUpdated {
		t.Error("conversationUpdated must be false")
	}
	if len(f.refresh.scheduled) != 1 || f.refresh.scheduled[0] != conv.ID {
		t.Errorf("scheduled = %v", f.refresh.scheduled)
	}
	if len(f.repo.Messages()) != 1 {
		t.Error("the message is still recorded")
	}
}

func TestToggleBot(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	f.cache.Set(context.Background(), botStatusKey(conv.ID), "true", time.Hour)
	uc := NewToggleBotUseCase(f.deps)

	res, err := uc.Execute(context.Background(), ToggleBotInput{ConversationID: conv.ID, IsActive: false})
	if err != nil || res.IsActive {
		t.Fatalf("res = %+v err = %v", res, err)
	}
	active, _ := f.repo.GetBotActive(context.Background(), conv.ID)
	if active {
		t.Error("flag not stored")
	}
	if v, _ := f.cache.Get(context.Background(), botStatusKey(conv.ID)); v != "false" {
		t.Errorf("cached flag = %q, want false", v)
	}

	if _, err := uc.Execute(context.Background(), ToggleBotInput{ConversationID: "0b6a9f3c-1f8e-4c11-9a7e-3f0c2d6c1a10", IsActive: true}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown: %v", err)
	}
	f.repo.Fail["SetBotActive"] = errors.New("db down")
	if _, err := uc.Execute(context.Background(), ToggleBotInput{ConversationID: conv.ID, IsActive: true}); !errors.Is(err, ErrPersistence) {
		t.Errorf("store failure: %v", err)
	}
}

func TestGetBotStatus(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	uc := NewGetBotStatusUseCase(f.deps)

	st, err := uc.Execute(context.Background(), GetBotStatusInput{ConversationID: conv.ID})
	if err != nil || !st.Active || st.Defaulted {
		t.Fatalf("st = %+v err = %v", st, err)
	}

	// the cached answer survives a store change until invalidated
	_ = f.repo.SetBotActive(context.Background(), conv.ID, false)
	st, _ = uc.Execute(context.Background(), GetBotStatusInput{ConversationID: conv.ID})
	if !st.Active {
		t.Error("expected cached value")
	}
	f.cache.Del(context.Background(), botStatusKey(conv.ID))
	st, _ = uc.Execute(context.Background(), GetBotStatusInput{ConversationID: conv.ID})
	if st.Active {
		t.Error("expected store value after invalidation")
	}

	if _, err := uc.Execute(context.Background(), GetBotStatusInput{ConversationID: "0b6a9f3c-1f8e-4c11-9a7e-3f0c2d6c1a10"}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("unknown: %v", err)
	}
}

func TestGetBotStatusFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.deps.Cache = nil
	conv := f.conversation(t, "+1555")
	_ = f.repo.SetBotActive(context.Background(), conv.ID, false)
	f.repo.Fail["GetBotActive"] = errors.New("connection reset")

	st, err := NewGetBotStatusUseCase(f.deps).Execute(context.Background(), GetBotStatusInput{ConversationID: conv.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !st.Active || !st.Defaulted || !errors.Is(st.Err, ErrPersistence) {
		t.Errorf("st = %+v", st)
	}
}

func TestReadSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, created, err := NewCreateConversationUseCase(f.deps).Execute(ctx, CreateConversationInput{PhoneNumber: "+1 555", Name: "Bo"})
	if err != nil || !created {
		t.Fatalf("create: %v %v", created, err)
	}
	again, created, _ := NewCreateConversationUseCase(f.deps).Execute(ctx, CreateConversationInput{PhoneNumber: "1555"})
	if created || again.ID != conv.ID {
		t.Error("create must be idempotent")
	}

	convs, err := NewListConversationsUseCase(f.deps).Execute(ctx, ListConversationsInput{})
	if err != nil || len(convs) != 1 {
		t.Fatalf("list: %v %v", convs, err)
	}
	if _, err := NewListConversationsUseCase(f.deps).Execute(ctx, ListConversationsInput{BusinessID: "acme"}); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("bad business id: %v", err)
	}

	_, _ = NewReceiveWebhookUseCase(f.deps, time.Hour).Execute(ctx, ReceiveWebhookInput{Payload: payload(t,
		`{"type":"message","payload":{"type":"text","source":"+1555","text":"hi"}}`)})
	msgs, err := NewGetMessageUseCase(f.repo).Execute(ctx, GetMessageInput{ConversationID: conv.ID})
	if err != nil || len(msgs) != 1 {
		t.Fatalf("messages: %v %v", msgs, err)
	}
	if _, err := NewGetMessageUseCase(f.repo).Execute(ctx, GetMessageInput{ConversationID: "nope"}); !errors.Is(err, chat.ErrValidation) {
		t.Errorf("bad id: %v", err)
	}

	if err := NewMarkReadUseCase(f.repo).Execute(ctx, MarkReadInput{ConversationID: conv.ID}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.repo.GetConversation(ctx, conv.ID)
	if got.UnreadCount != 0 {
		t.Errorf("unread = %d", got.UnreadCount)
	}

	b, err := NewGetBusinessUseCase(f.repo).Execute(ctx, GetBusinessInput{BusinessID: f.business.ID})
	if err != nil || b.Name != "Acme" {
		t.Fatalf("business: %v %v", b, err)
	}
}

func TestRefreshSummary(t *testing.T) {
	f := newFixture(t)
	conv := f.conversation(t, "+1555")
	uc := NewRefreshSummaryUseCase(f.repo)

	if err := uc.Execute(context.Background(), RefreshSummaryInput{ConversationID: conv.ID, Update: chat.SummaryUpdate{LastMessage: "late", LastMessageAt: time.Now()}}); err != nil {
		t.Fatal(err)
	}
	if err := uc.Execute(context.Background(), RefreshSummaryInput{ConversationID: "gone"}); !errors.Is(err, chat.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

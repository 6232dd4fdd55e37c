package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	repository "go-wabridge/internal/pkg/chat/persistence/repository/port"

	"github.com/google/uuid"
)

// MemoryChatRepository is an in-process ChatRepository with the same
// ordering, uniqueness and summary rules as the Postgres adapter.
// Fail lets callers inject an error per method name.
type MemoryChatRepository struct {
	mu            sync.Mutex
	businesses    map[string]chat.Business
	conversations map[string]chat.Conversation
	messages      []chat.Message
	seq           int64

	Fail map[string]error
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		businesses:    make(map[string]chat.Business),
		conversations: make(map[string]chat.Conversation),
		Fail:          make(map[string]error),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

// AddBusiness provisions a business; an empty ID gets a fresh one.
func (r *MemoryChatRepository) AddBusiness(b chat.Business) chat.Business {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.businesses[b.ID] = b
	return b
}

// Messages returns a copy of every stored message in insertion order.
func (r *MemoryChatRepository) Messages() []chat.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Message(nil), r.messages...)
}

// Conversations returns a copy of every stored conversation.
func (r *MemoryChatRepository) Conversations() []chat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, c)
	}
	return out
}

func (r *MemoryChatRepository) fail(op string) error {
	return r.Fail[op]
}

func (r *MemoryChatRepository) FindBusinessByNumber(_ context.Context, number string) (*chat.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindBusinessByNumber"); err != nil {
		return nil, err
	}
	for _, b := range r.businesses {
		if b.WhatsAppNumber == number {
			b := b
			return &b, nil
		}
	}
	return nil, chat.ErrNotFound
}

func (r *MemoryChatRepository) GetBusiness(_ context.Context, id string) (*chat.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetBusiness"); err != nil {
		return nil, err
	}
	b, ok := r.businesses[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &b, nil
}

func (r *MemoryChatRepository) UpsertConversation(_ context.Context, businessID, phone string, name *string) (*chat.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpsertConversation"); err != nil {
		return nil, false, err
	}
	for id, c := range r.conversations {
		if c.BusinessID == businessID && c.ContactPhone == phone {
			if name != nil {
				c.ContactName = name
				r.conversations[id] = c
			}
			return &c, false, nil
		}
	}
	c := chat.Conversation{
		ID:           uuid.NewString(),
		BusinessID:   businessID,
		ContactPhone: phone,
		ContactName:  name,
		BotActive:    true,
		CreatedAt:    time.Now().UTC(),
	}
	r.conversations[c.ID] = c
	return &c, true, nil
}

func (r *MemoryChatRepository) GetConversation(_ context.Context, id string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetConversation"); err != nil {
		return nil, err
	}
	c, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &c, nil
}

func (r *MemoryChatRepository) FindConversationByPhone(_ context.Context, businessID, phone string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindConversationByPhone"); err != nil {
		return nil, err
	}
	for _, c := range r.conversations {
		if c.BusinessID == businessID && c.ContactPhone == phone {
			return &c, nil
		}
	}
	return nil, chat.ErrNotFound
}

func (r *MemoryChatRepository) FindLatestConversationByPhone(_ context.Context, phone string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("FindLatestConversationByPhone"); err != nil {
		return nil, err
	}
	var matches []chat.Conversation
	for _, c := range r.conversations {
		if c.ContactPhone == phone {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, chat.ErrNotFound
	}
	sortByActivity(matches)
	return &matches[0], nil
}

func (r *MemoryChatRepository) ListConversations(_ context.Context, businessID string, limit, offset int) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ListConversations"); err != nil {
		return nil, err
	}
	var out []chat.Conversation
	for _, c := range r.conversations {
		if c.BusinessID == businessID {
			out = append(out, c)
		}
	}
	sortByActivity(out)
	return page(out, limit, offset), nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) (string, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("SaveMessage"); err != nil {
		return "", 0, err
	}
	if m.ExternalID != nil {
		for _, existing := range r.messages {
			if existing.ExternalID != nil && *existing.ExternalID == *m.ExternalID {
				return "", 0, chat.ErrDuplicate
			}
		}
	}
	r.seq++
	m.ID = uuid.NewString()
	m.Seq = r.seq
	r.messages = append(r.messages, m)
	return m.ID, m.Seq, nil
}

func (r *MemoryChatRepository) GetMessagesByConversation(_ context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetMessagesByConversation"); err != nil {
		return nil, err
	}
	var out []chat.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return page(out, limit, offset), nil
}

func (r *MemoryChatRepository) UpdateMessageStatus(_ context.Context, externalID string, status chat.DeliveryStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("UpdateMessageStatus"); err != nil {
		return 0, err
	}
	var n int64
	for i, m := range r.messages {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			r.messages[i].Status = status
			n++
		}
	}
	return n, nil
}

func (r *MemoryChatRepository) ApplySummary(_ context.Context, conversationID string, u chat.SummaryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ApplySummary"); err != nil {
		return err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	if c.LastMessageAt == nil || !u.LastMessageAt.Before(*c.LastMessageAt) {
		text, at := u.LastMessage, u.LastMessageAt
		c.LastMessage, c.LastMessageAt = &text, &at
	}
	c.UnreadCount += u.UnreadDelta
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
	if u.DeactivateBot {
		c.BotActive = false
	}
	r.conversations[conversationID] = c
	return nil
}

func (r *MemoryChatRepository) SetBotActive(_ context.Context, conversationID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("SetBotActive"); err != nil {
		return err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	c.BotActive = active
	r.conversations[conversationID] = c
	return nil
}

func (r *MemoryChatRepository) GetBotActive(_ context.Context, conversationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetBotActive"); err != nil {
		return false, err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return false, chat.ErrNotFound
	}
	return c.BotActive, nil
}

func (r *MemoryChatRepository) MarkConversationRead(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("MarkConversationRead"); err != nil {
		return err
	}
	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	c.UnreadCount = 0
	r.conversations[conversationID] = c
	for i, m := range r.messages {
		if m.ConversationID == conversationID && m.Sender == chat.SenderUser {
			r.messages[i].Read = true
		}
	}
	return nil
}

func sortByActivity(convs []chat.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].LastMessageAt, convs[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = clampPage(limit, offset)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

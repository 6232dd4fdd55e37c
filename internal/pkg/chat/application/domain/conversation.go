package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation aggregates every message exchanged with one contact for one business.
// Natural key: (BusinessID, ContactPhone).
type Conversation struct {
	ID            string     `db:"id" json:"id"`
	BusinessID    string     `db:"business_id" json:"businessId"`
	ContactPhone  string     `db:"contact_phone" json:"contactPhone"`
	ContactName   *string    `db:"contact_name" json:"contactName,omitempty"`
	LastMessage   *string    `db:"last_message" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"lastMessageAt,omitempty"`
	BotActive     bool       `db:"bot_active" json:"botActive"`
	UnreadCount   int        `db:"unread_count" json:"unreadCount"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// SummaryUpdate is applied to a conversation after a message is stored.
//
// LastMessage/LastMessageAt only replace the stored summary when LastMessageAt
// is not older than what is stored, so racing writers converge on the newest
// message. UnreadDelta and DeactivateBot always apply.
type SummaryUpdate struct {
	LastMessage   string
	LastMessageAt time.Time
	UnreadDelta   int
	DeactivateBot bool
}

// IsConversationID reports whether s has the shape of a store-generated id.
// Anything else is treated as a contact phone number.
func IsConversationID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}

// NormalizePhone returns "+" followed by the digits of s. It returns "" when s
// holds no digits.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteByte('+')
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}

// ProviderPhone is the digits-only form the BSP expects.
func ProviderPhone(normalized string) string {
	return strings.TrimPrefix(normalized, "+")
}

package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SenderKind tells who authored a message.
type SenderKind string

const (
	SenderUser     SenderKind = "user"     // end user on WhatsApp
	SenderBusiness SenderKind = "business" // human agent through the dashboard
	SenderBot      SenderKind = "bot"      // external automation
)

// DeliveryStatus mirrors the BSP lifecycle of a message.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// ParseDeliveryStatus maps BSP status names onto the stored set.
// "enqueued" is the BSP's accepted-but-not-sent state and is stored as sent.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent", "enqueued":
		return StatusSent, true
	case "delivered":
		return StatusDelivered, true
	case "read":
		return StatusRead, true
	case "failed":
		return StatusFailed, true
	}
	return "", false
}

// MessageType represents the kind of content.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "file"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
	MessageTypeLocation MessageType = "location"
	MessageTypeSticker  MessageType = "sticker"
)

var messageTypes = map[string]MessageType{
	"text":     MessageTypeText,
	"image":    MessageTypeImage,
	"file":     MessageTypeDocument,
	"document": MessageTypeDocument,
	"audio":    MessageTypeAudio,
	"voice":    MessageTypeAudio,
	"video":    MessageTypeVideo,
	"location": MessageTypeLocation,
	"sticker":  MessageTypeSticker,
}

// ParseMessageType recognizes content kinds a BSP can deliver.
func ParseMessageType(s string) (MessageType, bool) {
	t, ok := messageTypes[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Message is an append-only log entry in a conversation.
// Only Status and Read change after creation.
type Message struct {
	ID             string         `db:"id" json:"id"`
	Seq            int64          `db:"seq" json:"seq"`
	ConversationID string         `db:"conversation_id" json:"conversationId"`
	Content        string         `db:"content" json:"content"`
	MediaURL       *string        `db:"media_url" json:"mediaUrl,omitempty"`
	MsgType        MessageType    `db:"msg_type" json:"type"`
	Sender         SenderKind     `db:"sender" json:"sender"`
	Status         DeliveryStatus `db:"status" json:"status"`
	Read           bool           `db:"read" json:"read"`
	ExternalID     *string        `db:"external_id" json:"externalId,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// NewMessage validates m and fills defaults. Content is trimmed; a media
// message may carry an empty caption only when MediaURL is set.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", ErrValidation)
	}
	switch m.Sender {
	case SenderUser, SenderBusiness, SenderBot:
	default:
		return nil, fmt.Errorf("%w: unknown sender kind %q", ErrValidation, m.Sender)
	}

	m.Content = strings.TrimSpace(m.Content)
	if m.MediaURL != nil && strings.TrimSpace(*m.MediaURL) == "" {
		m.MediaURL = nil
	}
	if m.Content == "" && m.MediaURL == nil {
		return nil, fmt.Errorf("%w: message must contain text or media", ErrValidation)
	}
	if m.ExternalID != nil && *m.ExternalID == "" {
		m.ExternalID = nil
	}

	if m.MsgType == "" {
		m.MsgType = MessageTypeText
	}
	if m.Status == "" {
		m.Status = StatusSent
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}

// Preview is the text shown in the conversation list for this message.
func (m Message) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	return "[" + string(m.MsgType) + "]"
}

// ParseTimestamp accepts RFC3339 or unix time in seconds or milliseconds,
// optionally quoted. It reports false for anything else.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" || s == "null" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n >= 1e12 {
		return time.UnixMilli(n).UTC(), true
	}
	return time.Unix(n, 0).UTC(), true
}

package usecase

import (
	"encoding/json"
	"strings"
)

// WebhookPayload is the BSP callback body. Only the fields the receiver
// reads are declared; the inner payload's content block is decoded lazily
// because its shape differs per event kind.
type WebhookPayload struct {
	Type        string          `json:"type"`
	App         string          `json:"app"`
	Destination string          `json:"destination"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Payload     WebhookEvent    `json:"payload"`
}

type WebhookEvent struct {
	ID          string          `json:"id"`
	GsID        string          `json:"gsId"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Text        string          `json:"text"`
	Content     json.RawMessage `json:"payload"`
	Sender      *WebhookSender  `json:"sender"`
}

type WebhookSender struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type webhookContent struct {
	Text    string `json:"text"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// statusKinds are delivery lifecycle events. "message-event" arrives at the
// top level when the inner payload has no kind.
var statusKinds = map[string]bool{
	"delivered":     true,
	"sent":          true,
	"enqueued":      true,
	"read":          true,
	"failed":        true,
	"status":        true,
	"message-event": true,
}

// EventType is the inner kind when present, otherwise the envelope type.
func (p WebhookPayload) EventType() string {
	if t := strings.TrimSpace(p.Payload.Type); t != "" {
		return strings.ToLower(t)
	}
	return strings.ToLower(strings.TrimSpace(p.Type))
}

func (p WebhookPayload) content() webhookContent {
	var c webhookContent
	if len(p.Payload.Content) > 0 {
		_ = json.Unmarshal(p.Payload.Content, &c)
	}
	return c
}

// Body is the message text, falling back to the media caption or URL.
func (p WebhookPayload) Body() string {
	if t := strings.TrimSpace(p.Payload.Text); t != "" {
		return t
	}
	c := p.content()
	for _, v := range []string{c.Text, c.Caption, c.URL} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// MediaURL is set for media kinds only.
func (p WebhookPayload) MediaURL() string {
	if p.EventType() == "text" {
		return ""
	}
	return strings.TrimSpace(p.content().URL)
}

func (p WebhookPayload) SourcePhone() string {
	if s := strings.TrimSpace(p.Payload.Source); s != "" {
		return s
	}
	if p.Payload.Sender != nil {
		return strings.TrimSpace(p.Payload.Sender.Phone)
	}
	return ""
}

func (p WebhookPayload) SenderName() string {
	if p.Payload.Sender == nil {
		return ""
	}
	return strings.TrimSpace(p.Payload.Sender.Name)
}

func (p WebhookPayload) DestinationNumber() string {
	if d := strings.TrimSpace(p.Payload.Destination); d != "" {
		return d
	}
	return strings.TrimSpace(p.Destination)
}

// CorrelationID links a status event to the message the relay stored.
func (p WebhookPayload) CorrelationID() string {
	if p.Payload.GsID != "" {
		return p.Payload.GsID
	}
	return p.Payload.ID
}

// Package bsp talks to the WhatsApp Business Solution Provider HTTP API.
package bsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrAuth means the BSP rejected the credential.
	ErrAuth = errors.New("bsp: authentication failed")
	// ErrUpstream covers every other failed send.
	ErrUpstream = errors.New("bsp: upstream error")
)

// authMarkers are body fragments the BSP uses for credential errors,
// sometimes under a 200 or 400 status.
var authMarkers = []string{
	"portal user not found with apikey",
	"authentication failed",
	"invalid api key",
	"unauthorized",
}

// Sender is what the relay needs from a BSP.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// SendRequest addresses one outbound message. Source and Destination are
// digits-only phone numbers.
type SendRequest struct {
	APIKey      string
	Source      string
	Destination string
	AppName     string
	Text        string
	MediaURL    string
}

type SendResult struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Client is a form-encoded client for the BSP /msg endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	observe func(time.Duration)
}

// NewClient builds a client with the given request timeout. observe, when
// non-nil, receives the duration of every call.
func NewClient(baseURL string, timeout time.Duration, observe func(time.Duration)) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		observe: observe,
	}
}

var _ Sender = (*Client)(nil)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageMessage struct {
	Type        string `json:"type"`
	OriginalURL string `json:"originalUrl"`
	PreviewURL  string `json:"previewUrl"`
	Caption     string `json:"caption,omitempty"`
}

// Send posts one message. Credential problems are reported as ErrAuth and
// everything else as ErrUpstream, both carrying the upstream detail.
func (c *Client) Send(ctx context.Context, in SendRequest) (*SendResult, error) {
	if in.APIKey == "" {
		return nil, fmt.Errorf("%w: no api key configured", ErrUpstream)
	}
	if in.Source == "" || in.Destination == "" {
		return nil, fmt.Errorf("%w: source and destination are required", ErrUpstream)
	}

	var msg any = textMessage{Type: "text", Text: in.Text}
	if in.MediaURL != "" {
		msg = imageMessage{Type: "image", OriginalURL: in.MediaURL, PreviewURL: in.MediaURL, Caption: in.Text}
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal bsp message: %w", err)
	}

	form := url.Values{}
	form.Set("channel", "whatsapp")
	form.Set("source", in.Source)
	form.Set("destination", in.Destination)
	form.Set("src.name", in.AppName)
	form.Set("message", string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/msg", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create bsp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("apikey", in.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.observe != nil {
		c.observe(time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || isAuthBody(body) {
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, snippet(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, snippet(body))
	}

	var out SendResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}
	if out.MessageID == "" {
		return nil, fmt.Errorf("%w: no message id in response: %s", ErrUpstream, snippet(body))
	}
	return &out, nil
}

func isAuthBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	for _, m := range authMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}

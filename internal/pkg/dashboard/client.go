// Package dashboard is the Go side of the dashboard's refresh contract: a
// fail-soft API client and a poller that keeps the last good snapshot.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	chat "go-wabridge/internal/pkg/chat/application/domain"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
	defaultTimeout  = 10 * time.Second
)

// APIError is a non-2xx answer from the bridge. ExternalID is set when the
// bridge delivered the message to the BSP but failed to record it.
type APIError struct {
	Status     int
	Message    string
	ExternalID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard: status %d: %s", e.Status, e.Message)
}

// Sent reports whether the message reached the BSP despite the error.
func (e *APIError) Sent() bool { return e.ExternalID != "" }

func (e *APIError) retryable() bool {
	if e.Sent() {
		return false
	}
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// BotStatus mirrors the bot-status endpoint. Defaulted is set when the
// answer is an assumption rather than a read.
type BotStatus struct {
	Active    bool `json:"isActive"`
	Defaulted bool `json:"defaulted"`
}

type SendResult struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ExternalID     string `json:"externalId"`
	BotActive      bool   `json:"botActive"`
}

// Client talks to the bridge the way the dashboard does. Read calls fail
// soft after their retries; writes report the error.
type Client struct {
	BaseURL    string
	BusinessID string
	Attempts   int
	Delay      time.Duration

	http *http.Client
	log  zerolog.Logger
}

func NewClient(baseURL, businessID string, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		BusinessID: businessID,
		Attempts:   defaultAttempts,
		Delay:      defaultDelay,
		http:       &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
}

// Conversations returns an empty list when the bridge cannot be reached.
func (c *Client) Conversations(ctx context.Context) []chat.Conversation {
	convs, err := c.fetchConversations(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("conversations unavailable")
		return []chat.Conversation{}
	}
	return convs
}

// Messages returns an empty list when the bridge cannot be reached.
func (c *Client) Messages(ctx context.Context, conversationID string) []chat.Message {
	msgs, err := c.fetchMessages(ctx, conversationID)
	if err != nil {
		c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("messages unavailable")
		return []chat.Message{}
	}
	return msgs
}

// BotStatus assumes the bot is active when the status cannot be read.
func (c *Client) BotStatus(ctx context.Context, conversationID string) BotStatus {
	var st BotStatus
	if err := c.call(ctx, http.MethodGet, "/bot-status/"+url.PathEscape(conversationID), nil, &st); err != nil {
		c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bot status unavailable, assuming active")
		return BotStatus{Active: true, Defaulted: true}
	}
	return st
}

// Business returns nil when the profile cannot be read.
func (c *Client) Business(ctx context.Context) *chat.Business {
	var out struct {
		Business *chat.Business `json:"business"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/businesses/"+url.PathEscape(c.BusinessID), nil, &out); err != nil {
		c.log.Warn().Err(err).Msg("business unavailable")
		return nil
	}
	return out.Business
}

// ToggleBot returns the error so the caller can revert its optimistic update.
func (c *Client) ToggleBot(ctx context.Context, conversationID string, active bool) error {
	body := map[string]any{"conversationId": conversationID, "isActive": active}
	return c.call(ctx, http.MethodPost, "/toggle-bot", body, nil)
}

// SendMessage relays a human message. An error leaves the message in a
// failed state on the caller's side, unless it is an *APIError whose Sent
// reports true: the customer has it and it must not be sent again.
func (c *Client) SendMessage(ctx context.Context, conversationID, phone, text string) (*SendResult, error) {
	body := map[string]string{"conversationId": conversationID, "phoneNumber": phone, "message": text}
	var out struct {
		Data SendResult `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/send-message", body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) fetchConversations(ctx context.Context) ([]chat.Conversation, error) {
	path := "/api/v1/conversations"
	if c.BusinessID != "" {
		path += "?businessId=" + url.QueryEscape(c.BusinessID)
	}
	var out struct {
		Conversations []chat.Conversation `json:"conversations"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) fetchMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var out struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// call makes up to Attempts requests with a flat Delay between them.
// Client errors other than 429 are not retried.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.Delay):
			}
		}
		err = c.do(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return err
		}
		c.log.Debug().Err(err).Int("attempt", i+1).Str("path", path).Msg("request failed")
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message    string `json:"message"`
			Error      string `json:"error"`
			ExternalID string `json:"externalId"`
		}
		_ = json.Unmarshal(raw, &e)
		msg := e.Message
		if e.Error != "" {
			msg += ": " + e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg, ExternalID: e.ExternalID}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("dashboard: decode %s: %w", path, err)
	}
	return nil
}

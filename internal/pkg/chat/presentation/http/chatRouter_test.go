package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-wabridge/internal/infrastructure/bsp"
	cacheAdapter "go-wabridge/internal/infrastructure/cache/adapter"
	"go-wabridge/internal/infrastructure/realtime"
	chat "go-wabridge/internal/pkg/chat/application/domain"
	"go-wabridge/internal/pkg/chat/application/usecase"
	repoAdapter "go-wabridge/internal/pkg/chat/persistence/repository/adapter"
)

type stubSender struct {
	err error
	n   int
}

func (s *stubSender) Send(context.Context, bsp.SendRequest) (*bsp.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.n++
	return &bsp.SendResult{MessageID: fmt.Sprintf("gs-%d", s.n), Status: "submitted"}, nil
}

type harness struct {
	engine   *gin.Engine
	repo     *repoAdapter.MemoryChatRepository
	sender   *stubSender
	business chat.Business
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{repo: repoAdapter.NewMemoryChatRepository(), sender: &stubSender{}}
	h.business = h.repo.AddBusiness(chat.Business{Name: "Acme", WhatsAppNumber: "+15550001", APIKey: "secret"})

	ctl := NewControllers(Services{
		Deps: usecase.Deps{
			Repo:              h.repo,
			Cache:             cacheAdapter.NewMemoryCache(),
			Log:               zerolog.Nop(),
			DefaultBusinessID: h.business.ID,
		},
		Sender:     h.sender,
		BSPTimeout: time.Second,
		DedupeTTL:  time.Hour,
		Realtime:   realtime.NewRouter(),
	})
	h.engine = gin.New()
	RegisterRoutes(h.engine.Group("/api/v1"), ctl)
	RegisterIntegrationRoutes(h.engine, ctl)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid json %q", method, path, w.Body.String())
		}
	}
	return w.Code, out
}

func TestInboundThenDashboardReads(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/webhook", `{"type":"message","payload":{
		"id":"wamid-1","type":"text","source":"5491112345678","destination":"15550001","text":"Hola",
		"sender":{"phone":"5491112345678","name":"Ana"}}}`)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("webhook: %d %v", code, body)
	}
	convID, _ := body["conversationId"].(string)

	code, body = h.do(t, http.MethodPost, "/webhook", `{"type":"message","payload":{
		"id":"wamid-1","type":"text","source":"5491112345678","text":"Hola"}}`)
	if code != http.StatusOK || body["duplicate"] != true {
		t.Fatalf("redelivery: %d %v", code, body)
	}

	code, body = h.do(t, http.MethodGet, "/api/v1/conversations", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %v", code, body)
	}
	convs := body["conversations"].([]any)
	if len(convs) != 1 {
		t.Fatalf("conversations = %v", convs)
	}
	first := convs[0].(map[string]any)
	if first["unreadCount"].(float64) != 1 || first["lastMessage"] != "Hola" || first["botActive"] != true {
		t.Errorf("conversation = %v", first)
	}

	code, body = h.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("messages: %d %v", code, body)
	}

	code, _ = h.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/read", nil)
	if code != http.StatusOK {
		t.Fatalf("read: %d", code)
	}
}

func TestWebhookRejectsBadEvents(t *testing.T) {
	h := newHarness(t)
	for _, raw := range []string{
		`not json`,
		`{"type":"message","payload":{"type":"text","source":"+1555"}}`,
		`{"type":"billing-event","payload":{}}`,
	} {
		code, body := h.do(t, http.MethodPost, "/webhook", raw)
		if code != http.StatusBadRequest || body["success"] != false {
			t.Errorf("%s: %d %v", raw, code, body)
		}
	}
	if len(h.repo.Messages()) != 0 {
		t.Error("rejected events must not be stored")
	}

	code, body := h.do(t, http.MethodPost, "/webhook", `{"type":"message-event","payload":{"gsId":"gs-404","type":"delivered"}}`)
	if code != http.StatusOK || body["kind"] != "status" {
		t.Errorf("status event: %d %v", code, body)
	}
}

func TestRelayAliasesAndBotDeactivation(t *testing.T) {
	h := newHarness(t)
	conv, _, _ := h.repo.UpsertConversation(context.Background(), h.business.ID, "+5491112345678", nil)

	for _, path := range []string{"/send-whatsapp-message-proxy", "/api/send-whatsapp-message", "/send-message"} {
		_ = h.repo.SetBotActive(context.Background(), conv.ID, true)
		code, body := h.do(t, http.MethodPost, path, map[string]string{
			"phoneNumber": "+5491112345678", "message": "hola", "conversationId": conv.ID,
		})
		if code != http.StatusOK {
			t.Fatalf("%s: %d %v", path, code, body)
		}
		data := body["data"].(map[string]any)
		if data["botActive"] != false || data["conversationId"] != conv.ID {
			t.Errorf("%s: data = %v", path, data)
		}

		_, status := h.do(t, http.MethodGet, "/bot-status/"+conv.ID, nil)
		if status["isActive"] != false {
			t.Errorf("%s: bot still active: %v", path, status)
		}
	}
}

func TestRelayErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		sendErr error
		want    int
	}{
		{"missing fields", map[string]string{"message": "x"}, nil, http.StatusBadRequest},
		{"auth", map[string]string{"phoneNumber": "+1555", "message": "x"}, fmt.Errorf("%w: Portal User Not Found With APIKey", bsp.ErrAuth), http.StatusUnauthorized},
		{"upstream", map[string]string{"phoneNumber": "+1555", "message": "x"}, fmt.Errorf("%w: status 502", bsp.ErrUpstream), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sender.err = tt.sendErr
			code, body := h.do(t, http.MethodPost, "/send-whatsapp-message-proxy", tt.body)
			if code != tt.want || body["success"] != false {
				t.Fatalf("%d %v", code, body)
			}
			if tt.sendErr != nil && body["error"] == "" {
				t.Error("upstream detail must be preserved")
			}
		})
	}
}

func TestRelaySentButNotRecorded(t *testing.T) {
	h := newHarness(t)
	h.repo.Fail["SaveMessage"] = errors.New("disk full")

	code, body := h.do(t, http.MethodPost, "/send-message", map[string]string{"phoneNumber": "+1555", "message": "x"})
	if code != http.StatusInternalServerError || body["sent"] != true {
		t.Fatalf("%d %v", code, body)
	}
	if id, _ := body["externalId"].(string); id == "" {
		t.Errorf("externalId missing: %v", body)
	}
}

func TestToggleAndStatus(t *testing.T) {
	h := newHarness(t)
	conv, _, _ := h.repo.UpsertConversation(context.Background(), h.business.ID, "+1555", nil)

	code, _ := h.do(t, http.MethodPost, "/toggle-bot", map[string]any{"conversationId": conv.ID})
	if code != http.StatusBadRequest {
		t.Errorf("missing isActive: %d", code)
	}

	code, body := h.do(t, http.MethodPost, "/api/toggle-bot", map[string]any{"conversationId": conv.ID, "isActive": false})
	if code != http.StatusOK || body["isActive"] != false {
		t.Fatalf("toggle: %d %v", code, body)
	}
	_, body = h.do(t, http.MethodGet, "/api/bot-status/"+conv.ID, nil)
	if body["isActive"] != false {
		t.Errorf("status = %v", body)
	}

	code, _ = h.do(t, http.MethodPost, "/toggle-bot", map[string]any{"conversationId": "0b6a9f3c-1f8e-4c11-9a7e-3f0c2d6c1a10", "isActive": true})
	if code != http.StatusNotFound {
		t.Errorf("unknown conversation: %d", code)
	}
	code, _ = h.do(t, http.MethodGet, "/bot-status/0b6a9f3c-1f8e-4c11-9a7e-3f0c2d6c1a10", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown status: %d", code)
	}
}

func TestBotStatusDefaultsOpen(t *testing.T) {
	h := newHarness(t)
	conv, _, _ := h.repo.UpsertConversation(context.Background(), h.business.ID, "+1555", nil)
	h.repo.Fail["GetBotActive"] = errors.New("connection refused")

	code, body := h.do(t, http.MethodGet, "/bot-status/"+conv.ID, nil)
	if code != http.StatusOK || body["isActive"] != true || body["defaulted"] != true {
		t.Fatalf("%d %v", code, body)
	}
}

func TestRegisterBotResponse(t *testing.T) {
	h := newHarness(t)
	conv, _, _ := h.repo.UpsertConversation(context.Background(), h.business.ID, "+1555", nil)

	code, body := h.do(t, http.MethodPost, "/register-bot-response", map[string]any{
		"conversationId": conv.ID, "message": "Hi, I'm the bot", "timestamp": 1714557600000,
	})
	if code != http.StatusOK || body["conversationUpdated"] != true {
		t.Fatalf("%d %v", code, body)
	}
	if got := h.repo.Messages()[0].CreatedAt.Unix(); got != 1714557600 {
		t.Errorf("created_at = %d", got)
	}

	code, _ = h.do(t, http.MethodPost, "/api/register-bot-response", map[string]any{"conversationId": "+1999", "message": "x"})
	if code != http.StatusNotFound {
		t.Errorf("unknown contact: %d", code)
	}
	code, _ = h.do(t, http.MethodPost, "/register-bot-response", map[string]any{"conversationId": conv.ID})
	if code != http.StatusBadRequest {
		t.Errorf("missing message: %d", code)
	}

	h.repo.Fail["ApplySummary"] = errors.New("deadlock")
	code, body = h.do(t, http.MethodPost, "/register-bot-response", map[string]any{"conversationId": conv.ID, "message": "later"})
	if code != http.StatusOK || body["conversationUpdated"] != false {
		t.Errorf("best-effort summary: %d %v", code, body)
	}
}

func TestCreateConversationAndBusiness(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(t, http.MethodPost, "/api/v1/conversations", map[string]string{"phoneNumber": "+1 555 0100", "name": "Bo"})
	if code != http.StatusCreated || body["created"] != true {
		t.Fatalf("create: %d %v", code, body)
	}
	code, body = h.do(t, http.MethodPost, "/api/v1/conversations", map[string]string{"phoneNumber": "15550100"})
	if code != http.StatusOK || body["created"] != false {
		t.Fatalf("re-create: %d %v", code, body)
	}

	code, body = h.do(t, http.MethodGet, "/api/v1/businesses/"+h.business.ID, nil)
	if code != http.StatusOK {
		t.Fatalf("business: %d %v", code, body)
	}
	b := body["business"].(map[string]any)
	if _, leaked := b["apiKey"]; leaked || b["name"] != "Acme" {
		t.Errorf("business = %v", b)
	}
	code, _ = h.do(t, http.MethodGet, "/api/v1/businesses/not-an-id", nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad id: %d", code)
	}
}

func TestTestBot(t *testing.T) {
	h := newHarness(t)
	code, body := h.do(t, http.MethodGet, "/api/test-bot", nil)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("GET: %d %v", code, body)
	}
	code, body = h.do(t, http.MethodPost, "/api/test-bot", map[string]string{"ping": "pong"})
	if code != http.StatusOK || body["echo"].(map[string]any)["ping"] != "pong" {
		t.Fatalf("POST: %d %v", code, body)
	}
}

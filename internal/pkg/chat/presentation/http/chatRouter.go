package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/infrastructure/bsp"
	"go-wabridge/internal/infrastructure/realtime"
	"go-wabridge/internal/pkg/chat/application/usecase"
	"go-wabridge/internal/pkg/chat/presentation/controller"
)

// Services is everything the chat endpoints are built from.
type Services struct {
	Deps           usecase.Deps
	Sender         bsp.Sender
	SenderDefaults usecase.SenderDefaults
	BSPTimeout     time.Duration
	DedupeTTL      time.Duration
	Realtime       *realtime.Router
}

// Controllers holds one controller per endpoint.
type Controllers struct {
	Webhook             *controller.WebhookController
	Relay               *controller.RelayMessageController
	RegisterBotResponse *controller.RegisterBotResponseController
	ToggleBot           *controller.ToggleBotController
	BotStatus           *controller.BotStatusController
	TestBot             *controller.TestBotController
	ListConversations   *controller.ListConversationsController
	CreateConversation  *controller.CreateConversationController
	GetMessage          *controller.GetMessageController
	MarkRead            *controller.MarkReadController
	GetBusiness         *controller.GetBusinessController
	Socket              *controller.DashboardSocketController
}

// NewControllers wires use cases to their controllers.
func NewControllers(s Services) *Controllers {
	d := s.Deps
	return &Controllers{
		Webhook:             controller.NewWebhookController(usecase.NewReceiveWebhookUseCase(d, s.DedupeTTL)),
		Relay:               controller.NewRelayMessageController(usecase.NewRelayMessageUseCase(d, s.Sender, s.SenderDefaults), s.BSPTimeout),
		RegisterBotResponse: controller.NewRegisterBotResponseController(usecase.NewRegisterBotResponseUseCase(d)),
		ToggleBot:           controller.NewToggleBotController(usecase.NewToggleBotUseCase(d)),
		BotStatus:           controller.NewBotStatusController(usecase.NewGetBotStatusUseCase(d)),
		TestBot:             controller.NewTestBotController(),
		ListConversations:   controller.NewListConversationsController(usecase.NewListConversationsUseCase(d)),
		CreateConversation:  controller.NewCreateConversationController(usecase.NewCreateConversationUseCase(d)),
		GetMessage:          controller.NewGetMessageController(usecase.NewGetMessageUseCase(d.Repo)),
		MarkRead:            controller.NewMarkReadController(usecase.NewMarkReadUseCase(d.Repo)),
		GetBusiness:         controller.NewGetBusinessController(usecase.NewGetBusinessUseCase(d.Repo)),
		Socket:              controller.NewDashboardSocketController(s.Realtime, d.DefaultBusinessID, d.Log),
	}
}

// RegisterRoutes registers the dashboard HTTP endpoints under the given router group
func RegisterRoutes(g *gin.RouterGroup, ctl *Controllers) {
	// GET /api/v1/conversations -> conversation list for a business
	g.GET("/conversations", ctl.ListConversations.Handle())

	// POST /api/v1/conversations -> open a conversation with a contact
	g.POST("/conversations", ctl.CreateConversation.Handle())

	// GET /api/v1/conversations/:id/messages -> messages, oldest first
	g.GET("/conversations/:id/messages", ctl.GetMessage.Handle())

	// POST /api/v1/conversations/:id/read -> clear unread
	g.POST("/conversations/:id/read", ctl.MarkRead.Handle())

	// GET /api/v1/businesses/:id -> business profile
	g.GET("/businesses/:id", ctl.GetBusiness.Handle())

	// GET /api/v1/ws -> websocket push for a business
	g.GET("/ws", ctl.Socket.Handle())
}

// RegisterIntegrationRoutes mounts the endpoints called by the BSP, the bot
// process and existing dashboards, including their historical paths.
func RegisterIntegrationRoutes(r gin.IRoutes, ctl *Controllers) {
	r.POST("/webhook", ctl.Webhook.Handle())

	relay := ctl.Relay.Handle()
	r.POST("/send-whatsapp-message-proxy", relay)
	r.POST("/api/send-whatsapp-message", relay)
	r.POST("/send-message", relay)

	toggle := ctl.ToggleBot.Handle()
	r.POST("/toggle-bot", toggle)
	r.POST("/api/toggle-bot", toggle)

	status := ctl.BotStatus.Handle()
	r.GET("/bot-status/:conversationId", status)
	r.GET("/api/bot-status/:conversationId", status)

	register := ctl.RegisterBotResponse.Handle()
	r.POST("/register-bot-response", register)
	r.POST("/api/register-bot-response", register)

	testBot := ctl.TestBot.Handle()
	r.GET("/api/test-bot", testBot)
	r.POST("/api/test-bot", testBot)
}

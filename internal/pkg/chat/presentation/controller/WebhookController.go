package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// WebhookController receives BSP callbacks (one controller per endpoint)
type WebhookController struct {
	UC *usecase.ReceiveWebhookUseCase
}

func NewWebhookController(uc *usecase.ReceiveWebhookUseCase) *WebhookController {
	return &WebhookController{UC: uc}
}

func (h *WebhookController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var p usecase.WebhookPayload
		if err := c.ShouldBindJSON(&p); err != nil {
			badRequest(c, "invalid webhook payload: "+err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.ReceiveWebhookInput{Payload: p})
		if err != nil {
			respondError(c, err)
			return
		}

		body := gin.H{"success": true, "kind": res.Kind}
		switch {
		case res.Duplicate:
			body["duplicate"] = true
		case res.Kind == usecase.WebhookMessage:
			body["conversationId"] = res.ConversationID
			body["messageId"] = res.MessageID
			body["conversationCreated"] = res.ConversationCreated
		case res.Kind == usecase.WebhookStatus:
			body["updated"] = res.StatusUpdated
		}
		c.JSON(http.StatusOK, body)
	}
}

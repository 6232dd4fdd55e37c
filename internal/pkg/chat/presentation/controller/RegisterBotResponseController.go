package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	"go-wabridge/internal/pkg/chat/application/usecase"
)

// RegisterBotResponseController records replies produced by the external bot
type RegisterBotResponseController struct {
	UC *usecase.RegisterBotResponseUseCase
}

func NewRegisterBotResponseController(uc *usecase.RegisterBotResponseUseCase) *RegisterBotResponseController {
	return &RegisterBotResponseController{UC: uc}
}

// registerBotResponseRequest accepts timestamp as RFC3339 or unix millis
type registerBotResponseRequest struct {
	ConversationID string          `json:"conversationId"`
	Message        string          `json:"message"`
	Timestamp      json.RawMessage `json:"timestamp"`
}

func (h *RegisterBotResponseController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerBotResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in := usecase.RegisterBotResponseInput{ConversationID: req.ConversationID, Message: req.Message}
		if ts, ok := chat.ParseTimestamp(string(req.Timestamp)); ok {
			in.Timestamp = &ts
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		res, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":             true,
			"messageId":           res.MessageID,
			"conversationId":      res.ConversationID,
			"conversationUpdated": res.ConversationUpdated,
		})
	}
}

package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// ToggleBotController flips a conversation's bot flag
type ToggleBotController struct {
	UC *usecase.ToggleBotUseCase
}

func NewToggleBotController(uc *usecase.ToggleBotUseCase) *ToggleBotController {
	return &ToggleBotController{UC: uc}
}

type toggleBotRequest struct {
	ConversationID string `json:"conversationId"`
	IsActive       *bool  `json:"isActive"`
}

func (h *ToggleBotController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req toggleBotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if req.ConversationID == "" || req.IsActive == nil {
			badRequest(c, "conversationId and isActive are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.ToggleBotInput{ConversationID: req.ConversationID, IsActive: *req.IsActive})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "conversationId": res.ConversationID, "isActive": res.IsActive})
	}
}

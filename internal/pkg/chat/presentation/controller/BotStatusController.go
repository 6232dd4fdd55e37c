package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// BotStatusController answers whether the bot may reply in a conversation
type BotStatusController struct {
	UC *usecase.GetBotStatusUseCase
}

func NewBotStatusController(uc *usecase.GetBotStatusUseCase) *BotStatusController {
	return &BotStatusController{UC: uc}
}

func (h *BotStatusController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		st, err := h.UC.Execute(ctx, usecase.GetBotStatusInput{ConversationID: c.Param("conversationId")})
		if err != nil {
			respondError(c, err)
			return
		}

		body := gin.H{"success": true, "isActive": st.Active}
		if st.Defaulted {
			body["defaulted"] = true
			_ = c.Error(st.Err)
		}
		c.JSON(http.StatusOK, body)
	}
}

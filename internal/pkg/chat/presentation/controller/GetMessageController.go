package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// GetMessageController handles fetching messages by conversation ID (one controller per endpoint)
type GetMessageController struct {
	UC *usecase.GetMessageUseCase
}

func NewGetMessageController(uc *usecase.GetMessageUseCase) *GetMessageController {
	return &GetMessageController{UC: uc}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		in := usecase.GetMessageInput{ConversationID: c.Param("id"), Limit: limit, Offset: offset}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"messages": msgs,
			"limit":    limit,
			"offset":   offset,
			"count":    len(msgs),
		})
	}
}

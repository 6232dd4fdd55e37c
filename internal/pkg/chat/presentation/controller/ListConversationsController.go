package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// ListConversationsController serves the dashboard conversation list
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		in := usecase.ListConversationsInput{BusinessID: c.Query("businessId"), Limit: limit, Offset: offset}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		convs, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"conversations": convs,
			"limit":         limit,
			"offset":        offset,
			"count":         len(convs),
		})
	}
}

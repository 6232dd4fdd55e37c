package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// CreateConversationController handles the conversation creation endpoint
// One controller per endpoint
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(uc *usecase.CreateConversationUseCase) *CreateConversationController {
	return &CreateConversationController{UC: uc}
}

type createConversationRequest struct {
	BusinessID  string `json:"businessId"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Name        string `json:"name"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		in := usecase.CreateConversationInput{BusinessID: req.BusinessID, PhoneNumber: req.PhoneNumber, Name: req.Name}
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		conv, created, err := h.UC.Execute(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"success": true, "conversation": conv, "created": created})
	}
}

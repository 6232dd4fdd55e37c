package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// RelayMessageController handles the dashboard send endpoint and its legacy aliases
type RelayMessageController struct {
	UC      *usecase.RelayMessageUseCase
	timeout time.Duration
}

// NewRelayMessageController bounds each request by the BSP timeout plus
// room for the store writes.
func NewRelayMessageController(uc *usecase.RelayMessageUseCase, bspTimeout time.Duration) *RelayMessageController {
	return &RelayMessageController{UC: uc, timeout: bspTimeout + storeTimeout}
}

// relayMessageRequest is the DTO for the HTTP request body
type relayMessageRequest struct {
	PhoneNumber    string `json:"phoneNumber"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Type           string `json:"type"`
	MediaURL       string `json:"mediaUrl"`
}

func (h *RelayMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req relayMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		res, err := h.UC.Execute(ctx, usecase.RelayMessageInput{
			PhoneNumber:    req.PhoneNumber,
			Message:        req.Message,
			ConversationID: req.ConversationID,
			Type:           req.Type,
			MediaURL:       req.MediaURL,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
	}
}

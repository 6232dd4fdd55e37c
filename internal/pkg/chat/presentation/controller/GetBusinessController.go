package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-wabridge/internal/pkg/chat/application/usecase"
)

// GetBusinessController exposes the business profile; the BSP key never leaves the server
type GetBusinessController struct {
	UC *usecase.GetBusinessUseCase
}

func NewGetBusinessController(uc *usecase.GetBusinessUseCase) *GetBusinessController {
	return &GetBusinessController{UC: uc}
}

func (h *GetBusinessController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
		defer cancel()
		b, err := h.UC.Execute(ctx, usecase.GetBusinessInput{BusinessID: c.Param("id")})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "business": b})
	}
}

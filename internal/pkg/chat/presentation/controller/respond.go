package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	chat "go-wabridge/internal/pkg/chat/application/domain"
	"go-wabridge/internal/pkg/chat/application/usecase"
)

// storeTimeout bounds handlers that only touch the store.
const storeTimeout = 3 * time.Second

// respondError maps a use case error to its HTTP status once, at the boundary.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, chat.ErrValidation):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, chat.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, usecase.ErrUpstreamAuth):
		status, message = http.StatusUnauthorized, "BSP rejected the credentials"
	case errors.Is(err, usecase.ErrUpstream):
		message = "BSP request failed"
	case errors.Is(err, usecase.ErrPersistence):
		message = "storage error"
	}
	body := gin.H{"success": false, "message": message, "error": err.Error()}
	var unrecorded *usecase.SentNotRecordedError
	if errors.As(err, &unrecorded) {
		status = http.StatusInternalServerError
		body["message"] = "message sent but not recorded"
		body["sent"] = true
		body["externalId"] = unrecorded.ExternalID
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// pagination reads limit/offset with the same defaults as the store.
func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TestBotController lets bot operators check connectivity. POST echoes the body.
type TestBotController struct{}

func NewTestBotController() *TestBotController {
	return &TestBotController{}
}

func (h *TestBotController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"success":   true,
			"message":   "bot endpoint reachable",
			"method":    c.Request.Method,
			"timestamp": time.Now().UTC(),
		}
		if c.Request.Method == http.MethodPost {
			var echo map[string]any
			if err := c.ShouldBindJSON(&echo); err == nil {
				body["echo"] = echo
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

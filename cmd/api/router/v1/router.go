package v1

import (
	"github.com/gin-gonic/gin"

	httpHandler "go-wabridge/internal/pkg/chat/presentation/http"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1, plus the
// unversioned integration endpoints external callers already use.
func RegisterRoutes(r *gin.Engine, svc httpHandler.Services) {
	ctl := httpHandler.NewControllers(svc)

	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, ctl)
	httpHandler.RegisterIntegrationRoutes(r, ctl)
}

package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-wabridge/internal/infrastructure/realtime"
)

// DashboardSocketController upgrades dashboard clients to a websocket that
// receives the business' domain events. It complements polling.
type DashboardSocketController struct {
	router            *realtime.Router
	defaultBusinessID string
	log               zerolog.Logger
}

func NewDashboardSocketController(router *realtime.Router, defaultBusinessID string, log zerolog.Logger) *DashboardSocketController {
	return &DashboardSocketController{router: router, defaultBusinessID: defaultBusinessID, log: log}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type ackFrame struct {
	Type       string `json:"type"`
	BusinessID string `json:"businessId"`
}

// Handle blocks for the lifetime of the socket.
func (ctl *DashboardSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID := strings.TrimSpace(c.Query("businessId"))
		if businessID == "" {
			businessID = ctl.defaultBusinessID
		}
		if businessID == "" {
			badRequest(c, "businessId is required")
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		conn := realtime.NewConnection(businessID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		if payload, err := json.Marshal(ackFrame{Type: "connected", BusinessID: businessID}); err == nil {
			_ = conn.Send(payload)
		}
		ctl.log.Debug().Str("business_id", businessID).Str("conn_id", conn.ID).Msg("dashboard subscribed")
		conn.Serve()
	}
}

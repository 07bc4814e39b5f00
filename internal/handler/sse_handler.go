package handler

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_authnet/internal/middleware"
	"github.com/GTDGit/gtd_authnet/internal/sse"
	"github.com/GTDGit/gtd_authnet/internal/utils"
)

// SSEHandler streams payment request events to the admin console.
type SSEHandler struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSEHandler.
func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: 30 * time.Second}
}

// streamFilter reads the optional clientId and sandbox query parameters.
func streamFilter(c *gin.Context) (sse.Filter, error) {
	var f sse.Filter
	if raw := c.Query("clientId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return f, fmt.Errorf("invalid clientId %q", raw)
		}
		f.ClientID = id
	}
	if raw := c.Query("sandbox"); raw != "" {
		sandbox, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid sandbox %q", raw)
		}
		f.Sandbox = &sandbox
	}
	return f, nil
}

// Stream handles GET /v1/admin/sse behind the JWT middleware.
func (h *SSEHandler) Stream(c *gin.Context) {
	filter, err := streamFilter(c)
	if err != nil {
		utils.Error(c, 400, "INVALID_FILTER", err.Error())
		return
	}

	adminID := middleware.GetAdminID(c)
	clientID := fmt.Sprintf("admin-%d-%d", adminID, time.Now().UnixNano())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(clientID, adminID, filter)
	defer h.hub.Unsubscribe(clientID)

	c.SSEvent("connected", gin.H{
		"clientId":  clientID,
		"timestamp": utils.NowISO(),
	})
	c.Writer.Flush()

	log.Info().Str("client_id", clientID).Int("admin_id", adminID).Msg("Admin SSE stream started")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-sub.Messages:
			if !ok {
				return false
			}
			c.SSEvent(string(msg.Event), string(msg.Data))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"timestamp": utils.NowISO()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

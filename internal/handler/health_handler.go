package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_authnet/internal/utils"
)

var startTime = time.Now()

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	sandbox bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, redis Pinger, sandbox bool) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, sandbox: sandbox}
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// GetHealth responds with service, Postgres and Redis status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := pingStatus(ctx, h.db)
	redisStatus := pingStatus(ctx, h.redis)

	data := gin.H{
		"status":   "healthy",
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"sandbox":  h.sandbox,
		"database": dbStatus,
		"redis":    redisStatus,
	}
	if dbStatus == "disconnected" || redisStatus == "disconnected" {
		data["status"] = "degraded"
		utils.ErrorWithData(c, 503, "SERVICE_DEGRADED", "Service is degraded", data)
		return
	}

	utils.Success(c, 200, "Service is healthy", data)
}

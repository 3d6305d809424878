package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/brevity_server/internal/pkg/response"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  pinger
	rdb *redis.Client
}

func NewHealthHandler(db pinger, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

// Healthz 检查数据库和 Redis
// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "ok"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		log.WithError(err).Warn("database health check failed")
		checks["database"] = "unavailable"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis health check failed")
		checks["redis"] = "unavailable"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:    response.CodeServerError,
			Message: "unhealthy",
			Data:    checks,
		})
		return
	}
	response.Success(c, checks)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	checks []dependencyCheck
}

type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{checks: []dependencyCheck{
		{"postgres", dbPool.Ping},
		{"redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{"rabbitmq", func(context.Context) error {
			if amqpConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}},
	}}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	status := gin.H{"status": "ok"}
	for _, check := range h.checks {
		if err := check.ping(ctx); err != nil {
			status["status"] = "error"
			status[check.name] = "unavailable"
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": gin.H{"message": check.name + " unavailable"}, "data": status})
			return
		}
		status[check.name] = "connected"
	}
	respond(c, http.StatusOK, status)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filmstack/internal/db"
)

// HealthHandler serves the liveness and readiness probes. Liveness only says
// the process is up; readiness also requires the database, since every
// stack, waterfall and simulation endpoint persists through it.
type HealthHandler struct {
	DB *db.DB
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Liveness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "filmstack"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, h.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "db_unreachable",
			"error":  err.Error(),
		})
		return
	}
	stats := db.Stats(h.DB)
	c.JSON(http.StatusOK, gin.H{
		"status":          "ready",
		"db_open_conns":   stats.OpenConnections,
		"db_in_use_conns": stats.InUse,
	})
}

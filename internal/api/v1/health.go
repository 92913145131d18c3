package v1

import (
	"net/http"

	"github.com/freelanceops/billing/internal/api/dto"
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/scheduler"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db        *db.DB
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

func NewHealthHandler(
	db *db.DB,
	scheduler *scheduler.Scheduler,
	logger *logger.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: scheduler,
		logger:    logger,
	}
}

// @Summary Health check
// @Description Reports database reachability and the last scheduler run
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	resp := dto.HealthResponse{Status: "ok", Database: "ok"}

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Errorw("health check failed to reach database", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	if lock, err := h.scheduler.LastRun(ctx); err == nil && lock != nil {
		resp.LastRunAt = lock.LastFinishedAt
		resp.LastRunResult = lock.LastSummary
	}

	c.JSON(http.StatusOK, resp)
}

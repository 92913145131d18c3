package cron

import (
	"net/http"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// SchedulerHandler runs scheduler ticks on demand, for external cron triggers
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

func NewSchedulerHandler(scheduler *scheduler.Scheduler, logger *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RunScheduler runs one full tick, or a fast tick when requested. A run already holding the
// run-lock makes this call return with skipped set.
func (h *SchedulerHandler) RunScheduler(c *gin.Context) {
	h.logger.Infow("starting scheduler run from cron endpoint", "time", time.Now().UTC().Format(time.RFC3339))

	var req dto.RunSchedulerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorw("failed to parse request parameters", "error", err)
			c.Error(ierr.WithError(err).WithHint("invalid request parameters").Mark(ierr.ErrValidation))
			return
		}
	}
	asOf, err := req.AsOfDate()
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.scheduler.Run(c.Request.Context(), asOf, req.Fast)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

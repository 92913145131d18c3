package v1

import (
	"net/http"

	"github.com/freelanceops/billing/internal/api/dto"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/types"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	eventService service.EventService
	log          *logger.Logger
}

func NewEventsHandler(eventService service.EventService, log *logger.Logger) *EventsHandler {
	return &EventsHandler{
		eventService: eventService,
		log:          log,
	}
}

// EmitEvent godoc
// @Summary Emit a business event
// @Description Runs the matching workflow triggers synchronously and returns the audit record
// @Tags Events
// @Accept json
// @Produce json
// @Param event body dto.EmitEventRequest true "Event"
// @Success 202 {object} dto.EventLogResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /events [post]
func (h *EventsHandler) EmitEvent(c *gin.Context) {
	var req dto.EmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind event", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.eventService.EmitEvent(c.Request.Context(), &req)
	if err != nil {
		h.log.Errorw("failed to emit event", "event_type", req.EventType, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// ListEventLog godoc
// @Summary List the workflow event audit log
// @Tags Events
// @Produce json
// @Param filter query types.WorkflowEventLogFilter false "Filter"
// @Success 200 {object} dto.ListEventLogResponse
// @Router /events/log [get]
func (h *EventsHandler) ListEventLog(c *gin.Context) {
	filter := types.NewWorkflowEventLogFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.eventService.ListEventLog(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

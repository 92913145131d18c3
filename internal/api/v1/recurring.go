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

// RecurringInvoiceHandler serves recurring series and one-off scheduled invoices
type RecurringInvoiceHandler struct {
	recurringService service.RecurringInvoiceService
	scheduledService service.ScheduledInvoiceService
	logger           *logger.Logger
}

func NewRecurringInvoiceHandler(
	recurringService service.RecurringInvoiceService,
	scheduledService service.ScheduledInvoiceService,
	logger *logger.Logger,
) *RecurringInvoiceHandler {
	return &RecurringInvoiceHandler{
		recurringService: recurringService,
		scheduledService: scheduledService,
		logger:           logger,
	}
}

// CreateRecurringInvoice godoc
// @Summary Create a recurring invoice series
// @Tags Recurring Invoices
// @Accept json
// @Produce json
// @Param request body dto.CreateRecurringInvoiceRequest true "Series template"
// @Success 201 {object} dto.RecurringInvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices/recurring [post]
func (h *RecurringInvoiceHandler) CreateRecurringInvoice(c *gin.Context) {
	var req dto.CreateRecurringInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.recurringService.CreateRecurringInvoice(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListRecurringInvoices godoc
// @Summary List recurring invoice series
// @Tags Recurring Invoices
// @Produce json
// @Param filter query types.RecurringInvoiceFilter false "Filter"
// @Success 200 {object} dto.ListRecurringInvoicesResponse
// @Router /invoices/recurring [get]
func (h *RecurringInvoiceHandler) ListRecurringInvoices(c *gin.Context) {
	filter := types.NewRecurringInvoiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.recurringService.ListRecurringInvoices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetRecurringInvoice godoc
// @Summary Get a recurring invoice series
// @Tags Recurring Invoices
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} dto.RecurringInvoiceResponse
// @Router /invoices/recurring/{id} [get]
func (h *RecurringInvoiceHandler) GetRecurringInvoice(c *gin.Context) {
	resp, err := h.recurringService.GetRecurringInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PauseRecurringInvoice godoc
// @Summary Pause a recurring invoice series
// @Tags Recurring Invoices
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} dto.RecurringInvoiceResponse
// @Router /invoices/recurring/{id}/pause [post]
func (h *RecurringInvoiceHandler) PauseRecurringInvoice(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.recurringService.PauseRecurringInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to pause recurring invoice", "error", err, "recurring_invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResumeRecurringInvoice godoc
// @Summary Resume a paused recurring invoice series
// @Description Periods that passed while the series was paused are skipped
// @Tags Recurring Invoices
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} dto.RecurringInvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/recurring/{id}/resume [post]
func (h *RecurringInvoiceHandler) ResumeRecurringInvoice(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.recurringService.ResumeRecurringInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to resume recurring invoice", "error", err, "recurring_invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateScheduledInvoice godoc
// @Summary Schedule a one-off invoice
// @Tags Scheduled Invoices
// @Accept json
// @Produce json
// @Param request body dto.CreateScheduledInvoiceRequest true "Schedule"
// @Success 201 {object} dto.ScheduledInvoiceResponse
// @Router /invoices/schedule [post]
func (h *RecurringInvoiceHandler) CreateScheduledInvoice(c *gin.Context) {
	var req dto.CreateScheduledInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.scheduledService.CreateScheduledInvoice(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListScheduledInvoices godoc
// @Summary List scheduled invoices
// @Tags Scheduled Invoices
// @Produce json
// @Param filter query types.ScheduledInvoiceFilter false "Filter"
// @Success 200 {object} dto.ListScheduledInvoicesResponse
// @Router /invoices/scheduled [get]
func (h *RecurringInvoiceHandler) ListScheduledInvoices(c *gin.Context) {
	filter := types.NewScheduledInvoiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.scheduledService.ListScheduledInvoices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetScheduledInvoice godoc
// @Summary Get a scheduled invoice
// @Tags Scheduled Invoices
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.ScheduledInvoiceResponse
// @Router /invoices/scheduled/{id} [get]
func (h *RecurringInvoiceHandler) GetScheduledInvoice(c *gin.Context) {
	resp, err := h.scheduledService.GetScheduledInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelScheduledInvoice godoc
// @Summary Cancel a pending scheduled invoice
// @Tags Scheduled Invoices
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} dto.ScheduledInvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/scheduled/{id} [delete]
func (h *RecurringInvoiceHandler) CancelScheduledInvoice(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.scheduledService.CancelScheduledInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to cancel scheduled invoice", "error", err, "scheduled_invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

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

type TriggerHandler struct {
	triggerService service.TriggerService
	logger         *logger.Logger
}

func NewTriggerHandler(triggerService service.TriggerService, logger *logger.Logger) *TriggerHandler {
	return &TriggerHandler{triggerService: triggerService, logger: logger}
}

// CreateTrigger godoc
// @Summary Create a workflow trigger
// @Tags Workflow Triggers
// @Accept json
// @Produce json
// @Param request body dto.CreateTriggerRequest true "Trigger"
// @Success 201 {object} dto.TriggerResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /triggers [post]
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	var req dto.CreateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.triggerService.CreateTrigger(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListTriggers godoc
// @Summary List workflow triggers
// @Tags Workflow Triggers
// @Produce json
// @Param filter query types.WorkflowTriggerFilter false "Filter"
// @Success 200 {object} dto.ListTriggersResponse
// @Router /triggers [get]
func (h *TriggerHandler) ListTriggers(c *gin.Context) {
	filter := types.NewWorkflowTriggerFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.triggerService.ListTriggers(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTrigger godoc
// @Summary Get a workflow trigger
// @Tags Workflow Triggers
// @Produce json
// @Param id path string true "Trigger ID"
// @Success 200 {object} dto.TriggerResponse
// @Router /triggers/{id} [get]
func (h *TriggerHandler) GetTrigger(c *gin.Context) {
	resp, err := h.triggerService.GetTrigger(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateTrigger godoc
// @Summary Update a workflow trigger
// @Description A masked webhook secret keeps the stored secret
// @Tags Workflow Triggers
// @Accept json
// @Produce json
// @Param id path string true "Trigger ID"
// @Param request body dto.UpdateTriggerRequest true "Fields to update"
// @Success 200 {object} dto.TriggerResponse
// @Router /triggers/{id} [put]
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	var req dto.UpdateTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.triggerService.UpdateTrigger(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteTrigger godoc
// @Summary Delete a workflow trigger
// @Tags Workflow Triggers
// @Param id path string true "Trigger ID"
// @Success 200 {object} dto.SuccessResponse
// @Router /triggers/{id} [delete]
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	if err := h.triggerService.DeleteTrigger(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "trigger deleted successfully"})
}

// ToggleTrigger godoc
// @Summary Flip the active flag of a workflow trigger
// @Tags Workflow Triggers
// @Produce json
// @Param id path string true "Trigger ID"
// @Success 200 {object} dto.TriggerResponse
// @Router /triggers/{id}/toggle [post]
func (h *TriggerHandler) ToggleTrigger(c *gin.Context) {
	resp, err := h.triggerService.ToggleTrigger(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type WebhookDeliveryHandler struct {
	deliveryService service.WebhookDeliveryService
	logger          *logger.Logger
}

func NewWebhookDeliveryHandler(deliveryService service.WebhookDeliveryService, logger *logger.Logger) *WebhookDeliveryHandler {
	return &WebhookDeliveryHandler{deliveryService: deliveryService, logger: logger}
}

// ListDeliveries godoc
// @Summary List outbound webhook deliveries
// @Tags Webhooks
// @Produce json
// @Param filter query types.WebhookDeliveryFilter false "Filter"
// @Success 200 {object} dto.ListWebhookDeliveriesResponse
// @Router /webhooks/deliveries [get]
func (h *WebhookDeliveryHandler) ListDeliveries(c *gin.Context) {
	filter := types.NewWebhookDeliveryFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.deliveryService.ListDeliveries(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetDelivery godoc
// @Summary Get an outbound webhook delivery
// @Tags Webhooks
// @Produce json
// @Param id path string true "Delivery ID"
// @Success 200 {object} dto.WebhookDeliveryResponse
// @Router /webhooks/deliveries/{id} [get]
func (h *WebhookDeliveryHandler) GetDelivery(c *gin.Context) {
	resp, err := h.deliveryService.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RetryDelivery godoc
// @Summary Retry a failed or exhausted webhook delivery now
// @Tags Webhooks
// @Produce json
// @Param id path string true "Delivery ID"
// @Success 200 {object} dto.WebhookDeliveryResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /webhooks/deliveries/{id}/retry [post]
func (h *WebhookDeliveryHandler) RetryDelivery(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.deliveryService.RetryDelivery(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to retry webhook delivery", "error", err, "delivery_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

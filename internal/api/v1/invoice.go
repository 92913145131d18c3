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

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService service.PaymentService
	lateFeeService service.LateFeeService
	logger         *logger.Logger
}

func NewInvoiceHandler(
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	lateFeeService service.LateFeeService,
	logger *logger.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
		lateFeeService: lateFeeService,
		logger:         logger,
	}
}

// CreateInvoice godoc
// @Summary Create a new invoice
// @Description Create a draft invoice with line items
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorw("failed to create invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoice godoc
// @Summary Get an invoice by ID
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invalid invoice id").Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListInvoices godoc
// @Summary List invoices
// @Description List invoices with optional filtering
// @Tags Invoices
// @Produce json
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := types.NewInvoiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		h.logger.Errorw("failed to bind query parameters", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateInvoice godoc
// @Summary Update a draft invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id := c.Param("id")
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request body", "error", err)
		c.Error(ierr.WithError(err).WithHint("failed to bind request body").Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice godoc
// @Summary Delete, void or archive an invoice
// @Description Drafts are deleted, open invoices voided and void invoices archived. Paid invoices are rejected.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.DeleteInvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id := c.Param("id")

	resp, err := h.invoiceService.DeleteInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to delete invoice", "error", err, "invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SendInvoice godoc
// @Summary Send a draft invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	id := c.Param("id")

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to send invoice", "error", err, "invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// MarkViewed godoc
// @Summary Record that the client viewed a sent invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Router /invoices/{id}/view [post]
func (h *InvoiceHandler) MarkViewed(c *gin.Context) {
	invoice, err := h.invoiceService.MarkViewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// VoidInvoice godoc
// @Summary Void an invoice
// @Description Void a sent, viewed or partially paid invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/void [post]
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	id := c.Param("id")

	invoice, err := h.invoiceService.VoidInvoice(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorw("failed to void invoice", "error", err, "invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// RecordPayment godoc
// @Summary Record a payment against an invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.RecordPaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/record-payment [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id := c.Param("id")
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request body", "error", err)
		c.Error(ierr.WithError(err).WithHint("failed to bind request body").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.paymentService.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.logger.Errorw("failed to record payment", "error", err, "invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListPayments godoc
// @Summary List the payments of an invoice in insertion order
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.ListPaymentsResponse
// @Router /invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	resp, err := h.paymentService.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ApplyCredit godoc
// @Summary Apply credit from a paid deposit to this invoice
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Target invoice ID"
// @Param request body dto.ApplyCreditRequest true "Credit"
// @Success 201 {object} dto.ApplyCreditResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /invoices/{id}/apply-credit [post]
func (h *InvoiceHandler) ApplyCredit(c *gin.Context) {
	id := c.Param("id")
	var req dto.ApplyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request body", "error", err)
		c.Error(ierr.WithError(err).WithHint("failed to bind request body").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.paymentService.ApplyCredit(c.Request.Context(), id, req)
	if err != nil {
		h.logger.Errorw("failed to apply credit", "error", err, "target_invoice_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// AvailableCredit godoc
// @Summary Credit left on a paid deposit invoice
// @Tags Payments
// @Produce json
// @Param id path string true "Source invoice ID"
// @Success 200 {object} dto.AvailableCreditResponse
// @Router /invoices/{id}/available-credit [get]
func (h *InvoiceHandler) AvailableCredit(c *gin.Context) {
	resp, err := h.paymentService.AvailableCredit(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Aging godoc
// @Summary Aging report of open invoices
// @Tags Invoices
// @Produce json
// @Param client_id query string false "Client ID"
// @Param project_id query string false "Project ID"
// @Param as_of query string false "Report date, YYYY-MM-DD"
// @Success 200 {object} dto.AgingResponse
// @Router /invoices/aging [get]
func (h *InvoiceHandler) Aging(c *gin.Context) {
	var req dto.AgingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.paymentService.Aging(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ProcessLateFees godoc
// @Summary Assess late fees on overdue invoices
// @Description Runs the late fee batch for as_of, or today. Re-running it on the same day changes nothing.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body dto.ProcessLateFeesRequest false "Batch date"
// @Success 200 {object} dto.ProcessLateFeesResponse
// @Router /invoices/process-late-fees [post]
func (h *InvoiceHandler) ProcessLateFees(c *gin.Context) {
	var req dto.ProcessLateFeesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).WithHint("failed to bind request body").Mark(ierr.ErrValidation))
			return
		}
	}
	asOf, err := dto.AsOfRequest{AsOf: req.AsOf}.Date()
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.lateFeeService.ProcessLateFees(c.Request.Context(), asOf)
	if err != nil {
		h.logger.Errorw("failed to process late fees", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// InvoiceService generates invoices from accepted cashflows
type InvoiceService interface {
	GenerateInvoice(ctx context.Context, bankAccountID uuid.UUID) (*finance.Invoice, error)
	GenerateAll(ctx context.Context) (*appfinance.InvoiceRunReport, error)
	UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status finance.InvoiceStatus) (*finance.Invoice, error)
	DocumentURL(ctx context.Context, id uuid.UUID) (string, error)
}

// InvoiceQueries reads invoices
type InvoiceQueries interface {
	ListInvoices(ctx context.Context, bankAccountID uuid.UUID, filter appfinance.PageFilter) (shared.Paginated[appfinance.InvoiceResponse], error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*appfinance.InvoiceResponse, error)
}

// DocumentResponse carries a download link for an invoice PDF
type DocumentResponse struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	URL       string    `json:"url"`
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	generator InvoiceService
	queries   InvoiceQueries
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(generator InvoiceService, queries InvoiceQueries) *InvoiceHandler {
	return &InvoiceHandler{generator: generator, queries: queries}
}

// Generate invoices the accepted cashflows of a bank account
func (h *InvoiceHandler) Generate(c *gin.Context) {
	bankAccountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.generator.GenerateInvoice(c.Request.Context(), bankAccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToInvoiceResponse(invoice))
}

// GenerateAll invoices every bank account with accepted cashflows
func (h *InvoiceHandler) GenerateAll(c *gin.Context) {
	report, err := h.generator.GenerateAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ListByBankAccount lists the invoices of a bank account
func (h *InvoiceHandler) ListByBankAccount(c *gin.Context) {
	bankAccountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var filter appfinance.PageFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page, err := h.queries.ListInvoices(c.Request.Context(), bankAccountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns an invoice with its lines
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.queries.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// UpdateStatus marks an invoice processed or rejected
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.UpdateInvoiceStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	invoice, err := h.generator.UpdateInvoiceStatus(c.Request.Context(), id, finance.InvoiceStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToInvoiceResponse(invoice))
}

// Document returns a download link for the invoice PDF
func (h *InvoiceHandler) Document(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	url, err := h.generator.DocumentURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DocumentResponse{InvoiceID: id, URL: url})
}

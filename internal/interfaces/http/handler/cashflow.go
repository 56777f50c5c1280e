package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// CashflowService batches pricings and follows cashflow payment
type CashflowService interface {
	RunBatch(ctx context.Context, cutoff time.Time) (*appfinance.BatchResult, error)
	UpdateCashflowStatus(ctx context.Context, id uuid.UUID, status finance.CashflowStatus, details map[string]any) (*finance.Cashflow, error)
}

// CashflowQueries reads cashflows
type CashflowQueries interface {
	ListCashflows(ctx context.Context, bankAccountID uuid.UUID, filter appfinance.CashflowListFilter) (shared.Paginated[appfinance.CashflowResponse], error)
	GetCashflow(ctx context.Context, id uuid.UUID) (*appfinance.CashflowResponse, error)
}

// CashflowHandler handles cashflow endpoints
type CashflowHandler struct {
	BaseHandler
	batcher CashflowService
	queries CashflowQueries
}

// NewCashflowHandler creates a new CashflowHandler
func NewCashflowHandler(batcher CashflowService, queries CashflowQueries) *CashflowHandler {
	return &CashflowHandler{batcher: batcher, queries: queries}
}

// RunBatch groups the pricings validated before the cutoff into cashflows
func (h *CashflowHandler) RunBatch(c *gin.Context) {
	var req appfinance.RunBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.batcher.RunBatch(c.Request.Context(), req.Cutoff)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToBatchResponse(result))
}

// ListByBankAccount lists the cashflows of a bank account
func (h *CashflowHandler) ListByBankAccount(c *gin.Context) {
	bankAccountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var filter appfinance.CashflowListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page, err := h.queries.ListCashflows(c.Request.Context(), bankAccountID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns a cashflow with its pricings and logs
func (h *CashflowHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cashflow, err := h.queries.GetCashflow(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cashflow)
}

// UpdateStatus records a payment outcome for a cashflow
func (h *CashflowHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.UpdateCashflowStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cashflow, err := h.batcher.UpdateCashflowStatus(c.Request.Context(), id, finance.CashflowStatus(req.Status), req.Details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToCashflowResponse(cashflow))
}

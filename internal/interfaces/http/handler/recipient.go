package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// RecipientService registers where reimbursements are paid
type RecipientService interface {
	RegisterBankAccount(ctx context.Context, req appfinance.RegisterBankAccountRequest) (*finance.BankAccount, error)
	SetBankAccountActive(ctx context.Context, bankAccountID uuid.UUID, active bool) (*finance.BankAccount, error)
	LinkPricingPoint(ctx context.Context, pricingPointID, bankAccountID uuid.UUID) error
}

// SummaryQueries computes bank account totals
type SummaryQueries interface {
	BankAccountSummary(ctx context.Context, bankAccountID uuid.UUID) (*appfinance.BankAccountSummary, error)
}

// PricingPointLinkResponse answers a bank account link
type PricingPointLinkResponse struct {
	PricingPointID uuid.UUID `json:"pricing_point_id"`
	BankAccountID  uuid.UUID `json:"bank_account_id"`
}

// RecipientHandler handles bank account endpoints
type RecipientHandler struct {
	BaseHandler
	recipients RecipientService
	queries    SummaryQueries
}

// NewRecipientHandler creates a new RecipientHandler
func NewRecipientHandler(recipients RecipientService, queries SummaryQueries) *RecipientHandler {
	return &RecipientHandler{recipients: recipients, queries: queries}
}

// RegisterBankAccount creates a bank account
func (h *RecipientHandler) RegisterBankAccount(c *gin.Context) {
	var req appfinance.RegisterBankAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.recipients.RegisterBankAccount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToBankAccountResponse(account))
}

// SetStatus activates or deactivates a bank account
func (h *RecipientHandler) SetStatus(c *gin.Context) {
	bankAccountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.BankAccountStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	account, err := h.recipients.SetBankAccountActive(c.Request.Context(), bankAccountID, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToBankAccountResponse(account))
}

// LinkPricingPoint points a pricing point at the bank account paid for it
func (h *RecipientHandler) LinkPricingPoint(c *gin.Context) {
	pricingPointID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.LinkBankAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.recipients.LinkPricingPoint(c.Request.Context(), pricingPointID, req.BankAccountID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PricingPointLinkResponse{PricingPointID: pricingPointID, BankAccountID: req.BankAccountID})
}

// Summary returns what a bank account has been priced, paid and invoiced
func (h *RecipientHandler) Summary(c *gin.Context) {
	bankAccountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	summary, err := h.queries.BankAccountSummary(c.Request.Context(), bankAccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

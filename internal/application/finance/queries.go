package finance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// Queries is the read side of the ledger
type Queries struct {
	scope TransactionScope
}

// NewQueries creates a new Queries
func NewQueries(scope TransactionScope) *Queries {
	return &Queries{scope: scope}
}

func optionalID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage("invalid id " + raw)
	}
	return &id, nil
}

func pageOf(page, pageSize int) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 {
		f.PageSize = pageSize
	}
	return f
}

// ListEvents lists finance events, newest ordering date first
func (q *Queries) ListEvents(ctx context.Context, filter EventListFilter) (shared.Paginated[EventResponse], error) {
	f := finance.EventFilter{Filter: pageOf(filter.Page, filter.PageSize)}
	var err error
	if f.PricingPointID, err = optionalID(filter.PricingPointID); err != nil {
		return shared.Paginated[EventResponse]{}, err
	}
	if f.VenueID, err = optionalID(filter.VenueID); err != nil {
		return shared.Paginated[EventResponse]{}, err
	}
	f.OrderBy, f.OrderDir = filter.SortBy, filter.SortOrder
	if filter.Status != "" {
		s := finance.FinanceEventStatus(filter.Status)
		f.Status = &s
	}
	if filter.Motive != "" {
		m := finance.FinanceEventMotive(filter.Motive)
		f.Motive = &m
	}
	var (
		events []*finance.FinanceEvent
		total  int64
	)
	err = q.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		events, total, err = repos.EventRepo().List(ctx, f)
		return err
	})
	if err != nil {
		return shared.Paginated[EventResponse]{}, err
	}
	items := make([]EventResponse, len(events))
	for i, e := range events {
		items[i] = ToEventResponse(e)
	}
	return shared.NewPaginated(items, total, f.Page, f.Limit()), nil
}

// GetEvent returns one finance event
func (q *Queries) GetEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	var resp EventResponse
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		e, err := repos.EventRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToEventResponse(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPricing returns a pricing with its lines and audit trail
func (q *Queries) GetPricing(ctx context.Context, id uuid.UUID) (*PricingResponse, error) {
	var resp PricingResponse
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		p, err := repos.PricingRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		logs, err := repos.PricingLogRepo().ListByPricing(ctx, id)
		if err != nil {
			return err
		}
		resp = ToPricingResponse(p, logs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCashflows lists the cashflows of a bank account, newest first
func (q *Queries) ListCashflows(ctx context.Context, bankAccountID uuid.UUID, filter CashflowListFilter) (shared.Paginated[CashflowResponse], error) {
	f := finance.CashflowFilter{
		Filter:        pageOf(filter.Page, filter.PageSize),
		BankAccountID: &bankAccountID,
	}
	f.OrderBy, f.OrderDir = filter.SortBy, filter.SortOrder
	if filter.Status != "" {
		s := finance.CashflowStatus(filter.Status)
		f.Status = &s
	}
	var (
		cashflows []*finance.Cashflow
		total     int64
	)
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		cashflows, total, err = repos.CashflowRepo().List(ctx, f)
		return err
	})
	if err != nil {
		return shared.Paginated[CashflowResponse]{}, err
	}
	items := make([]CashflowResponse, len(cashflows))
	for i, c := range cashflows {
		items[i] = ToCashflowResponse(c)
	}
	return shared.NewPaginated(items, total, f.Page, f.Limit()), nil
}

// GetCashflow returns a cashflow with its pricings and status history
func (q *Queries) GetCashflow(ctx context.Context, id uuid.UUID) (*CashflowResponse, error) {
	var resp CashflowResponse
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		c, err := repos.CashflowRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		pricings, err := repos.PricingRepo().ListByIDs(ctx, c.PricingIDs)
		if err != nil {
			return err
		}
		logs, err := repos.CashflowRepo().ListLogs(ctx, id)
		if err != nil {
			return err
		}
		resp = ToCashflowResponse(c)
		for _, p := range pricings {
			resp.Pricings = append(resp.Pricings, ToPricingResponse(p, nil))
		}
		for _, l := range logs {
			resp.Logs = append(resp.Logs, CashflowLogResponse{
				StatusBefore: string(l.StatusBefore),
				StatusAfter:  string(l.StatusAfter),
				Details:      l.Details,
				Timestamp:    l.Timestamp,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListInvoices lists the invoices of a bank account, newest first
func (q *Queries) ListInvoices(ctx context.Context, bankAccountID uuid.UUID, filter PageFilter) (shared.Paginated[InvoiceResponse], error) {
	f := pageOf(filter.Page, filter.PageSize)
	var (
		invoices []*finance.Invoice
		total    int64
	)
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		invoices, total, err = repos.InvoiceRepo().ListByBankAccount(ctx, bankAccountID, f)
		return err
	})
	if err != nil {
		return shared.Paginated[InvoiceResponse]{}, err
	}
	items := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = ToInvoiceResponse(inv)
		items[i].Lines = nil
	}
	return shared.NewPaginated(items, total, f.Page, f.Limit()), nil
}

// GetInvoice returns an invoice with its lines
func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	var resp InvoiceResponse
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		inv, err := repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToInvoiceResponse(inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetIncident returns a finance incident with its bookings
func (q *Queries) GetIncident(ctx context.Context, id uuid.UUID) (*IncidentResponse, error) {
	var resp IncidentResponse
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		f, err := repos.IncidentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToIncidentResponse(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// BankAccountSummary totals the active pricings of a bank account by stage
func (q *Queries) BankAccountSummary(ctx context.Context, bankAccountID uuid.UUID) (*BankAccountSummary, error) {
	summary := &BankAccountSummary{BankAccountID: bankAccountID}
	err := q.scope.Execute(ctx, func(repos Repositories) error {
		if _, err := repos.RecipientRepo().FindBankAccount(ctx, bankAccountID); err != nil {
			return err
		}
		sums, err := repos.PricingRepo().SumByStatusForBankAccount(ctx, bankAccountID)
		if err != nil {
			return err
		}
		summary.TotalPending = sums[finance.PricingStatusValidated]
		summary.TotalInCashflows = sums[finance.PricingStatusProcessed]
		summary.TotalInvoiced = sums[finance.PricingStatusInvoiced]
		summary.TotalPriced = summary.TotalPending + summary.TotalInCashflows + summary.TotalInvoiced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RecipientService registers bank accounts and links pricing points to them
type RecipientService struct {
	scope TransactionScope
	now   func() time.Time
}

// NewRecipientService creates a new RecipientService
func NewRecipientService(scope TransactionScope) *RecipientService {
	return &RecipientService{scope: scope, now: time.Now}
}

// RegisterBankAccount creates an active bank account
func (s *RecipientService) RegisterBankAccount(ctx context.Context, req RegisterBankAccountRequest) (*finance.BankAccount, error) {
	iban := strings.ToUpper(strings.ReplaceAll(req.IBAN, " ", ""))
	if len(iban) < 15 {
		return nil, shared.ErrInvalidInput.WithMessage("invalid iban")
	}
	account := &finance.BankAccount{
		ID:        uuid.New(),
		Label:     strings.TrimSpace(req.Label),
		IBAN:      iban,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		return repos.RecipientRepo().SaveBankAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetBankAccountActive turns transfers to the bank account on or off. Pricings
// owed to an inactive account stay validated until it is reactivated.
func (s *RecipientService) SetBankAccountActive(ctx context.Context, bankAccountID uuid.UUID, active bool) (*finance.BankAccount, error) {
	var account *finance.BankAccount
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		account, err = repos.RecipientRepo().FindBankAccount(ctx, bankAccountID)
		if err != nil {
			return err
		}
		account.Active = active
		return repos.RecipientRepo().SaveBankAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// LinkPricingPoint makes the bank account the one paid for the pricing point
func (s *RecipientService) LinkPricingPoint(ctx context.Context, pricingPointID, bankAccountID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos Repositories) error {
		account, err := repos.RecipientRepo().FindBankAccount(ctx, bankAccountID)
		if err != nil {
			return err
		}
		if !account.Active {
			return shared.ErrInvalidState.WithMessage("bank account " + bankAccountID.String() + " is inactive")
		}
		return repos.RecipientRepo().LinkPricingPoint(ctx, finance.PricingPointLink{
			PricingPointID: pricingPointID,
			BankAccountID:  bankAccountID,
			LinkedAt:       s.now().UTC(),
		})
	})
}

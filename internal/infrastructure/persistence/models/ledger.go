package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FinanceEventModel is the persistence model for the FinanceEvent aggregate root.
// Exactly one of the three reference columns is set (CHECK num_nonnulls = 1).
type FinanceEventModel struct {
	AggregateModel
	ValueDate                time.Time                  `gorm:"not null"`
	PricingOrderingDate      time.Time                  `gorm:"not null;index:idx_finance_events_ordering,priority:2"`
	Status                   finance.FinanceEventStatus `gorm:"type:varchar(20);not null;index:idx_finance_events_ordering,priority:1"`
	Motive                   finance.FinanceEventMotive `gorm:"type:varchar(50);not null"`
	BookingID                *uuid.UUID                 `gorm:"type:uuid;index"`
	CollectiveBookingID      *uuid.UUID                 `gorm:"type:uuid;index"`
	BookingFinanceIncidentID *uuid.UUID                 `gorm:"type:uuid;index"`
	VenueID                  uuid.UUID                  `gorm:"type:uuid;not null;index"`
	PricingPointID           *uuid.UUID                 `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (FinanceEventModel) TableName() string {
	return "finance_events"
}

// ToDomain converts the persistence model to a domain FinanceEvent
func (m *FinanceEventModel) ToDomain() (*finance.FinanceEvent, error) {
	ref, err := finance.ReferenceColumns{
		BookingID:                m.BookingID,
		CollectiveBookingID:      m.CollectiveBookingID,
		BookingFinanceIncidentID: m.BookingFinanceIncidentID,
	}.Reference()
	if err != nil {
		return nil, err
	}
	return &finance.FinanceEvent{
		BaseAggregateRoot:   m.ToAggregateRoot(),
		ValueDate:           m.ValueDate.UTC(),
		PricingOrderingDate: m.PricingOrderingDate.UTC(),
		Status:              m.Status,
		Motive:              m.Motive,
		Reference:           ref,
		VenueID:             m.VenueID,
		PricingPointID:      m.PricingPointID,
	}, nil
}

// FinanceEventModelFromDomain creates a new persistence model from a domain FinanceEvent
func FinanceEventModelFromDomain(e *finance.FinanceEvent) *FinanceEventModel {
	cols := finance.ColumnsOf(e.Reference)
	m := &FinanceEventModel{
		ValueDate:                e.ValueDate,
		PricingOrderingDate:      e.PricingOrderingDate,
		Status:                   e.Status,
		Motive:                   e.Motive,
		BookingID:                cols.BookingID,
		CollectiveBookingID:      cols.CollectiveBookingID,
		BookingFinanceIncidentID: cols.BookingFinanceIncidentID,
		VenueID:                  e.VenueID,
		PricingPointID:           e.PricingPointID,
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}

// PricingModel is the persistence model for Pricing. Only status and
// updated_at change after insert.
type PricingModel struct {
	BaseModel
	EventID             uuid.UUID             `gorm:"type:uuid;not null;index"`
	VenueID             uuid.UUID             `gorm:"type:uuid;not null"`
	PricingPointID      uuid.UUID             `gorm:"type:uuid;not null;index:idx_pricings_point_value_date,priority:1"`
	BookingID           *uuid.UUID            `gorm:"type:uuid;index"`
	CollectiveBookingID *uuid.UUID            `gorm:"type:uuid;index"`
	Status              finance.PricingStatus `gorm:"type:varchar(20);not null;index"`
	Amount              int64                 `gorm:"not null"`
	Revenue             int64                 `gorm:"not null"`
	RuleCategory        string                `gorm:"type:varchar(100);not null"`
	RuleRate            decimal.Decimal       `gorm:"type:decimal(6,4);not null"`
	ValueDate           time.Time             `gorm:"not null;index:idx_pricings_point_value_date,priority:2"`
	FromIncident        bool                  `gorm:"not null;default:false"`
	Lines               []PricingLineModel    `gorm:"foreignKey:PricingID;references:ID"`
}

// TableName returns the table name for GORM
func (PricingModel) TableName() string {
	return "pricings"
}

// PricingLineModel is one category line of a pricing
type PricingLineModel struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primary_key"`
	PricingID uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Category  finance.PricingLineCategory `gorm:"type:varchar(50);not null"`
	Amount    int64                       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PricingLineModel) TableName() string {
	return "pricing_lines"
}

// ToDomain converts the persistence model to a domain Pricing
func (m *PricingModel) ToDomain() (*finance.Pricing, error) {
	ref, err := finance.ReferenceColumns{
		BookingID:           m.BookingID,
		CollectiveBookingID: m.CollectiveBookingID,
	}.BookingReference()
	if err != nil {
		return nil, err
	}
	lines := make([]finance.PricingLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = finance.PricingLine{ID: l.ID, Category: l.Category, Amount: l.Amount}
	}
	return finance.RehydratePricing(finance.RehydratedPricing{
		ID:             m.ID,
		EventID:        m.EventID,
		VenueID:        m.VenueID,
		PricingPointID: m.PricingPointID,
		BookingRef:     ref,
		Amount:         m.Amount,
		Revenue:        m.Revenue,
		Rule:           finance.ReimbursementRule{Category: m.RuleCategory, Rate: m.RuleRate},
		ValueDate:      m.ValueDate.UTC(),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		FromIncident:   m.FromIncident,
		Status:         m.Status,
		Lines:          lines,
	}), nil
}

// PricingModelFromDomain creates a new persistence model from a domain Pricing
func PricingModelFromDomain(p *finance.Pricing) *PricingModel {
	cols := finance.ColumnsOf(p.BookingRef())
	m := &PricingModel{
		BaseModel: BaseModel{
			ID:        p.ID(),
			CreatedAt: p.CreatedAt(),
			UpdatedAt: p.UpdatedAt(),
		},
		EventID:             p.EventID(),
		VenueID:             p.VenueID(),
		PricingPointID:      p.PricingPointID(),
		BookingID:           cols.BookingID,
		CollectiveBookingID: cols.CollectiveBookingID,
		Status:              p.Status(),
		Amount:              p.Amount(),
		Revenue:             p.Revenue(),
		RuleCategory:        p.Rule().Category,
		RuleRate:            p.Rule().Rate,
		ValueDate:           p.ValueDate(),
		FromIncident:        p.FromIncident(),
	}
	for _, l := range p.Lines() {
		m.Lines = append(m.Lines, PricingLineModel{
			ID:        l.ID,
			PricingID: p.ID(),
			Category:  l.Category,
			Amount:    l.Amount,
		})
	}
	return m
}

// PricingLogModel is an append-only audit row of a pricing status change
type PricingLogModel struct {
	ID           uuid.UUID                `gorm:"type:uuid;primary_key"`
	PricingID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	StatusBefore *finance.PricingStatus   `gorm:"type:varchar(20)"`
	StatusAfter  finance.PricingStatus    `gorm:"type:varchar(20);not null"`
	Reason       finance.PricingLogReason `gorm:"type:varchar(50);not null"`
	Timestamp    time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PricingLogModel) TableName() string {
	return "pricing_logs"
}

// ToDomain converts the persistence model to a domain PricingLog
func (m *PricingLogModel) ToDomain() finance.PricingLog {
	return finance.PricingLog{
		ID:           m.ID,
		PricingID:    m.PricingID,
		StatusBefore: m.StatusBefore,
		StatusAfter:  m.StatusAfter,
		Reason:       m.Reason,
		Timestamp:    m.Timestamp.UTC(),
	}
}

// PricingLogModelFromDomain creates a new persistence model from a domain PricingLog
func PricingLogModelFromDomain(l finance.PricingLog) *PricingLogModel {
	return &PricingLogModel{
		ID:           l.ID,
		PricingID:    l.PricingID,
		StatusBefore: l.StatusBefore,
		StatusAfter:  l.StatusAfter,
		Reason:       l.Reason,
		Timestamp:    l.Timestamp,
	}
}

// CashflowBatchModel is the persistence model for CashflowBatch
type CashflowBatchModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Cutoff    time.Time `gorm:"not null;uniqueIndex"`
	Label     string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashflowBatchModel) TableName() string {
	return "cashflow_batches"
}

// ToDomain converts the persistence model to a domain CashflowBatch
func (m *CashflowBatchModel) ToDomain() *finance.CashflowBatch {
	return &finance.CashflowBatch{
		ID:        m.ID,
		Cutoff:    m.Cutoff.UTC(),
		Label:     m.Label,
		CreatedAt: m.CreatedAt,
	}
}

// CashflowModel is the persistence model for the Cashflow aggregate root
type CashflowModel struct {
	AggregateModel
	BatchID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	BankAccountID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Amount        int64                  `gorm:"not null"`
	Status        finance.CashflowStatus `gorm:"type:varchar(20);not null;index"`
	Pricings      []CashflowPricingModel `gorm:"foreignKey:CashflowID;references:ID"`
}

// TableName returns the table name for GORM
func (CashflowModel) TableName() string {
	return "cashflows"
}

// CashflowPricingModel links a cashflow to the pricings it pays
type CashflowPricingModel struct {
	CashflowID uuid.UUID `gorm:"type:uuid;primaryKey"`
	PricingID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (CashflowPricingModel) TableName() string {
	return "cashflow_pricings"
}

// ToDomain converts the persistence model to a domain Cashflow
func (m *CashflowModel) ToDomain() *finance.Cashflow {
	cf := &finance.Cashflow{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BatchID:           m.BatchID,
		BankAccountID:     m.BankAccountID,
		Amount:            m.Amount,
		Status:            m.Status,
		PricingIDs:        make([]uuid.UUID, len(m.Pricings)),
	}
	for i, p := range m.Pricings {
		cf.PricingIDs[i] = p.PricingID
	}
	return cf
}

// CashflowModelFromDomain creates a new persistence model from a domain Cashflow
func CashflowModelFromDomain(c *finance.Cashflow) *CashflowModel {
	m := &CashflowModel{
		BatchID:       c.BatchID,
		BankAccountID: c.BankAccountID,
		Amount:        c.Amount,
		Status:        c.Status,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	for _, id := range c.PricingIDs {
		m.Pricings = append(m.Pricings, CashflowPricingModel{CashflowID: c.ID, PricingID: id})
	}
	return m
}

// CashflowLogModel is an append-only row of a cashflow status change
type CashflowLogModel struct {
	ID           uuid.UUID              `gorm:"type:uuid;primary_key"`
	CashflowID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	StatusBefore finance.CashflowStatus `gorm:"type:varchar(20);not null"`
	StatusAfter  finance.CashflowStatus `gorm:"type:varchar(20);not null"`
	Details      datatypes.JSONMap      `gorm:"type:jsonb"`
	Timestamp    time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashflowLogModel) TableName() string {
	return "cashflow_logs"
}

// ToDomain converts the persistence model to a domain CashflowLog
func (m *CashflowLogModel) ToDomain() finance.CashflowLog {
	return finance.CashflowLog{
		ID:           m.ID,
		CashflowID:   m.CashflowID,
		StatusBefore: m.StatusBefore,
		StatusAfter:  m.StatusAfter,
		Details:      map[string]any(m.Details),
		Timestamp:    m.Timestamp.UTC(),
	}
}

// CashflowLogModelFromDomain creates a new persistence model from a domain CashflowLog
func CashflowLogModelFromDomain(l finance.CashflowLog) *CashflowLogModel {
	return &CashflowLogModel{
		ID:           l.ID,
		CashflowID:   l.CashflowID,
		StatusBefore: l.StatusBefore,
		StatusAfter:  l.StatusAfter,
		Details:      datatypes.JSONMap(l.Details),
		Timestamp:    l.Timestamp,
	}
}

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	AggregateModel
	BankAccountID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Date          time.Time              `gorm:"not null"`
	Reference     string                 `gorm:"type:varchar(20);not null;uniqueIndex"`
	Token         string                 `gorm:"type:varchar(64);not null;uniqueIndex"`
	Amount        int64                  `gorm:"not null"`
	Status        finance.InvoiceStatus  `gorm:"type:varchar(20);not null"`
	Lines         []InvoiceLineModel     `gorm:"foreignKey:InvoiceID;references:ID"`
	Cashflows     []InvoiceCashflowModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineModel is one group line of an invoice. The group key is kept as JSON.
type InvoiceLineModel struct {
	ID                 uuid.UUID                                    `gorm:"type:uuid;primary_key"`
	InvoiceID          uuid.UUID                                    `gorm:"type:uuid;not null;index"`
	Label              string                                       `gorm:"type:varchar(200);not null"`
	Group              datatypes.JSONType[finance.InvoiceLineGroup] `gorm:"column:group_key;type:jsonb;not null"`
	ContributionAmount int64                                        `gorm:"not null"`
	ReimbursedAmount   int64                                        `gorm:"not null"`
	Rate               decimal.Decimal                              `gorm:"type:decimal(6,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// InvoiceCashflowModel links an invoice to the cashflows it covers.
// A cashflow is invoiced at most once.
type InvoiceCashflowModel struct {
	InvoiceID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CashflowID uuid.UUID `gorm:"type:uuid;primaryKey;uniqueIndex"`
}

// TableName returns the table name for GORM
func (InvoiceCashflowModel) TableName() string {
	return "invoice_cashflows"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	inv := &finance.Invoice{
		BaseAggregateRoot: m.ToAggregateRoot(),
		BankAccountID:     m.BankAccountID,
		Date:              m.Date.UTC(),
		Reference:         m.Reference,
		Token:             m.Token,
		Amount:            m.Amount,
		Status:            m.Status,
	}
	for _, c := range m.Cashflows {
		inv.CashflowIDs = append(inv.CashflowIDs, c.CashflowID)
	}
	for _, l := range m.Lines {
		inv.Lines = append(inv.Lines, finance.InvoiceLine{
			ID:                 l.ID,
			InvoiceID:          l.InvoiceID,
			Label:              l.Label,
			Group:              l.Group.Data(),
			ContributionAmount: l.ContributionAmount,
			ReimbursedAmount:   l.ReimbursedAmount,
			Rate:               l.Rate,
		})
	}
	return inv
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		BankAccountID: inv.BankAccountID,
		Date:          inv.Date,
		Reference:     inv.Reference,
		Token:         inv.Token,
		Amount:        inv.Amount,
		Status:        inv.Status,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	for _, id := range inv.CashflowIDs {
		m.Cashflows = append(m.Cashflows, InvoiceCashflowModel{InvoiceID: inv.ID, CashflowID: id})
	}
	for _, l := range inv.Lines {
		m.Lines = append(m.Lines, InvoiceLineModel{
			ID:                 l.ID,
			InvoiceID:          inv.ID,
			Label:              l.Label,
			Group:              datatypes.NewJSONType(l.Group),
			ContributionAmount: l.ContributionAmount,
			ReimbursedAmount:   l.ReimbursedAmount,
			Rate:               l.Rate,
		})
	}
	return m
}

// FinanceIncidentModel is the persistence model for the FinanceIncident aggregate root
type FinanceIncidentModel struct {
	AggregateModel
	VenueID          uuid.UUID              `gorm:"type:uuid;not null;index"`
	Kind             finance.IncidentKind   `gorm:"type:varchar(30);not null"`
	Status           finance.IncidentStatus `gorm:"type:varchar(20);not null;index"`
	Origin           string                 `gorm:"type:varchar(200)"`
	Comment          string                 `gorm:"type:text"`
	ValidatedAt      *time.Time
	BookingIncidents []BookingFinanceIncidentModel `gorm:"foreignKey:IncidentID;references:ID"`
}

// TableName returns the table name for GORM
func (FinanceIncidentModel) TableName() string {
	return "finance_incidents"
}

// BookingFinanceIncidentModel is the part of an incident about one booking
type BookingFinanceIncidentModel struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key"`
	IncidentID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	BookingID           *uuid.UUID `gorm:"type:uuid;index"`
	CollectiveBookingID *uuid.UUID `gorm:"type:uuid;index"`
	OriginalAmount      int64      `gorm:"not null"`
	NewTotalAmount      int64      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BookingFinanceIncidentModel) TableName() string {
	return "booking_finance_incidents"
}

// ToDomain converts the persistence model to a domain BookingFinanceIncident
func (m *BookingFinanceIncidentModel) ToDomain() (finance.BookingFinanceIncident, error) {
	ref, err := finance.ReferenceColumns{
		BookingID:           m.BookingID,
		CollectiveBookingID: m.CollectiveBookingID,
	}.BookingReference()
	if err != nil {
		return finance.BookingFinanceIncident{}, err
	}
	return finance.BookingFinanceIncident{
		ID:             m.ID,
		IncidentID:     m.IncidentID,
		BookingRef:     ref,
		OriginalAmount: m.OriginalAmount,
		NewTotalAmount: m.NewTotalAmount,
	}, nil
}

// ToDomain converts the persistence model to a domain FinanceIncident
func (m *FinanceIncidentModel) ToDomain() (*finance.FinanceIncident, error) {
	inc := &finance.FinanceIncident{
		BaseAggregateRoot: m.ToAggregateRoot(),
		VenueID:           m.VenueID,
		Kind:              m.Kind,
		Status:            m.Status,
		Origin:            m.Origin,
		Comment:           m.Comment,
		ValidatedAt:       m.ValidatedAt,
	}
	for i := range m.BookingIncidents {
		bi, err := m.BookingIncidents[i].ToDomain()
		if err != nil {
			return nil, err
		}
		inc.BookingIncidents = append(inc.BookingIncidents, bi)
	}
	return inc, nil
}

// FinanceIncidentModelFromDomain creates a new persistence model from a domain FinanceIncident
func FinanceIncidentModelFromDomain(f *finance.FinanceIncident) *FinanceIncidentModel {
	m := &FinanceIncidentModel{
		VenueID:     f.VenueID,
		Kind:        f.Kind,
		Status:      f.Status,
		Origin:      f.Origin,
		Comment:     f.Comment,
		ValidatedAt: f.ValidatedAt,
	}
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	for _, b := range f.BookingIncidents {
		cols := finance.ColumnsOf(b.BookingRef)
		m.BookingIncidents = append(m.BookingIncidents, BookingFinanceIncidentModel{
			ID:                  b.ID,
			IncidentID:          f.ID,
			BookingID:           cols.BookingID,
			CollectiveBookingID: cols.CollectiveBookingID,
			OriginalAmount:      b.OriginalAmount,
			NewTotalAmount:      b.NewTotalAmount,
		})
	}
	return m
}

// BookingSnapshotModel stores the ledger's copy of a booking
type BookingSnapshotModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Kind          finance.BookingKind `gorm:"type:varchar(20);primaryKey"`
	VenueID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	OfferCategory string              `gorm:"type:varchar(100)"`
	Amount        int64               `gorm:"not null"`
	UsedAt        time.Time           `gorm:"not null"`
	CancelledAt   *time.Time
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BookingSnapshotModel) TableName() string {
	return "booking_snapshots"
}

// ToDomain converts the persistence model to a domain BookingSnapshot
func (m *BookingSnapshotModel) ToDomain() *finance.BookingSnapshot {
	return &finance.BookingSnapshot{
		ID:            m.ID,
		Kind:          m.Kind,
		VenueID:       m.VenueID,
		OfferCategory: m.OfferCategory,
		Amount:        m.Amount,
		UsedAt:        m.UsedAt.UTC(),
		CancelledAt:   m.CancelledAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// BookingSnapshotModelFromDomain creates a new persistence model from a domain BookingSnapshot
func BookingSnapshotModelFromDomain(b *finance.BookingSnapshot) *BookingSnapshotModel {
	return &BookingSnapshotModel{
		ID:            b.ID,
		Kind:          b.Kind,
		VenueID:       b.VenueID,
		OfferCategory: b.OfferCategory,
		Amount:        b.Amount,
		UsedAt:        b.UsedAt,
		CancelledAt:   b.CancelledAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// BankAccountModel is the persistence model for BankAccount
type BankAccountModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Label     string    `gorm:"type:varchar(140);not null"`
	IBAN      string    `gorm:"column:iban;type:varchar(34);not null"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *finance.BankAccount {
	return &finance.BankAccount{
		ID:        m.ID,
		Label:     m.Label,
		IBAN:      m.IBAN,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
	}
}

// PricingPointBankAccountModel maps a pricing point to the bank account paid for it
type PricingPointBankAccountModel struct {
	PricingPointID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BankAccountID  uuid.UUID `gorm:"type:uuid;not null;index"`
	LinkedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PricingPointBankAccountModel) TableName() string {
	return "pricing_point_bank_accounts"
}

// VenuePricingPointModel maps a venue to its pricing point
type VenuePricingPointModel struct {
	VenueID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PricingPointID uuid.UUID `gorm:"type:uuid;not null;index"`
	LinkedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VenuePricingPointModel) TableName() string {
	return "venue_pricing_points"
}

// LedgerModels lists every model of the ledger schema, in dependency order
func LedgerModels() []any {
	return []any{
		&BankAccountModel{},
		&PricingPointBankAccountModel{},
		&VenuePricingPointModel{},
		&BookingSnapshotModel{},
		&FinanceEventModel{},
		&PricingModel{},
		&PricingLineModel{},
		&PricingLogModel{},
		&CashflowBatchModel{},
		&CashflowModel{},
		&CashflowPricingModel{},
		&CashflowLogModel{},
		&InvoiceModel{},
		&InvoiceLineModel{},
		&InvoiceCashflowModel{},
		&FinanceIncidentModel{},
		&BookingFinanceIncidentModel{},
	}
}

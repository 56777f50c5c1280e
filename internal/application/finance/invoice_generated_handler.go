package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceGeneratedHandler handles InvoiceGeneratedEvent and marks as invoiced
// the incidents whose compensating pricings are now all invoiced
type InvoiceGeneratedHandler struct {
	scope  TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewInvoiceGeneratedHandler creates a new handler for invoice generated events
func NewInvoiceGeneratedHandler(scope TransactionScope, logger *zap.Logger) *InvoiceGeneratedHandler {
	return &InvoiceGeneratedHandler{
		scope:  scope,
		logger: logger,
		now:    time.Now,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceGeneratedHandler) EventTypes() []string {
	return []string{finance.EventTypeInvoiceGenerated}
}

// Handle processes an InvoiceGeneratedEvent
func (h *InvoiceGeneratedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	generated, ok := event.(*finance.InvoiceGeneratedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", finance.EventTypeInvoiceGenerated),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			finance.EventTypeInvoiceGenerated, event.EventType())
	}

	var incidentIDs []uuid.UUID
	err := h.scope.Execute(ctx, func(repos Repositories) error {
		pricings, err := repos.PricingRepo().ListByCashflows(ctx, generated.CashflowIDs)
		if err != nil {
			return err
		}
		var eventIDs []uuid.UUID
		for _, p := range pricings {
			if p.FromIncident() {
				eventIDs = append(eventIDs, p.EventID())
			}
		}
		if len(eventIDs) == 0 {
			return nil
		}
		events, err := repos.EventRepo().ListByIDs(ctx, eventIDs)
		if err != nil {
			return err
		}
		var bookingIncidentIDs []uuid.UUID
		for _, ev := range events {
			if ref, ok := ev.Reference.(finance.IncidentRef); ok {
				bookingIncidentIDs = append(bookingIncidentIDs, ref.BookingFinanceIncidentID)
			}
		}
		incidentIDs, err = repos.IncidentRepo().ListIncidentIDsByBookingIncidents(ctx, bookingIncidentIDs)
		return err
	})
	if err != nil {
		h.logger.Error("failed to resolve invoiced incidents",
			zap.String("reference", generated.Reference),
			zap.Error(err),
		)
		return fmt.Errorf("failed to resolve invoiced incidents: %w", err)
	}

	for _, id := range incidentIDs {
		err := h.scope.Execute(ctx, func(repos Repositories) error {
			incident, err := repos.IncidentRepo().FindByID(ctx, id)
			if err != nil {
				return err
			}
			return markIncidentInvoiced(ctx, repos, incident, h.now())
		})
		switch {
		case err == nil:
			h.logger.Info("finance incident invoiced",
				zap.String("incident_id", id.String()),
				zap.String("reference", generated.Reference),
			)
		case errors.Is(err, finance.ErrInvalidTransition):
			// some corrections are still waiting for a later invoice
			h.logger.Debug("incident not fully invoiced yet", zap.String("incident_id", id.String()))
		default:
			h.logger.Error("failed to mark incident invoiced",
				zap.String("incident_id", id.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

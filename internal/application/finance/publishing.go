package finance

import (
	"context"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"go.uber.org/zap"
)

// pendingEvents collects domain events raised inside a transaction so they are
// published only once the transaction has committed.
type pendingEvents struct {
	events []shared.DomainEvent
}

func (p *pendingEvents) collect(aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		p.events = append(p.events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
}

func (p *pendingEvents) add(events ...shared.DomainEvent) {
	p.events = append(p.events, events...)
}

func (p *pendingEvents) reset() {
	p.events = nil
}

func (p *pendingEvents) publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger) {
	if publisher == nil || len(p.events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, p.events...); err != nil {
		logger.Error("failed to publish domain events",
			zap.Int("count", len(p.events)),
			zap.Error(err),
		)
	}
	p.events = nil
}

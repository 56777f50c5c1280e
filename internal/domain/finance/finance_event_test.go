package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(t *testing.T, withPricingPoint bool) *FinanceEvent {
	t.Helper()
	params := NewFinanceEventParams{
		Reference: BookingRef{BookingID: uuid.New()},
		Motive:    MotiveBookingUsed,
		VenueID:   uuid.New(),
		ValueDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if withPricingPoint {
		pp := uuid.New()
		params.PricingPointID = &pp
	}
	e, err := NewFinanceEvent(params)
	require.NoError(t, err)
	return e
}

func TestNewFinanceEvent(t *testing.T) {
	valueDate := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("defaults ordering date to value date", func(t *testing.T) {
		e := newTestEvent(t, true)
		assert.Equal(t, valueDate, e.PricingOrderingDate)
		assert.Equal(t, EventStatusReady, e.Status)
		assert.Len(t, e.GetDomainEvents(), 1)
	})

	t.Run("keeps explicit ordering date", func(t *testing.T) {
		ordering := valueDate.Add(-48 * time.Hour)
		e, err := NewFinanceEvent(NewFinanceEventParams{
			Reference:           CollectiveBookingRef{CollectiveBookingID: uuid.New()},
			Motive:              MotiveBookingUsed,
			VenueID:             uuid.New(),
			ValueDate:           valueDate,
			PricingOrderingDate: &ordering,
		})
		require.NoError(t, err)
		assert.Equal(t, ordering, e.PricingOrderingDate)
		assert.Equal(t, EventStatusPending, e.Status)
	})

	t.Run("rejects missing reference", func(t *testing.T) {
		_, err := NewFinanceEvent(NewFinanceEventParams{
			Motive:    MotiveBookingUsed,
			VenueID:   uuid.New(),
			ValueDate: valueDate,
		})
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})

	t.Run("rejects incident motive on a booking reference", func(t *testing.T) {
		_, err := NewFinanceEvent(NewFinanceEventParams{
			Reference: BookingRef{BookingID: uuid.New()},
			Motive:    MotiveIncidentNewPrice,
			VenueID:   uuid.New(),
			ValueDate: valueDate,
		})
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})

	t.Run("rejects booking motive on an incident reference", func(t *testing.T) {
		_, err := NewFinanceEvent(NewFinanceEventParams{
			Reference: IncidentRef{BookingFinanceIncidentID: uuid.New()},
			Motive:    MotiveBookingUsed,
			VenueID:   uuid.New(),
			ValueDate: valueDate,
		})
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})

	t.Run("rejects unknown motive", func(t *testing.T) {
		_, err := NewFinanceEvent(NewFinanceEventParams{
			Reference: BookingRef{BookingID: uuid.New()},
			Motive:    "booking-teleported",
			VenueID:   uuid.New(),
			ValueDate: valueDate,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestFinanceEvent_Transitions(t *testing.T) {
	now := time.Now()

	t.Run("mark ready is idempotent", func(t *testing.T) {
		e := newTestEvent(t, true)
		require.NoError(t, e.MarkReady(now))
		assert.Equal(t, EventStatusReady, e.Status)
	})

	t.Run("mark ready needs a pricing point", func(t *testing.T) {
		e := newTestEvent(t, false)
		err := e.MarkReady(now)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("attach pricing point promotes pending", func(t *testing.T) {
		e := newTestEvent(t, false)
		require.NoError(t, e.AttachPricingPoint(uuid.New(), now))
		assert.Equal(t, EventStatusReady, e.Status)
		assert.NotNil(t, e.PricingPointID)
	})

	t.Run("processed cannot be cancelled directly", func(t *testing.T) {
		e := newTestEvent(t, true)
		require.NoError(t, e.MarkProcessed(now))
		err := e.Cancel("booking cancelled", now)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, EventStatusProcessed, e.Status)
	})

	t.Run("processed can be reopened", func(t *testing.T) {
		e := newTestEvent(t, true)
		require.NoError(t, e.MarkProcessed(now))
		require.NoError(t, e.Reopen(now))
		assert.Equal(t, EventStatusReady, e.Status)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		e := newTestEvent(t, true)
		require.NoError(t, e.Cancel("duplicate", now))
		assert.Error(t, e.MarkReady(now))
		assert.Error(t, e.MarkProcessed(now))
		assert.Error(t, e.Cancel("again", now))
	})

	t.Run("cancellation is recorded as a domain event", func(t *testing.T) {
		e := newTestEvent(t, true)
		e.ClearDomainEvents()
		require.NoError(t, e.Cancel("duplicate", now))
		require.Len(t, e.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeFinanceEventCancelled, e.GetDomainEvents()[0].EventType())
	})
}

func TestFinanceEvent_PricesBefore(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	a := &FinanceEvent{PricingOrderingDate: t1}
	a.ID = high
	b := &FinanceEvent{PricingOrderingDate: t2}
	b.ID = low

	assert.True(t, a.PricesBefore(b), "earlier date wins regardless of id")
	assert.False(t, b.PricesBefore(a))

	c := &FinanceEvent{PricingOrderingDate: t1}
	c.ID = low
	assert.True(t, c.PricesBefore(a), "same date falls back to id")
	assert.Equal(t, 0, ComparePricingOrder(t1, low, t1, low))
}

func TestReferenceColumns(t *testing.T) {
	id := uuid.New()

	t.Run("round trips every variant", func(t *testing.T) {
		for _, ref := range []EventReference{
			BookingRef{BookingID: id},
			CollectiveBookingRef{CollectiveBookingID: id},
			IncidentRef{BookingFinanceIncidentID: id},
		} {
			got, err := ColumnsOf(ref).Reference()
			require.NoError(t, err)
			assert.Equal(t, ref, got)
		}
	})

	t.Run("rejects zero references", func(t *testing.T) {
		_, err := ReferenceColumns{}.Reference()
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})

	t.Run("rejects two references", func(t *testing.T) {
		other := uuid.New()
		_, err := ReferenceColumns{BookingID: &id, BookingFinanceIncidentID: &other}.Reference()
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})

	t.Run("booking reference refuses incidents", func(t *testing.T) {
		_, err := ReferenceColumns{BookingFinanceIncidentID: &id}.BookingReference()
		assert.True(t, errors.Is(err, ErrInvalidReference))
	})
}

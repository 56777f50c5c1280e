package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// EventService records finance events and reacts to booking lifecycle changes
type EventService interface {
	CreateEvent(ctx context.Context, in appfinance.CreateEventInput) (*finance.FinanceEvent, error)
	MarkReady(ctx context.Context, id uuid.UUID) (*finance.FinanceEvent, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*finance.FinanceEvent, error)
	AttachPricingPoint(ctx context.Context, venueID, pricingPointID uuid.UUID) (int, error)
	OnBookingUsed(ctx context.Context, booking finance.BookingSnapshot) (*finance.FinanceEvent, error)
	OnBookingCancelledAfterUse(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error)
	OnBookingMarkedUnused(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error)
}

// EventQueries reads finance events
type EventQueries interface {
	ListEvents(ctx context.Context, filter appfinance.EventListFilter) (shared.Paginated[appfinance.EventResponse], error)
	GetEvent(ctx context.Context, id uuid.UUID) (*appfinance.EventResponse, error)
}

// BookingCallbackResponse answers a booking lifecycle callback. Event is nil
// when the booking had nothing to reverse.
type BookingCallbackResponse struct {
	Event *appfinance.EventResponse `json:"event"`
}

// VenueLinkResponse answers a pricing point attachment
type VenueLinkResponse struct {
	VenueID        uuid.UUID `json:"venue_id"`
	PricingPointID uuid.UUID `json:"pricing_point_id"`
	PromotedEvents int       `json:"promoted_events"`
}

// EventHandler handles finance event endpoints
type EventHandler struct {
	BaseHandler
	events  EventService
	queries EventQueries
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events EventService, queries EventQueries) *EventHandler {
	return &EventHandler{events: events, queries: queries}
}

// Create records a finance event
func (h *EventHandler) Create(c *gin.Context) {
	var req appfinance.CreateEventRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	event, err := h.events.CreateEvent(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToEventResponse(event))
}

// List lists finance events
func (h *EventHandler) List(c *gin.Context) {
	var filter appfinance.EventListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page, err := h.queries.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one finance event
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	event, err := h.queries.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, event)
}

// MarkReady promotes a pending event whose pricing point is now known
func (h *EventHandler) MarkReady(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	event, err := h.events.MarkReady(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToEventResponse(event))
}

// Cancel cancels an unpriced event
func (h *EventHandler) Cancel(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.CancelEventRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	event, err := h.events.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToEventResponse(event))
}

// AttachVenuePricingPoint links a venue to its pricing point
func (h *EventHandler) AttachVenuePricingPoint(c *gin.Context) {
	venueID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.AttachPricingPointRequest
	if !h.BindJSON(c, &req) {
		return
	}
	promoted, err := h.events.AttachPricingPoint(c.Request.Context(), venueID, req.PricingPointID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, VenueLinkResponse{VenueID: venueID, PricingPointID: req.PricingPointID, PromotedEvents: promoted})
}

// BookingUsed records that a booking was used
func (h *EventHandler) BookingUsed(c *gin.Context) {
	var req appfinance.BookingUsedRequest
	if !h.BindJSON(c, &req) {
		return
	}
	event, err := h.events.OnBookingUsed(c.Request.Context(), req.ToSnapshot())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, callbackResponse(event))
}

// BookingCancelledAfterUse reverses the pricing of a used booking that got
// cancelled
func (h *EventHandler) BookingCancelledAfterUse(c *gin.Context) {
	h.bookingReversal(c, h.events.OnBookingCancelledAfterUse)
}

// BookingUnused reverses the pricing of a booking marked as unused
func (h *EventHandler) BookingUnused(c *gin.Context) {
	h.bookingReversal(c, h.events.OnBookingMarkedUnused)
}

func (h *EventHandler) bookingReversal(c *gin.Context, reverse func(context.Context, finance.BookingReference) (*finance.FinanceEvent, error)) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	ref, err := finance.NewBookingReference(finance.BookingKind(c.Param("kind")), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	event, err := reverse(c.Request.Context(), ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, callbackResponse(event))
}

func callbackResponse(event *finance.FinanceEvent) BookingCallbackResponse {
	if event == nil {
		return BookingCallbackResponse{}
	}
	resp := appfinance.ToEventResponse(event)
	return BookingCallbackResponse{Event: &resp}
}

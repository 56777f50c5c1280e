package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// PricingService runs the pricing engine
type PricingService interface {
	Run(ctx context.Context) (*appfinance.PricingRunReport, error)
	PriceEvent(ctx context.Context, eventID uuid.UUID) (*finance.Pricing, error)
}

// PricingQueries reads pricings
type PricingQueries interface {
	GetPricing(ctx context.Context, id uuid.UUID) (*appfinance.PricingResponse, error)
}

// PricingHandler handles pricing endpoints
type PricingHandler struct {
	BaseHandler
	engine  PricingService
	queries PricingQueries
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(engine PricingService, queries PricingQueries) *PricingHandler {
	return &PricingHandler{engine: engine, queries: queries}
}

// Run prices every ready event
func (h *PricingHandler) Run(c *gin.Context) {
	report, err := h.engine.Run(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// PriceEvent prices one event out of the regular run
func (h *PricingHandler) PriceEvent(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	pricing, err := h.engine.PriceEvent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToPricingResponse(pricing, nil))
}

// Get returns a pricing with its lines and logs
func (h *PricingHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	pricing, err := h.queries.GetPricing(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pricing)
}

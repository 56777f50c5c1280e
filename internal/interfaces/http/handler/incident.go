package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// IncidentService opens and settles finance incidents
type IncidentService interface {
	CreateIncident(ctx context.Context, in appfinance.CreateIncidentInput) (*finance.FinanceIncident, error)
	Validate(ctx context.Context, id uuid.UUID) (*finance.FinanceIncident, error)
	Cancel(ctx context.Context, id uuid.UUID, comment string) (*finance.FinanceIncident, error)
	MarkInvoiced(ctx context.Context, id uuid.UUID) (*finance.FinanceIncident, error)
}

// IncidentQueries reads incidents
type IncidentQueries interface {
	GetIncident(ctx context.Context, id uuid.UUID) (*appfinance.IncidentResponse, error)
}

// IncidentHandler handles finance incident endpoints
type IncidentHandler struct {
	BaseHandler
	corrector IncidentService
	queries   IncidentQueries
}

// NewIncidentHandler creates a new IncidentHandler
func NewIncidentHandler(corrector IncidentService, queries IncidentQueries) *IncidentHandler {
	return &IncidentHandler{corrector: corrector, queries: queries}
}

// Create opens an incident on already priced bookings
func (h *IncidentHandler) Create(c *gin.Context) {
	var req appfinance.CreateIncidentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	incident, err := h.corrector.CreateIncident(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appfinance.ToIncidentResponse(incident))
}

// Get returns an incident with its booking lines
func (h *IncidentHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	incident, err := h.queries.GetIncident(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, incident)
}

// Validate validates an incident and records its correcting events
func (h *IncidentHandler) Validate(c *gin.Context) {
	h.transition(c, h.corrector.Validate)
}

// MarkInvoiced closes an incident whose corrections were invoiced
func (h *IncidentHandler) MarkInvoiced(c *gin.Context) {
	h.transition(c, h.corrector.MarkInvoiced)
}

// Cancel cancels an incident that was not invoiced yet
func (h *IncidentHandler) Cancel(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req appfinance.CancelIncidentRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	incident, err := h.corrector.Cancel(c.Request.Context(), id, req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToIncidentResponse(incident))
}

func (h *IncidentHandler) transition(c *gin.Context, apply func(context.Context, uuid.UUID) (*finance.FinanceIncident, error)) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	incident, err := apply(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appfinance.ToIncidentResponse(incident))
}

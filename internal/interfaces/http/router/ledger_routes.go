package router

import (
	"github.com/gin-gonic/gin"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/handler"
)

// LedgerHandlers groups the handlers of the finance API
type LedgerHandlers struct {
	Events     *handler.EventHandler
	Pricings   *handler.PricingHandler
	Cashflows  *handler.CashflowHandler
	Invoices   *handler.InvoiceHandler
	Incidents  *handler.IncidentHandler
	Recipients *handler.RecipientHandler
}

// FinanceRoutes declares the /finance routes
func FinanceRoutes(h LedgerHandlers) *DomainGroup {
	g := NewDomainGroup("finance", "/finance")

	g.POST("/events", h.Events.Create)
	g.GET("/events", h.Events.List)
	g.GET("/events/:id", h.Events.Get)
	g.POST("/events/:id/ready", h.Events.MarkReady)
	g.POST("/events/:id/cancel", h.Events.Cancel)
	g.POST("/events/:id/price", h.Pricings.PriceEvent)
	g.PUT("/venues/:id/pricing-point", h.Events.AttachVenuePricingPoint)

	g.POST("/bookings/used", h.Events.BookingUsed)
	g.POST("/bookings/:kind/:id/cancelled-after-use", h.Events.BookingCancelledAfterUse)
	g.POST("/bookings/:kind/:id/unused", h.Events.BookingUnused)

	g.POST("/pricing/run", h.Pricings.Run)
	g.GET("/pricings/:id", h.Pricings.Get)

	g.POST("/cashflows/batch", h.Cashflows.RunBatch)
	g.GET("/cashflows/:id", h.Cashflows.Get)
	g.PUT("/cashflows/:id/status", h.Cashflows.UpdateStatus)

	g.POST("/invoices/generate", h.Invoices.GenerateAll)
	g.GET("/invoices/:id", h.Invoices.Get)
	g.PUT("/invoices/:id/status", h.Invoices.UpdateStatus)
	g.GET("/invoices/:id/document", h.Invoices.Document)

	g.POST("/incidents", h.Incidents.Create)
	g.GET("/incidents/:id", h.Incidents.Get)
	g.POST("/incidents/:id/validate", h.Incidents.Validate)
	g.POST("/incidents/:id/cancel", h.Incidents.Cancel)
	g.POST("/incidents/:id/invoiced", h.Incidents.MarkInvoiced)

	g.POST("/pricing-points/:id/bank-account", h.Recipients.LinkPricingPoint)

	accounts := g.Group("bank-accounts", "/bank-accounts")
	accounts.POST("", h.Recipients.RegisterBankAccount)
	accounts.PUT("/:id/status", h.Recipients.SetStatus)
	accounts.GET("/:id/summary", h.Recipients.Summary)
	accounts.GET("/:id/cashflows", h.Cashflows.ListByBankAccount)
	accounts.POST("/:id/invoices", h.Invoices.Generate)
	accounts.GET("/:id/invoices", h.Invoices.ListByBankAccount)

	return g
}

// SystemRoutes declares the /system routes
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.Info)
	g.GET("/scheduler", h.SchedulerStatus)
	g.POST("/scheduler/:job/trigger", h.TriggerJob)
	return g
}

// Mount registers the health probe at the root and every API group under
// /api/<version>
func Mount(engine *gin.Engine, ledger LedgerHandlers, system *handler.SystemHandler, opts ...RouterOption) *Router {
	engine.GET(healthPath, system.Health)
	r := NewRouter(engine, opts...)
	r.Register(FinanceRoutes(ledger)).Register(SystemRoutes(system))
	r.Setup()
	return r
}

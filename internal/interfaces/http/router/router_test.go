package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/handler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouterMountsUnderVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())

	g := NewDomainGroup("finance", "/finance")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.Register(g).Setup()

	w := serve(engine, http.MethodGet, "/api/v2/finance/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/finance/ping", "").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("finance", "/finance")
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		g.GET("/a", ok).POST("/a", ok).PUT("/a/:id", ok).PATCH("/a/:id", ok).DELETE("/a/:id", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
			assert.Equal(t, http.StatusOK, serve(engine, method, "/api/v1/finance/a/1", "").Code, method)
		}
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/finance/a", "").Code)
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/finance/a", "").Code)
	})

	t.Run("applies group middleware to subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("finance", "/finance").Use(func(c *gin.Context) {
			c.Header("X-Group", "finance")
			c.Next()
		})
		g.Group("accounts", "/bank-accounts").GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/finance/bank-accounts", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "finance", w.Header().Get("X-Group"))
	})

	t.Run("lists declared routes", func(t *testing.T) {
		g := NewDomainGroup("finance", "/finance")
		g.GET("/events/:id", nil)
		g.Group("accounts", "/bank-accounts").POST("", nil)

		assert.Equal(t, []RouteInfo{
			{Method: http.MethodGet, Path: "/finance/events/:id"},
			{Method: http.MethodPost, Path: "/finance/bank-accounts"},
		}, g.Routes())
		assert.Equal(t, "finance", g.Name())
		assert.Equal(t, "/finance", g.Prefix())
	})
}

func ledgerHandlers() LedgerHandlers {
	return LedgerHandlers{
		Events:     handler.NewEventHandler(nil, nil),
		Pricings:   handler.NewPricingHandler(nil, nil),
		Cashflows:  handler.NewCashflowHandler(nil, nil),
		Invoices:   handler.NewInvoiceHandler(nil, nil),
		Incidents:  handler.NewIncidentHandler(nil, nil),
		Recipients: handler.NewRecipientHandler(nil, nil),
	}
}

func TestFinanceRoutesDeclareLedgerAPI(t *testing.T) {
	routes := FinanceRoutes(ledgerHandlers()).Routes()

	expected := []RouteInfo{
		{http.MethodPost, "/finance/events"},
		{http.MethodGet, "/finance/events"},
		{http.MethodGet, "/finance/events/:id"},
		{http.MethodPost, "/finance/events/:id/ready"},
		{http.MethodPost, "/finance/events/:id/cancel"},
		{http.MethodPost, "/finance/bookings/used"},
		{http.MethodPost, "/finance/bookings/:kind/:id/cancelled-after-use"},
		{http.MethodPost, "/finance/bookings/:kind/:id/unused"},
		{http.MethodPost, "/finance/pricing/run"},
		{http.MethodGet, "/finance/pricings/:id"},
		{http.MethodPost, "/finance/cashflows/batch"},
		{http.MethodGet, "/finance/bank-accounts/:id/cashflows"},
		{http.MethodGet, "/finance/cashflows/:id"},
		{http.MethodPut, "/finance/cashflows/:id/status"},
		{http.MethodPost, "/finance/bank-accounts/:id/invoices"},
		{http.MethodGet, "/finance/bank-accounts/:id/invoices"},
		{http.MethodGet, "/finance/invoices/:id"},
		{http.MethodPut, "/finance/invoices/:id/status"},
		{http.MethodGet, "/finance/invoices/:id/document"},
		{http.MethodGet, "/finance/bank-accounts/:id/summary"},
		{http.MethodPost, "/finance/incidents"},
		{http.MethodGet, "/finance/incidents/:id"},
		{http.MethodPost, "/finance/incidents/:id/validate"},
		{http.MethodPost, "/finance/incidents/:id/cancel"},
		{http.MethodPost, "/finance/incidents/:id/invoiced"},
		{http.MethodPost, "/finance/bank-accounts"},
	}
	for _, want := range expected {
		assert.Contains(t, routes, want)
	}
}

type pinger struct{ err error }

func (p pinger) Ping() error { return p.err }

func TestMountRegistersWithoutConflicts(t *testing.T) {
	engine := gin.New()
	system := handler.NewSystemHandler("ledger", "test", pinger{}, nil)

	require.NotPanics(t, func() {
		Mount(engine, ledgerHandlers(), system)
	})

	w := serve(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// malformed ids are rejected before any service is reached
	w = serve(engine, http.MethodGet, "/api/v1/finance/events/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(engine, http.MethodGet, "/api/v1/system/scheduler", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewEngineMiddlewareStack(t *testing.T) {
	engine, err := NewEngine(EngineConfig{ServiceName: "ledger", MaxBodySize: 16})
	require.NoError(t, err)

	engine.POST("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.GetRequestID(c))
	})
	engine.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("generates a request id", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/echo", "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), w.Body.String())
	})

	t.Run("limits the body size", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/echo", `{"reason":"far too long for the limit"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("recovers from panics", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/boom", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/scheduler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/dto"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func perform(t *testing.T, engine *gin.Engine, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func newEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	return engine
}

func readyEvent(t *testing.T, motive finance.FinanceEventMotive) *finance.FinanceEvent {
	t.Helper()
	pricingPoint := uuid.New()
	event, err := finance.NewFinanceEvent(finance.NewFinanceEventParams{
		Reference:      finance.BookingRef{BookingID: uuid.New()},
		Motive:         motive,
		VenueID:        uuid.New(),
		PricingPointID: &pricingPoint,
		ValueDate:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Now:            time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return event
}

// MockEventService implements EventService for testing
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, in appfinance.CreateEventInput) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

func (m *MockEventService) MarkReady(ctx context.Context, id uuid.UUID) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

func (m *MockEventService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

func (m *MockEventService) AttachPricingPoint(ctx context.Context, venueID, pricingPointID uuid.UUID) (int, error) {
	args := m.Called(ctx, venueID, pricingPointID)
	return args.Int(0), args.Error(1)
}

func (m *MockEventService) OnBookingUsed(ctx context.Context, booking finance.BookingSnapshot) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

func (m *MockEventService) OnBookingCancelledAfterUse(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

func (m *MockEventService) OnBookingMarkedUnused(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.FinanceEvent), args.Error(1)
}

// MockQueries implements every read interface of the handlers
type MockQueries struct {
	mock.Mock
}

func (m *MockQueries) ListEvents(ctx context.Context, filter appfinance.EventListFilter) (shared.Paginated[appfinance.EventResponse], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[appfinance.EventResponse]), args.Error(1)
}

func (m *MockQueries) GetEvent(ctx context.Context, id uuid.UUID) (*appfinance.EventResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.EventResponse), args.Error(1)
}

func (m *MockQueries) ListCashflows(ctx context.Context, bankAccountID uuid.UUID, filter appfinance.CashflowListFilter) (shared.Paginated[appfinance.CashflowResponse], error) {
	args := m.Called(ctx, bankAccountID, filter)
	return args.Get(0).(shared.Paginated[appfinance.CashflowResponse]), args.Error(1)
}

func (m *MockQueries) GetCashflow(ctx context.Context, id uuid.UUID) (*appfinance.CashflowResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.CashflowResponse), args.Error(1)
}

func (m *MockQueries) ListInvoices(ctx context.Context, bankAccountID uuid.UUID, filter appfinance.PageFilter) (shared.Paginated[appfinance.InvoiceResponse], error) {
	args := m.Called(ctx, bankAccountID, filter)
	return args.Get(0).(shared.Paginated[appfinance.InvoiceResponse]), args.Error(1)
}

func (m *MockQueries) GetInvoice(ctx context.Context, id uuid.UUID) (*appfinance.InvoiceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.InvoiceResponse), args.Error(1)
}

func (m *MockQueries) BankAccountSummary(ctx context.Context, bankAccountID uuid.UUID) (*appfinance.BankAccountSummary, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.BankAccountSummary), args.Error(1)
}

// MockCashflowService implements CashflowService for testing
type MockCashflowService struct {
	mock.Mock
}

func (m *MockCashflowService) RunBatch(ctx context.Context, cutoff time.Time) (*appfinance.BatchResult, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.BatchResult), args.Error(1)
}

func (m *MockCashflowService) UpdateCashflowStatus(ctx context.Context, id uuid.UUID, status finance.CashflowStatus, details map[string]any) (*finance.Cashflow, error) {
	args := m.Called(ctx, id, status, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Cashflow), args.Error(1)
}

// MockInvoiceService implements InvoiceService for testing
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) GenerateInvoice(ctx context.Context, bankAccountID uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, bankAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GenerateAll(ctx context.Context) (*appfinance.InvoiceRunReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.InvoiceRunReport), args.Error(1)
}

func (m *MockInvoiceService) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status finance.InvoiceStatus) (*finance.Invoice, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceService) DocumentURL(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// MockScheduler implements JobScheduler for testing
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Status() []scheduler.JobState {
	return m.Called().Get(0).([]scheduler.JobState)
}

func (m *MockScheduler) Trigger(ctx context.Context, name scheduler.JobName) (scheduler.JobState, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(scheduler.JobState), args.Error(1)
}

func (m *MockScheduler) Running() bool {
	return m.Called().Bool(0)
}

func eventEngine(events EventService, queries EventQueries) *gin.Engine {
	h := NewEventHandler(events, queries)
	engine := newEngine()
	engine.POST("/events", h.Create)
	engine.GET("/events", h.List)
	engine.GET("/events/:id", h.Get)
	engine.POST("/events/:id/cancel", h.Cancel)
	engine.PUT("/venues/:id/pricing-point", h.AttachVenuePricingPoint)
	engine.POST("/bookings/used", h.BookingUsed)
	engine.POST("/bookings/:kind/:id/cancelled-after-use", h.BookingCancelledAfterUse)
	engine.POST("/bookings/:kind/:id/unused", h.BookingUnused)
	return engine
}

func TestEventHandler_Create(t *testing.T) {
	bookingID := uuid.New()
	venueID := uuid.New()
	valueDate := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("records the event", func(t *testing.T) {
		events := new(MockEventService)
		event := readyEvent(t, finance.MotiveBookingUsed)
		events.On("CreateEvent", mock.Anything, mock.MatchedBy(func(in appfinance.CreateEventInput) bool {
			return in.Reference == finance.BookingRef{BookingID: bookingID} &&
				in.Motive == finance.MotiveBookingUsed && in.VenueID == venueID
		})).Return(event, nil)

		w, env := perform(t, eventEngine(events, nil), http.MethodPost, "/events", map[string]any{
			"booking_id": bookingID,
			"motive":     "booking-used",
			"venue_id":   venueID,
			"value_date": valueDate,
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		var resp appfinance.EventResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, event.ID, resp.ID)
		assert.Equal(t, "ready", resp.Status)
		events.AssertExpectations(t)
	})

	t.Run("rejects an unknown motive with field details", func(t *testing.T) {
		events := new(MockEventService)
		w, env := perform(t, eventEngine(events, nil), http.MethodPost, "/events", map[string]any{
			"booking_id": bookingID,
			"motive":     "booking-lost",
			"venue_id":   venueID,
			"value_date": valueDate,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "motive", env.Error.Details[0].Field)
		assert.NotEmpty(t, env.Error.RequestID)
		events.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything)
	})

	t.Run("rejects two references", func(t *testing.T) {
		events := new(MockEventService)
		w, env := perform(t, eventEngine(events, nil), http.MethodPost, "/events", map[string]any{
			"booking_id":            bookingID,
			"collective_booking_id": uuid.New(),
			"motive":                "booking-used",
			"venue_id":              venueID,
			"value_date":            valueDate,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, finance.CodeInvalidReference, env.Error.Code)
	})

	t.Run("reports a duplicate active event as a conflict", func(t *testing.T) {
		events := new(MockEventService)
		events.On("CreateEvent", mock.Anything, mock.Anything).Return(nil, finance.ErrDuplicateActiveBookingEvent)

		w, env := perform(t, eventEngine(events, nil), http.MethodPost, "/events", map[string]any{
			"booking_id": bookingID,
			"motive":     "booking-used",
			"venue_id":   venueID,
			"value_date": valueDate,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, finance.CodeDuplicateActiveBookingEvent, env.Error.Code)
	})
}

func TestEventHandler_ListAndGet(t *testing.T) {
	queries := new(MockQueries)
	item := appfinance.EventResponse{ID: uuid.New(), Status: "pending"}
	queries.On("ListEvents", mock.Anything, appfinance.EventListFilter{Status: "pending", Page: 2, PageSize: 10}).
		Return(shared.NewPaginated([]appfinance.EventResponse{item}, 11, 2, 10), nil)
	missing := uuid.New()
	queries.On("GetEvent", mock.Anything, missing).Return(nil, finance.NewNotFoundError("finance event", missing))

	engine := eventEngine(nil, queries)

	w, env := perform(t, engine, http.MethodGet, "/events?status=pending&page=2&page_size=10", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(11), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
	var items []appfinance.EventResponse
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)

	w, env = perform(t, engine, http.MethodGet, "/events?status=priced", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)

	w, env = perform(t, engine, http.MethodGet, "/events/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)

	w, env = perform(t, engine, http.MethodGet, "/events/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, env.Error.Code)
	queries.AssertExpectations(t)
}

func TestEventHandler_Cancel(t *testing.T) {
	events := new(MockEventService)
	id := uuid.New()
	event := readyEvent(t, finance.MotiveBookingUsed)
	events.On("Cancel", mock.Anything, id, "duplicate").Return(event, nil)
	priced := uuid.New()
	events.On("Cancel", mock.Anything, priced, "").
		Return(nil, finance.NewInvalidTransitionError("finance event", finance.EventStatusProcessed, finance.EventStatusCancelled))

	engine := eventEngine(events, nil)

	w, _ := perform(t, engine, http.MethodPost, "/events/"+id.String()+"/cancel", map[string]string{"reason": "duplicate"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := perform(t, engine, http.MethodPost, "/events/"+priced.String()+"/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	events.AssertExpectations(t)
}

func TestEventHandler_BookingCallbacks(t *testing.T) {
	bookingID := uuid.New()

	t.Run("booking used", func(t *testing.T) {
		events := new(MockEventService)
		event := readyEvent(t, finance.MotiveBookingUsed)
		events.On("OnBookingUsed", mock.Anything, mock.MatchedBy(func(b finance.BookingSnapshot) bool {
			return b.Reference() == finance.CollectiveBookingRef{CollectiveBookingID: bookingID} && b.Amount == 1250
		})).Return(event, nil)

		w, env := perform(t, eventEngine(events, nil), http.MethodPost, "/bookings/used", map[string]any{
			"booking_id":     bookingID,
			"kind":           "collective",
			"venue_id":       uuid.New(),
			"offer_category": "cinema",
			"amount":         1250,
			"used_at":        time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp BookingCallbackResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		require.NotNil(t, resp.Event)
		assert.Equal(t, event.ID, resp.Event.ID)
		events.AssertExpectations(t)
	})

	t.Run("cancellation with nothing to reverse", func(t *testing.T) {
		events := new(MockEventService)
		events.On("OnBookingCancelledAfterUse", mock.Anything, finance.BookingRef{BookingID: bookingID}).Return(nil, nil)

		w, env := perform(t, eventEngine(events, nil), http.MethodPost,
			"/bookings/individual/"+bookingID.String()+"/cancelled-after-use", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"event":null}`, string(env.Data))
		events.AssertExpectations(t)
	})

	t.Run("unused booking", func(t *testing.T) {
		events := new(MockEventService)
		event := readyEvent(t, finance.MotiveBookingUnused)
		events.On("OnBookingMarkedUnused", mock.Anything, finance.BookingRef{BookingID: bookingID}).Return(event, nil)

		w, env := perform(t, eventEngine(events, nil), http.MethodPost,
			"/bookings/individual/"+bookingID.String()+"/unused", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp BookingCallbackResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "booking-unused", resp.Event.Motive)
	})

	t.Run("unknown booking kind", func(t *testing.T) {
		events := new(MockEventService)
		w, env := perform(t, eventEngine(events, nil), http.MethodPost,
			"/bookings/group/"+bookingID.String()+"/unused", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, finance.CodeInvalidReference, env.Error.Code)
		events.AssertNotCalled(t, "OnBookingMarkedUnused", mock.Anything, mock.Anything)
	})
}

func TestEventHandler_AttachVenuePricingPoint(t *testing.T) {
	events := new(MockEventService)
	venueID, pricingPointID := uuid.New(), uuid.New()
	events.On("AttachPricingPoint", mock.Anything, venueID, pricingPointID).Return(3, nil)

	w, env := perform(t, eventEngine(events, nil), http.MethodPut, "/venues/"+venueID.String()+"/pricing-point",
		map[string]any{"pricing_point_id": pricingPointID})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp VenueLinkResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 3, resp.PromotedEvents)
	events.AssertExpectations(t)
}

func TestCashflowHandler(t *testing.T) {
	batcher := new(MockCashflowService)
	queries := new(MockQueries)
	h := NewCashflowHandler(batcher, queries)
	engine := newEngine()
	engine.POST("/cashflows/batch", h.RunBatch)
	engine.PUT("/cashflows/:id/status", h.UpdateStatus)
	engine.GET("/bank-accounts/:id/cashflows", h.ListByBankAccount)

	cutoff := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	batch := &finance.CashflowBatch{ID: uuid.New(), Cutoff: cutoff, Label: "VIR1", CreatedAt: cutoff}
	batcher.On("RunBatch", mock.Anything, cutoff).Return(&appfinance.BatchResult{Batch: batch}, nil)

	w, env := perform(t, engine, http.MethodPost, "/cashflows/batch", map[string]any{"cutoff": cutoff})
	assert.Equal(t, http.StatusCreated, w.Code)
	var resp appfinance.BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "VIR1", resp.Label)

	w, env = perform(t, engine, http.MethodPut, "/cashflows/"+uuid.NewString()+"/status", map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", env.Error.Details[0].Field)

	id := uuid.New()
	batcher.On("UpdateCashflowStatus", mock.Anything, id, finance.CashflowStatusAccepted, map[string]any{"bank": "ok"}).
		Return(nil, finance.NewInvalidTransitionError("cashflow", finance.CashflowStatusPending, finance.CashflowStatusAccepted))
	w, _ = perform(t, engine, http.MethodPut, "/cashflows/"+id.String()+"/status",
		map[string]any{"status": "accepted", "details": map[string]any{"bank": "ok"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	account := uuid.New()
	queries.On("ListCashflows", mock.Anything, account, appfinance.CashflowListFilter{}).
		Return(shared.NewPaginated[appfinance.CashflowResponse](nil, 0, 1, 20), nil)
	w, env = perform(t, engine, http.MethodGet, "/bank-accounts/"+account.String()+"/cashflows", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	batcher.AssertExpectations(t)
	queries.AssertExpectations(t)
}

func TestInvoiceHandler(t *testing.T) {
	generator := new(MockInvoiceService)
	h := NewInvoiceHandler(generator, new(MockQueries))
	engine := newEngine()
	engine.POST("/bank-accounts/:id/invoices", h.Generate)
	engine.PUT("/invoices/:id/status", h.UpdateStatus)
	engine.GET("/invoices/:id/document", h.Document)

	account := uuid.New()
	generator.On("GenerateInvoice", mock.Anything, account).Return(nil, finance.ErrNoEligibleCashflow)
	w, env := perform(t, engine, http.MethodPost, "/bank-accounts/"+account.String()+"/invoices", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, finance.CodeNoEligibleCashflow, env.Error.Code)

	w, _ = perform(t, engine, http.MethodPut, "/invoices/"+uuid.NewString()+"/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	withDoc, withoutDoc := uuid.New(), uuid.New()
	generator.On("DocumentURL", mock.Anything, withDoc).Return("memory://documents/invoices/F260000001.pdf", nil)
	generator.On("DocumentURL", mock.Anything, withoutDoc).Return("", appfinance.ErrDocumentsDisabled)

	w, env = perform(t, engine, http.MethodGet, "/invoices/"+withDoc.String()+"/document", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var doc DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, withDoc, doc.InvoiceID)
	assert.Contains(t, doc.URL, "F260000001.pdf")

	w, env = perform(t, engine, http.MethodGet, "/invoices/"+withoutDoc.String()+"/document", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	generator.AssertExpectations(t)
}

// MockPricingService implements PricingService for testing
type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) Run(ctx context.Context) (*appfinance.PricingRunReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfinance.PricingRunReport), args.Error(1)
}

func (m *MockPricingService) PriceEvent(ctx context.Context, eventID uuid.UUID) (*finance.Pricing, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Pricing), args.Error(1)
}

func TestPricingHandler_PriceEventWhileLeased(t *testing.T) {
	svc := new(MockPricingService)
	h := NewPricingHandler(svc, nil)
	engine := newEngine()
	engine.POST("/events/:id/price", h.PriceEvent)

	id := uuid.New()
	svc.On("PriceEvent", mock.Anything, id).Return(nil, finance.ErrLockNotAcquired)

	w, env := perform(t, engine, http.MethodPost, "/events/"+id.String()+"/price", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, finance.CodeLockNotAcquired, env.Error.Code)
	svc.AssertExpectations(t)
}

func TestRecipientHandler_Summary(t *testing.T) {
	queries := new(MockQueries)
	h := NewRecipientHandler(nil, queries)
	engine := newEngine()
	engine.GET("/bank-accounts/:id/summary", h.Summary)

	account := uuid.New()
	queries.On("BankAccountSummary", mock.Anything, account).Return(&appfinance.BankAccountSummary{
		BankAccountID: account,
		TotalPriced:   4200,
		TotalInvoiced: 3000,
	}, nil)

	w, env := perform(t, engine, http.MethodGet, "/bank-accounts/"+account.String()+"/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var summary appfinance.BankAccountSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, int64(4200), summary.TotalPriced)
}

type MockRecipientService struct {
	mock.Mock
}

func (m *MockRecipientService) RegisterBankAccount(ctx context.Context, req appfinance.RegisterBankAccountRequest) (*finance.BankAccount, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.BankAccount), args.Error(1)
}

func (m *MockRecipientService) SetBankAccountActive(ctx context.Context, bankAccountID uuid.UUID, active bool) (*finance.BankAccount, error) {
	args := m.Called(ctx, bankAccountID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.BankAccount), args.Error(1)
}

func (m *MockRecipientService) LinkPricingPoint(ctx context.Context, pricingPointID, bankAccountID uuid.UUID) error {
	return m.Called(ctx, pricingPointID, bankAccountID).Error(0)
}

func TestRecipientHandler_SetStatus(t *testing.T) {
	svc := new(MockRecipientService)
	h := NewRecipientHandler(svc, nil)
	engine := newEngine()
	engine.PUT("/bank-accounts/:id/status", h.SetStatus)

	id := uuid.New()
	svc.On("SetBankAccountActive", mock.Anything, id, false).
		Return(&finance.BankAccount{ID: id, Label: "Librairie", Active: false}, nil)

	w, env := perform(t, engine, http.MethodPut, "/bank-accounts/"+id.String()+"/status", map[string]any{"active": false})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp appfinance.BankAccountResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.False(t, resp.Active)

	w, _ = perform(t, engine, http.MethodPut, "/bank-accounts/"+id.String()+"/status", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestHandleError_UnknownErrorIsInternal(t *testing.T) {
	queries := new(MockQueries)
	id := uuid.New()
	queries.On("GetEvent", mock.Anything, id).Return(nil, errors.New("connection reset"))

	w, env := perform(t, eventEngine(nil, queries), http.MethodGet, "/events/"+id.String(), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, "connection reset")
}

type fakePinger struct{ err error }

func (p fakePinger) Ping() error { return p.err }

func TestSystemHandler(t *testing.T) {
	jobs := new(MockScheduler)
	h := NewSystemHandler("ledger", "test", fakePinger{err: errors.New("down")}, jobs)
	engine := newEngine()
	engine.GET("/health", h.Health)
	engine.GET("/scheduler", h.SchedulerStatus)
	engine.POST("/scheduler/:job/trigger", h.TriggerJob)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"unhealthy"`)

	jobs.On("Running").Return(true)
	jobs.On("Status").Return([]scheduler.JobState{{Name: scheduler.JobPricing, Runs: 2}})
	w, env := perform(t, engine, http.MethodGet, "/scheduler", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var status SchedulerStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Running)
	assert.Equal(t, 2, status.Jobs[0].Runs)

	jobs.On("Trigger", mock.Anything, scheduler.JobName("payroll")).
		Return(scheduler.JobState{}, scheduler.ErrUnknownJob)
	jobs.On("Trigger", mock.Anything, scheduler.JobCashflow).
		Return(scheduler.JobState{Name: scheduler.JobCashflow, Running: true}, scheduler.ErrJobRunning)
	jobs.On("Trigger", mock.Anything, scheduler.JobInvoice).
		Return(scheduler.JobState{Name: scheduler.JobInvoice, Runs: 1}, nil)

	w, _ = perform(t, engine, http.MethodPost, "/scheduler/payroll/trigger", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = perform(t, engine, http.MethodPost, "/scheduler/cashflow/trigger", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w, _ = perform(t, engine, http.MethodPost, "/scheduler/invoice/trigger", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	jobs.AssertExpectations(t)
}

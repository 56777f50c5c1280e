package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/dto"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/handler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/router"
	"github.com/pass-culture/pass-culture-main-sub045/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const financeAPI = "/api/v1/finance"

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T, tdb *TestDB, l *testutil.Ledger) *apiClient {
	t.Helper()
	engine, err := router.NewEngine(router.EngineConfig{ServiceName: "ledger-test"})
	require.NoError(t, err)

	router.Mount(engine, router.LedgerHandlers{
		Events:     handler.NewEventHandler(l.Events, l.Queries),
		Pricings:   handler.NewPricingHandler(l.Pricing, l.Queries),
		Cashflows:  handler.NewCashflowHandler(l.Cashflows, l.Queries),
		Invoices:   handler.NewInvoiceHandler(l.Invoices, l.Queries),
		Incidents:  handler.NewIncidentHandler(l.Incidents, l.Queries),
		Recipients: handler.NewRecipientHandler(l.Recipients, l.Queries),
	}, handler.NewSystemHandler("ledger-test", "test", tdb.SqlDB, nil))
	return &apiClient{t: t, engine: engine}
}

// do sends body as JSON and decodes the envelope data into out when out is
// not nil
func (a *apiClient) do(method, path string, body, out any) (int, apiEnvelope) {
	a.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil && env.Success {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return w.Code, env
}

func TestAPIFlowFromBookingToInvoice(t *testing.T) {
	tdb := NewSharedTestDB(t)
	l := testutil.NewLedger(t, tdb.DB)
	api := newAPI(t, tdb, l)

	var account appfinance.BankAccountResponse
	code, _ := api.do(http.MethodPost, financeAPI+"/bank-accounts", map[string]any{
		"label": "Theatre de la Ville",
		"iban":  "FR76 3000 6000 0112 3456 7890 189",
	}, &account)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "FR7630006000011234567890189", account.IBAN)

	pricingPointID, venueID := uuid.New(), uuid.New()
	code, _ = api.do(http.MethodPost, fmt.Sprintf("%s/pricing-points/%s/bank-account", financeAPI, pricingPointID),
		map[string]any{"bank_account_id": account.ID}, nil)
	require.Equal(t, http.StatusOK, code)

	// used before the venue has a pricing point: the event waits
	var used handler.BookingCallbackResponse
	code, _ = api.do(http.MethodPost, financeAPI+"/bookings/used", map[string]any{
		"booking_id":     uuid.New(),
		"kind":           "individual",
		"venue_id":       venueID,
		"offer_category": "SPECTACLE",
		"amount":         1800,
		"used_at":        usedOn(3),
	}, &used)
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, used.Event)
	assert.Equal(t, string(finance.EventStatusPending), used.Event.Status)

	var link handler.VenueLinkResponse
	code, _ = api.do(http.MethodPut, fmt.Sprintf("%s/venues/%s/pricing-point", financeAPI, venueID),
		map[string]any{"pricing_point_id": pricingPointID}, &link)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, link.PromotedEvents)

	l.Clock.Advance(time.Second)
	var run appfinance.PricingRunReport
	code, _ = api.do(http.MethodPost, financeAPI+"/pricing/run", nil, &run)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, run.Priced)

	var batch appfinance.BatchResponse
	code, _ = api.do(http.MethodPost, financeAPI+"/cashflows/batch",
		map[string]any{"cutoff": l.Clock.Advance(time.Minute)}, &batch)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, batch.Cashflows, 1)
	assert.Equal(t, int64(1800), batch.Cashflows[0].Amount)
	assert.Equal(t, account.ID, batch.Cashflows[0].BankAccountID)

	t.Run("invoice needs an accepted cashflow", func(t *testing.T) {
		code, env := api.do(http.MethodPost, fmt.Sprintf("%s/bank-accounts/%s/invoices", financeAPI, account.ID), nil, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, finance.CodeNoEligibleCashflow, env.Error.Code)
	})

	var cashflow appfinance.CashflowResponse
	code, _ = api.do(http.MethodPut, fmt.Sprintf("%s/cashflows/%s/status", financeAPI, batch.Cashflows[0].ID),
		map[string]any{"status": "accepted"}, &cashflow)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(finance.CashflowStatusAccepted), cashflow.Status)

	var invoice appfinance.InvoiceResponse
	code, _ = api.do(http.MethodPost, fmt.Sprintf("%s/bank-accounts/%s/invoices", financeAPI, account.ID), nil, &invoice)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "F260000001", invoice.Reference)
	assert.Equal(t, int64(1800), invoice.Amount)
	assert.Equal(t, []uuid.UUID{cashflow.ID}, invoice.CashflowIDs)

	var summary appfinance.BankAccountSummary
	code, _ = api.do(http.MethodGet, fmt.Sprintf("%s/bank-accounts/%s/summary", financeAPI, account.ID), nil, &summary)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1800), summary.TotalInvoiced)
	assert.Equal(t, int64(1800), summary.TotalPriced)
	assert.Zero(t, summary.TotalPending)
}

func TestAPIRejectsSecondUseOfBooking(t *testing.T) {
	tdb := NewSharedTestDB(t)
	l := testutil.NewLedger(t, tdb.DB)
	api := newAPI(t, tdb, l)
	r := l.SetupRecipient(t, "Musee")

	body := map[string]any{
		"booking_id": uuid.New(),
		"kind":       "individual",
		"venue_id":   r.VenueID,
		"amount":     900,
		"used_at":    usedOn(4),
	}
	code, _ := api.do(http.MethodPost, financeAPI+"/bookings/used", body, nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := api.do(http.MethodPost, financeAPI+"/bookings/used", body, nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, finance.CodeDuplicateActiveBookingEvent, env.Error.Code)
}

func TestAPIValidatesRequests(t *testing.T) {
	tdb := NewSharedTestDB(t)
	l := testutil.NewLedger(t, tdb.DB)
	api := newAPI(t, tdb, l)

	testutil.ServeHTTPTestCases(t, api.engine, []testutil.HTTPTestCase{
		{
			Name:   "unknown booking kind",
			Method: http.MethodPost,
			Path:   financeAPI + "/bookings/used",
			Body: map[string]any{
				"booking_id": uuid.New(),
				"kind":       "group",
				"venue_id":   uuid.New(),
				"used_at":    usedOn(4),
			},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  dto.ErrCodeValidation,
		},
		{
			Name:           "cashflow cannot go back to pending",
			Method:         http.MethodPut,
			Path:           fmt.Sprintf("%s/cashflows/%s/status", financeAPI, uuid.New()),
			Body:           map[string]any{"status": "pending"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  dto.ErrCodeValidation,
		},
		{
			Name:           "malformed id",
			Method:         http.MethodGet,
			Path:           financeAPI + "/cashflows/not-a-uuid",
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  dto.ErrCodeInvalidInput,
		},
		{
			Name:           "unknown bank account",
			Method:         http.MethodGet,
			Path:           fmt.Sprintf("%s/bank-accounts/%s/summary", financeAPI, uuid.New()),
			ExpectedStatus: http.StatusNotFound,
			ExpectedError:  dto.ErrCodeNotFound,
		},
		{
			Name:           "batch without cutoff",
			Method:         http.MethodPost,
			Path:           financeAPI + "/cashflows/batch",
			Body:           map[string]any{},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  dto.ErrCodeValidation,
		},
		{
			Name:           "unsupported event sort",
			Method:         http.MethodGet,
			Path:           financeAPI + "/events?sort_by=venue_id",
			ExpectedStatus: http.StatusBadRequest,
			ExpectedError:  dto.ErrCodeValidation,
		},
	})
}

func TestAPIListsEventsInRequestedOrder(t *testing.T) {
	tdb := NewSharedTestDB(t)
	l := testutil.NewLedger(t, tdb.DB)
	api := newAPI(t, tdb, l)
	r := l.SetupRecipient(t, "Cinema")

	_, late := l.UseBooking(t, r.VenueID, 700, usedOn(5))
	_, early := l.UseBooking(t, r.VenueID, 300, usedOn(2))

	var events []appfinance.EventResponse
	code, _ := api.do(http.MethodGet, financeAPI+"/events?venue_id="+r.VenueID.String(), nil, &events)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, events, 2)
	assert.Equal(t, late.ID, events[0].ID)

	code, _ = api.do(http.MethodGet, financeAPI+"/events?sort_by=value_date&sort_order=asc&venue_id="+r.VenueID.String(), nil, &events)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, events, 2)
	assert.Equal(t, early.ID, events[0].ID)
}

func TestAPIHealth(t *testing.T) {
	tdb := NewSharedTestDB(t)
	api := newAPI(t, tdb, testutil.NewLedger(t, tdb.DB))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenderer struct {
	requests []*RenderRequest
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &RenderResult{PDFData: []byte("%PDF-1.7 " + req.Title), RenderDuration: time.Millisecond}, nil
}

func (f *fakeRenderer) Close() error { return nil }

func sampleInvoice() *finance.Invoice {
	inv := &finance.Invoice{
		BankAccountID: uuid.MustParse("6f1d2a43-7c1e-4a55-9f0e-3c8b1d2e4f60"),
		Date:          time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
		Reference:     "F260000042",
		Amount:        2300,
		Status:        finance.InvoiceStatusPending,
		CashflowIDs:   []uuid.UUID{uuid.New()},
		Lines: []finance.InvoiceLine{
			{
				Group:              finance.InvoiceLineGroup{Category: "book", Rate: decimal.RequireFromString("0.95")},
				Rate:               decimal.RequireFromString("0.95"),
				ContributionAmount: -150,
				ReimbursedAmount:   2850,
			},
			{
				Group:              finance.InvoiceLineGroup{Category: "book", Rate: decimal.RequireFromString("1"), Incident: true},
				Rate:               decimal.RequireFromString("1"),
				ReimbursedAmount:   -550,
			},
		},
	}
	inv.ID = uuid.New()
	return inv
}

func newTestTemplate(t *testing.T) *InvoiceTemplate {
	t.Helper()
	f, err := NewAmountFormatter("en-GB", "EUR")
	require.NoError(t, err)
	return NewInvoiceTemplate(f)
}

func TestInvoiceTemplate_Render(t *testing.T) {
	page, err := newTestTemplate(t).Render(sampleInvoice())
	require.NoError(t, err)

	assert.Contains(t, page, "<title>F260000042</title>")
	assert.Contains(t, page, "Date: 2026-03-16")
	assert.Contains(t, page, "6f1d2a43-7c1e-4a55-9f0e-3c8b1d2e4f60")
	assert.Contains(t, page, "<td>Book</td>")
	assert.Contains(t, page, `class="incident"><td>Incidents Book</td>`)
	assert.Contains(t, page, "28.50 EUR")
	assert.Contains(t, page, "-5.50 EUR")
	assert.Contains(t, page, "-1.50 EUR")
	assert.Contains(t, page, "23.00 EUR")
}

func TestInvoiceTemplate_EscapesContent(t *testing.T) {
	inv := sampleInvoice()
	inv.Reference = "<script>"
	page, err := newTestTemplate(t).Render(inv)
	require.NoError(t, err)
	assert.NotContains(t, page, "<title><script>")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestDocumentPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	renderer := &fakeRenderer{}
	store := storage.NewMemoryDocumentStore("https://docs.example.org")
	pub := NewDocumentPublisher(newTestTemplate(t), renderer, store, zap.NewNop())
	inv := sampleInvoice()

	key, err := pub.Publish(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "invoices/F260000042.pdf", key)

	require.Len(t, renderer.requests, 1)
	assert.Equal(t, "F260000042", renderer.requests[0].Title)
	assert.Contains(t, renderer.requests[0].HTML, "Invoice F260000042")

	data, contentType, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "%PDF-1.7 F260000042", string(data))

	link, err := pub.URL(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.org/invoices%2FF260000042.pdf", link)
}

func TestDocumentPublisher_RenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: NewRenderError(ErrCodeRenderTimeout, "rendering timed out", context.DeadlineExceeded)}
	store := storage.NewMemoryDocumentStore("")
	pub := NewDocumentPublisher(newTestTemplate(t), renderer, store, zap.NewNop())

	_, err := pub.Publish(context.Background(), sampleInvoice())
	require.Error(t, err)
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeRenderTimeout, renderErr.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, ok := store.Get("invoices/F260000042.pdf")
	assert.False(t, ok)
}

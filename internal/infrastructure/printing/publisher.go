package printing

import (
	"context"
	"fmt"

	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// DocumentStore keeps rendered documents
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// DocumentKey is the object key of the PDF of an invoice
func DocumentKey(invoice *finance.Invoice) string {
	return "invoices/" + invoice.Reference + ".pdf"
}

// DocumentPublisher renders invoices to PDF and stores them
type DocumentPublisher struct {
	template *InvoiceTemplate
	renderer PDFRenderer
	store    DocumentStore
	logger   *zap.Logger
}

// NewDocumentPublisher creates a new DocumentPublisher
func NewDocumentPublisher(tmpl *InvoiceTemplate, renderer PDFRenderer, store DocumentStore, logger *zap.Logger) *DocumentPublisher {
	return &DocumentPublisher{
		template: tmpl,
		renderer: renderer,
		store:    store,
		logger:   logger.Named("invoice_documents"),
	}
}

// Publish renders invoice and uploads the PDF, returning its key
func (p *DocumentPublisher) Publish(ctx context.Context, invoice *finance.Invoice) (string, error) {
	page, err := p.template.Render(invoice)
	if err != nil {
		return "", err
	}
	result, err := p.renderer.Render(ctx, &RenderRequest{HTML: page, Title: invoice.Reference})
	if err != nil {
		return "", fmt.Errorf("print invoice %s: %w", invoice.Reference, err)
	}
	key := DocumentKey(invoice)
	if err := p.store.Put(ctx, key, result.PDFData, pdfContentType); err != nil {
		return "", err
	}
	p.logger.Info("invoice document stored",
		zap.String("reference", invoice.Reference),
		zap.String("key", key),
		zap.Int("bytes", len(result.PDFData)),
		zap.Duration("render_duration", result.RenderDuration),
	)
	return key, nil
}

// URL returns a download link for the document of invoice
func (p *DocumentPublisher) URL(ctx context.Context, invoice *finance.Invoice) (string, error) {
	return p.store.PresignGet(ctx, DocumentKey(invoice))
}

var _ appfinance.InvoiceDocumentPublisher = (*DocumentPublisher)(nil)

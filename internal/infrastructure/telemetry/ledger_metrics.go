package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys of the ledger
var (
	AttrMotive = attribute.Key("motive")
	AttrJob    = attribute.Key("job")
)

// JobDurationBuckets are bucket boundaries for batch job durations (seconds).
var JobDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900}

// LedgerMetrics records the activity of the pricing, cashflow and invoice jobs.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	logger *zap.Logger

	eventsPriced         *Counter
	pricingErrors        *Counter
	pricingPointsSkipped *Counter
	cashflowsCreated     *Counter
	cashflowAmount       *Counter
	invoicesGenerated    *Counter
	jobDuration          *Histogram
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on the given meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lm := &LedgerMetrics{logger: logger}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.eventsPriced, "ledger_events_priced_total", "Finance events priced", "{events}"},
		{&lm.pricingErrors, "ledger_pricing_errors_total", "Finance events that failed to price", "{events}"},
		{&lm.pricingPointsSkipped, "ledger_pricing_points_skipped_total", "Pricing points skipped because another worker held the lock", "{pricing_points}"},
		{&lm.cashflowsCreated, "ledger_cashflows_created_total", "Cashflows created by batches", "{cashflows}"},
		{&lm.cashflowAmount, "ledger_cashflow_amount_total", "Amount put in cashflows, in cents", "{cents}"},
		{&lm.invoicesGenerated, "ledger_invoices_generated_total", "Invoices generated", "{invoices}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	lm.jobDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_job_duration_seconds",
		Description: "Duration of ledger batch jobs",
		Unit:        "s",
		Boundaries:  JobDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return lm, nil
}

// RecordEventPriced counts one priced event
func (m *LedgerMetrics) RecordEventPriced(ctx context.Context, motive string) {
	if m == nil {
		return
	}
	m.eventsPriced.Inc(ctx, AttrMotive.String(motive))
}

// RecordPricingError counts one event that failed to price
func (m *LedgerMetrics) RecordPricingError(ctx context.Context) {
	if m == nil {
		return
	}
	m.pricingErrors.Inc(ctx)
}

// RecordPricingPointSkipped counts a pricing point left to another worker
func (m *LedgerMetrics) RecordPricingPointSkipped(ctx context.Context) {
	if m == nil {
		return
	}
	m.pricingPointsSkipped.Inc(ctx)
}

// RecordCashflowCreated counts a cashflow and its amount. Negative amounts
// are not added to the monotonic amount counter.
func (m *LedgerMetrics) RecordCashflowCreated(ctx context.Context, amount int64) {
	if m == nil {
		return
	}
	m.cashflowsCreated.Inc(ctx)
	if amount > 0 {
		m.cashflowAmount.Add(ctx, amount)
	}
}

// RecordInvoiceGenerated counts one invoice
func (m *LedgerMetrics) RecordInvoiceGenerated(ctx context.Context) {
	if m == nil {
		return
	}
	m.invoicesGenerated.Inc(ctx)
}

// RecordJobDuration records how long a batch job took
func (m *LedgerMetrics) RecordJobDuration(ctx context.Context, job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.RecordDuration(ctx, d, AttrJob.String(job))
}

// MetricsError describes a failure to set up instruments
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

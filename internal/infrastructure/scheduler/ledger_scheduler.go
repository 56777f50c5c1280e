package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/logger"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobName identifies one of the periodic ledger jobs
type JobName string

const (
	JobPricing  JobName = "pricing"
	JobCashflow JobName = "cashflow"
	JobInvoice  JobName = "invoice"
)

// PricingRunner prices the ready finance events
type PricingRunner interface {
	Run(ctx context.Context) (*appfinance.PricingRunReport, error)
}

// CashflowRunner groups validated pricings into cashflows
type CashflowRunner interface {
	RunBatch(ctx context.Context, cutoff time.Time) (*appfinance.BatchResult, error)
}

// InvoiceRunner invoices accepted cashflows
type InvoiceRunner interface {
	GenerateAll(ctx context.Context) (*appfinance.InvoiceRunReport, error)
}

// LedgerSchedulerConfig holds the job intervals. A zero interval leaves the
// job to manual triggers only.
type LedgerSchedulerConfig struct {
	Enabled          bool
	PricingInterval  time.Duration
	CashflowInterval time.Duration
	InvoiceInterval  time.Duration
	CutoffOffset     time.Duration
	JobTimeout       time.Duration
}

// LedgerSchedulerConfigFrom builds the scheduler configuration from the
// application configuration
func LedgerSchedulerConfigFrom(cfg *config.Config) LedgerSchedulerConfig {
	return LedgerSchedulerConfig{
		Enabled:          cfg.Scheduler.Enabled,
		PricingInterval:  cfg.Scheduler.PricingInterval,
		CashflowInterval: cfg.Scheduler.CashflowInterval,
		InvoiceInterval:  cfg.Scheduler.InvoiceInterval,
		CutoffOffset:     cfg.Cashflow.CutoffOffset,
		JobTimeout:       cfg.Scheduler.JobTimeout,
	}
}

// Validate validates the configuration
func (c LedgerSchedulerConfig) Validate() error {
	if c.PricingInterval < 0 || c.CashflowInterval < 0 || c.InvoiceInterval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	}
	if c.CutoffOffset < 0 {
		return fmt.Errorf("%w: negative cutoff offset", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// JobState is the observable state of a job
type JobState struct {
	Name           JobName    `json:"name"`
	Interval       string     `json:"interval"`
	Running        bool       `json:"running"`
	Runs           int        `json:"runs"`
	Failures       int        `json:"failures"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LastDuration   string     `json:"last_duration,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastResult     any        `json:"last_result,omitempty"`
}

type job struct {
	name     JobName
	interval time.Duration
	run      func(ctx context.Context) (any, error)
	running  atomic.Bool

	mu    sync.Mutex
	state JobState
}

func (j *job) snapshot() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.state
	s.Running = j.running.Load()
	return s
}

// LedgerScheduler runs the pricing, cashflow and invoice jobs on their
// intervals. A job never overlaps with itself: a tick or trigger arriving
// while it runs is skipped.
type LedgerScheduler struct {
	cfg     LedgerSchedulerConfig
	jobs    map[JobName]*job
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
	now     func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewLedgerScheduler creates the scheduler. metrics may be nil.
func NewLedgerScheduler(
	cfg LedgerSchedulerConfig,
	pricing PricingRunner,
	cashflows CashflowRunner,
	invoices InvoiceRunner,
	metrics *telemetry.LedgerMetrics,
	log *zap.Logger,
) (*LedgerScheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &LedgerScheduler{
		cfg:     cfg,
		jobs:    make(map[JobName]*job, 3),
		logger:  log.Named("scheduler"),
		metrics: metrics,
		now:     time.Now,
	}
	s.add(JobPricing, cfg.PricingInterval, func(ctx context.Context) (any, error) {
		return pricing.Run(ctx)
	})
	s.add(JobCashflow, cfg.CashflowInterval, func(ctx context.Context) (any, error) {
		result, err := cashflows.RunBatch(ctx, s.cutoff())
		if err != nil {
			return nil, err
		}
		return appfinance.ToBatchResponse(result), nil
	})
	s.add(JobInvoice, cfg.InvoiceInterval, func(ctx context.Context) (any, error) {
		return invoices.GenerateAll(ctx)
	})
	return s, nil
}

// WithClock replaces the time source
func (s *LedgerScheduler) WithClock(now func() time.Time) *LedgerScheduler {
	s.now = now
	return s
}

func (s *LedgerScheduler) add(name JobName, interval time.Duration, run func(context.Context) (any, error)) {
	j := &job{name: name, interval: interval, run: run}
	j.state = JobState{Name: name, Interval: interval.String()}
	s.jobs[name] = j
}

// cutoff is now minus the offset, truncated to the cashflow interval so that
// a retried tick reuses the batch of its window
func (s *LedgerScheduler) cutoff() time.Time {
	c := s.now().UTC().Add(-s.cfg.CutoffOffset)
	if s.cfg.CashflowInterval > 0 {
		c = c.Truncate(s.cfg.CashflowInterval)
	}
	return c
}

// Start launches one loop per job with a positive interval
func (s *LedgerScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if !s.cfg.Enabled {
		s.logger.Info("ledger scheduler is disabled")
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, j := range s.jobs {
		if j.interval <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.logger.Info("ledger scheduler started",
		zap.Duration("pricing_interval", s.cfg.PricingInterval),
		zap.Duration("cashflow_interval", s.cfg.CashflowInterval),
		zap.Duration("invoice_interval", s.cfg.InvoiceInterval),
	)
	return nil
}

// Stop cancels the loops and waits for running jobs, or for ctx
func (s *LedgerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("ledger scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("ledger scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *LedgerScheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.execute(ctx, j); errors.Is(err, ErrJobRunning) {
				s.logger.Debug("previous run still in progress, tick skipped", zap.String("job", string(j.name)))
			}
		}
	}
}

// Trigger runs a job now on the caller's goroutine and returns its state
func (s *LedgerScheduler) Trigger(ctx context.Context, name JobName) (JobState, error) {
	j, ok := s.jobs[name]
	if !ok {
		return JobState{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

func (s *LedgerScheduler) execute(ctx context.Context, j *job) (JobState, error) {
	if !j.running.CompareAndSwap(false, true) {
		return j.snapshot(), ErrJobRunning
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	ctx = logger.WithJob(ctx, string(j.name))
	ctx, span := telemetry.StartServiceSpan(ctx, "scheduler", string(j.name))
	defer span.End()
	log := logger.For(ctx, s.logger)

	started := s.now().UTC()
	j.mu.Lock()
	j.state.LastStartedAt = &started
	j.mu.Unlock()

	var (
		result any
		err    error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("ledger_job", map[string]string{"job": string(j.name)}),
		func(ctx context.Context) {
			result, err = j.run(ctx)
		})

	finished := s.now().UTC()
	elapsed := finished.Sub(started)
	s.metrics.RecordJobDuration(ctx, string(j.name), elapsed)

	j.mu.Lock()
	j.state.Runs++
	j.state.LastFinishedAt = &finished
	j.state.LastDuration = elapsed.String()
	j.state.LastResult = result
	j.state.LastError = ""
	if err != nil {
		j.state.Failures++
		j.state.LastError = err.Error()
	}
	j.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("ledger job failed", zap.Duration("duration", elapsed), zap.Error(err))
		return j.snapshot(), err
	}
	log.Info("ledger job completed", zap.Duration("duration", elapsed), zap.Any("result", result))
	return j.snapshot(), nil
}

// Status returns the state of every job, sorted by name
func (s *LedgerScheduler) Status() []JobState {
	states := make([]JobState, 0, len(s.jobs))
	for _, j := range s.jobs {
		states = append(states, j.snapshot())
	}
	sort.Slice(states, func(a, b int) bool { return states[a].Name < states[b].Name })
	return states
}

// Running reports whether the loops are active
func (s *LedgerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

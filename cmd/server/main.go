package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/cache"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/config"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/event"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/logger"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/migration"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/printing"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/scheduler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/storage"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/handler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/router"
	"github.com/pass-culture/pass-culture-main-sub045/migrations"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	// Telemetry: traces, metrics, logs and profiles
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() { _ = mp.Shutdown(context.Background()) }()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() { _ = lp.Shutdown(context.Background()) }()
	if cfg.Telemetry.LogsEnabled {
		log = telemetry.BridgeLogger(log, cfg.Telemetry.ServiceName, lp, logger.ParseLevel(cfg.Telemetry.LogsLevel))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() { _ = profiler.Stop() }()
	if cfg.Telemetry.ProfilingEnabled {
		tp.EnableSpanProfiles()
	}

	log.Info("Starting reimbursement ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        db.DBSystem(),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := migrateSchema(cfg, db, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Redis leases and idempotency marks, in-memory when Redis is absent
	coordination, err := cache.NewCoordination(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize coordination backend", zap.Error(err))
	}
	defer func() { _ = coordination.Close() }()

	rules, err := newRuleResolver(cfg.Rules)
	if err != nil {
		log.Fatal("Invalid reimbursement rules", zap.Error(err))
	}

	var ledgerMetrics *telemetry.LedgerMetrics
	var meter metric.Meter
	if mp.IsEnabled() {
		meter = mp.Meter(cfg.Telemetry.ServiceName)
		ledgerMetrics, err = telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: meter, Logger: log})
		if err != nil {
			log.Fatal("Failed to create ledger metrics", zap.Error(err))
		}
	}

	// Domain events are dispatched in process once their transaction committed
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	scope := persistence.NewGormTransactionScope(db.DB)
	eventBus.Subscribe(event.NewIdempotentHandler(
		financeapp.NewInvoiceGeneratedHandler(scope, log),
		coordination.Idempotency,
		log,
	))

	documents, closeDocuments, err := newInvoiceDocuments(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize invoice documents", zap.Error(err))
	}
	defer closeDocuments()

	// Application services
	eventStore := financeapp.NewEventStore(scope, eventBus, log)
	pricingEngine := financeapp.NewPricingEngine(scope, rules, coordination.Locker, eventBus, ledgerMetrics, log,
		financeapp.PricingConfig{
			Workers:     cfg.Pricing.Workers,
			LockTTL:     cfg.Pricing.LockTTL,
			GracePeriod: cfg.Pricing.GracePeriod,
			BatchSize:   cfg.Pricing.BatchSize,
		})
	cashflowBatcher := financeapp.NewCashflowBatcher(scope, coordination.Locker, eventBus, ledgerMetrics, log, cfg.Cashflow.LockTTL)
	invoiceGenerator := financeapp.NewInvoiceGenerator(scope, coordination.Locker, eventBus, documents, ledgerMetrics, log, cfg.Invoice.LockTTL)
	incidentCorrector := financeapp.NewIncidentCorrector(scope, financeapp.NewSnapshotBookingCanceller(scope, log), eventBus, log)
	queries := financeapp.NewQueries(scope)
	recipients := financeapp.NewRecipientService(scope)

	// Periodic pricing, cashflow and invoice jobs
	jobs, err := scheduler.NewLedgerScheduler(scheduler.LedgerSchedulerConfigFrom(cfg),
		pricingEngine, cashflowBatcher, invoiceGenerator, ledgerMetrics, log)
	if err != nil {
		log.Fatal("Failed to create ledger scheduler", zap.Error(err))
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start ledger scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.JobTimeout)
		defer cancel()
		if err := jobs.Stop(stopCtx); err != nil {
			log.Error("Error stopping ledger scheduler", zap.Error(err))
		}
	}()

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		Release:        cfg.App.Env == "production",
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Meter:          meter,
		Tracing:        tp.IsEnabled(),
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}
	router.Mount(engine, router.LedgerHandlers{
		Events:     handler.NewEventHandler(eventStore, queries),
		Pricings:   handler.NewPricingHandler(pricingEngine, queries),
		Cashflows:  handler.NewCashflowHandler(cashflowBatcher, queries),
		Invoices:   handler.NewInvoiceHandler(invoiceGenerator, queries),
		Incidents:  handler.NewIncidentHandler(incidentCorrector, queries),
		Recipients: handler.NewRecipientHandler(recipients, queries),
	}, handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db, jobs))

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded migrations on postgres and lets GORM
// create the tables on sqlite
func migrateSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	if cfg.Database.Driver != "postgres" {
		return db.AutoMigrate()
	}
	m, err := migration.Open(&cfg.Database, migration.Source{FS: migrations.FS}, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func newRuleResolver(cfg config.RulesConfig) (*finance.TieredRuleResolver, error) {
	defaultRate, err := cfg.ParseDefaultRate()
	if err != nil {
		return nil, err
	}
	categoryRates, err := cfg.ParseCategoryRates()
	if err != nil {
		return nil, err
	}
	tiers := finance.DefaultRevenueTiers()
	if len(cfg.Tiers) > 0 {
		tiers = make([]finance.RevenueTier, 0, len(cfg.Tiers))
		for _, t := range cfg.Tiers {
			rate, err := t.ParseRate()
			if err != nil {
				return nil, err
			}
			tiers = append(tiers, finance.RevenueTier{Threshold: t.Threshold, Rate: rate})
		}
	}
	return finance.NewTieredRuleResolver(cfg.DefaultCategory, defaultRate, categoryRates, tiers), nil
}

// newInvoiceDocuments builds the PDF pipeline. It returns a nil publisher
// when documents are disabled.
func newInvoiceDocuments(ctx context.Context, cfg *config.Config, log *zap.Logger) (financeapp.InvoiceDocumentPublisher, func(), error) {
	if !cfg.Invoice.DocumentsEnabled {
		log.Info("Invoice documents disabled")
		return nil, func() {}, nil
	}

	amounts, err := printing.NewAmountFormatter(cfg.Printing.Locale, cfg.Printing.Currency)
	if err != nil {
		return nil, nil, err
	}

	var store printing.DocumentStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3DocumentStore(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiry(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("document storage: %w", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Warn("Document bucket is not reachable yet", zap.Error(err))
		}
		store = s3Store
	} else {
		log.Warn("No document bucket configured, invoice documents are kept in memory")
		store = storage.NewMemoryDocumentStore("")
	}

	renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		RemoteURL:      cfg.Printing.RemoteURL,
		DefaultTimeout: cfg.Printing.Timeout,
		NoSandbox:      os.Geteuid() == 0,
		Logger:         log,
	})
	publisher := printing.NewDocumentPublisher(printing.NewInvoiceTemplate(amounts), renderer, store, log)
	return publisher, func() { _ = renderer.Close() }, nil
}

package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/logger"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const healthPath = "/health"

// EngineConfig configures the gin engine and its middleware stack
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	Release        bool
	TrustedProxies []string
	MaxBodySize    int64
	// Meter records HTTP server metrics. Nil disables them.
	Meter metric.Meter
	// Tracing adds the otelgin middleware
	Tracing bool
}

// NewEngine creates a gin engine with the middleware stack applied in order:
// request id, panic recovery, access log, tracing, metrics, profiling labels
// and the body size limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return nil, fmt.Errorf("setup validator: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, healthPath))
	if cfg.Tracing {
		engine.Use(middleware.Tracing(cfg.ServiceName), middleware.SpanEnricher())
	}
	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	engine.Use(httpMetrics)
	engine.Use(middleware.Profiling(healthPath))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine, nil
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/logger"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/scheduler"
	"github.com/pass-culture/pass-culture-main-sub045/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// DatabasePinger checks the database connection
type DatabasePinger interface {
	Ping() error
}

// JobScheduler exposes the periodic ledger jobs
type JobScheduler interface {
	Status() []scheduler.JobState
	Trigger(ctx context.Context, name scheduler.JobName) (scheduler.JobState, error)
	Running() bool
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Database string `json:"database"`
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// SchedulerStatusResponse lists the ledger jobs
type SchedulerStatusResponse struct {
	Running bool                 `json:"running"`
	Jobs    []scheduler.JobState `json:"jobs"`
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        DatabasePinger
	jobs      JobScheduler
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. jobs may be nil when the
// scheduler is not wired.
func NewSystemHandler(name, version string, db DatabasePinger, jobs JobScheduler) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		jobs:      jobs,
		startTime: time.Now(),
	}
}

// Health reports whether the database answers
func (h *SystemHandler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.db.Ping(); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Time: now, Database: "error"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Time: now, Database: "ok"})
}

// Info returns basic system information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// SchedulerStatus returns the state of every ledger job
func (h *SystemHandler) SchedulerStatus(c *gin.Context) {
	if h.jobs == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Scheduler is not configured")
		return
	}
	h.Success(c, SchedulerStatusResponse{Running: h.jobs.Running(), Jobs: h.jobs.Status()})
}

// TriggerJob runs a ledger job now
func (h *SystemHandler) TriggerJob(c *gin.Context) {
	if h.jobs == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Scheduler is not configured")
		return
	}
	state, err := h.jobs.Trigger(c.Request.Context(), scheduler.JobName(c.Param("job")))
	switch {
	case err == nil:
		h.Success(c, state)
	case errors.Is(err, scheduler.ErrUnknownJob):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())
	case errors.Is(err, scheduler.ErrJobRunning):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
	default:
		h.HandleError(c, err)
	}
}

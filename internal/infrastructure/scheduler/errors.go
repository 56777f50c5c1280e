package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrUnknownJob is returned when triggering a job that does not exist
	ErrUnknownJob = errors.New("unknown ledger job")

	// ErrJobRunning is returned when a job is triggered while it runs
	ErrJobRunning = errors.New("ledger job already running")
)

package interfaces

import "time"

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
}

// SchedulerService manages cron-based scheduling of background jobs
// (currently the periodic disk-vs-index reconciliation run).
type SchedulerService interface {
	// RegisterJob registers a job under a cron schedule
	RegisterJob(name string, schedule string, handler func() error) error

	// Start begins executing registered jobs
	Start() error

	// Stop halts the scheduler, waiting for running jobs to finish
	Stop() error

	// IsRunning returns true if the scheduler is active
	IsRunning() bool

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*JobStatus, error)
}

package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJob is returned when no executor is registered for a job name
	ErrUnknownJob = errors.New("no executor registered for job")

	// ErrJobAlreadyActive is returned when a job with the same name is queued or running
	ErrJobAlreadyActive = errors.New("job already queued or running")
)

package job

import "errors"

var (
	// ErrUnknownTask is returned when a job names a task that is not registered.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrDuplicateTask is returned when two tasks share a name.
	ErrDuplicateTask = errors.New("job: duplicate task name")

	// ErrInvalidSchedule is returned for a cron expression that does not parse.
	ErrInvalidSchedule = errors.New("job: invalid schedule")

	// ErrAlreadyStarted is returned when starting a running manager.
	ErrAlreadyStarted = errors.New("job: already started")

	// ErrNotStarted is returned when stopping a manager that is not running.
	ErrNotStarted = errors.New("job: not started")

	// ErrPoolRequired is returned when no database pool is given.
	ErrPoolRequired = errors.New("job: pool is required")

	// ErrMigrate is returned when River's schema migrations fail.
	ErrMigrate = errors.New("job: migrate")

	// ErrHealthcheckFailed is returned when the job manager health check fails.
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)

package job

import (
	"context"
	"log/slog"
)

type config struct {
	logger     *slog.Logger
	tasks      []scheduledTask
	maxWorkers int
}

func newConfig() *config {
	return &config{maxWorkers: defaultMaxWorkers}
}

// scheduledTask is a periodic task with its cron expression.
type scheduledTask struct {
	handle     func(context.Context) error
	name       string
	schedule   string
	runOnStart bool
}

// Option configures the job manager.
type Option func(*config)

// TaskOption configures a single scheduled task.
type TaskOption func(*scheduledTask)

// RunOnStart also runs the task as soon as the manager starts.
func RunOnStart() TaskOption {
	return func(t *scheduledTask) {
		t.runOnStart = true
	}
}

// WithScheduledTask registers a periodic task using structural typing.
// Schedule returns a standard 5-field cron expression.
//
// Example:
//
//	type Purge struct{ cache *cache.Cache }
//
//	func (t *Purge) Name() string     { return "refcache.purge" }
//	func (t *Purge) Schedule() string { return "*/10 * * * *" }
//	func (t *Purge) Handle(ctx context.Context) error {
//	    t.cache.PurgeExpired(ctx)
//	    return nil
//	}
//
//	job.WithScheduledTask(&Purge{cache: c})
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T, opts ...TaskOption) Option {
	return func(c *config) {
		st := scheduledTask{
			name:     task.Name(),
			schedule: task.Schedule(),
			handle:   task.Handle,
		}
		for _, opt := range opts {
			opt(&st)
		}
		c.tasks = append(c.tasks, st)
	}
}

// WithLogger sets the logger used by the manager and the River client.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers caps concurrent task executions.
// Default: 10.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

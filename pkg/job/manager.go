package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const defaultMaxWorkers = 10

// Manager runs periodic maintenance tasks on River.
// River's leader election makes sure a periodic job is enqueued once per
// tick even when several instances share the database.
type Manager struct {
	pool    *pgxpool.Pool
	client  *river.Client[pgx.Tx]
	tasks   map[string]func(context.Context) error
	logger  *slog.Logger
	mu      sync.Mutex
	started bool
}

// NewManager validates every task schedule and creates the River client.
// Nothing runs until Start.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tasks := make(map[string]func(context.Context) error, len(cfg.tasks))
	periodic := make([]*river.PeriodicJob, 0, len(cfg.tasks))
	for _, t := range cfg.tasks {
		if _, ok := tasks[t.name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.name)
		}
		schedule, err := parseSchedule(t.schedule)
		if err != nil {
			return nil, err
		}
		tasks[t.name] = t.handle

		name := t.name
		periodic = append(periodic, river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return taskArgs{Task: name}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: t.runOnStart},
		))
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{tasks: tasks, logger: cfg.logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: cfg.maxWorkers}},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}

	return &Manager{
		pool:   pool,
		client: client,
		tasks:  tasks,
		logger: cfg.logger,
	}, nil
}

// Start begins scheduling and executing tasks.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("job: start client: %w", err)
	}

	m.started = true
	m.logger.InfoContext(ctx, "job manager started", slog.Int("tasks", len(m.tasks)))
	return nil
}

// Stop waits for running tasks to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop client: %w", err)
	}

	m.started = false
	m.logger.InfoContext(ctx, "job manager stopped")
	return nil
}

// Shutdown returns Stop as a shutdown hook.
func (m *Manager) Shutdown() func(context.Context) error {
	return m.Stop
}

// taskArgs is the River payload shared by every scheduled task.
type taskArgs struct {
	Task string `json:"task"`
}

func (taskArgs) Kind() string { return "refcache:task" }

type taskWorker struct {
	river.WorkerDefaults[taskArgs]
	tasks  map[string]func(context.Context) error
	logger *slog.Logger
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	handle, ok := w.tasks[job.Args.Task]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Args.Task)
	}

	log := w.logger.With(
		slog.String("task", job.Args.Task),
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
	)
	log.DebugContext(ctx, "executing task")

	if err := handle(ctx); err != nil {
		log.ErrorContext(ctx, "task failed", slog.Any("error", err))
		return err
	}

	log.DebugContext(ctx, "task completed")
	return nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job results reported to the observer.
const (
	ResultSucceeded = "succeeded"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

var (
	// ErrQueueFull is returned when the buffer cannot take another job without blocking.
	ErrQueueFull = errors.New("queue full")
	// ErrNotStarted is returned by Enqueue before Start or after Stop.
	ErrNotStarted = errors.New("queue not started")
)

// Job represents a queued compensating action.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// Observer is notified of every terminal or retry outcome.
type Observer func(jobType, result string)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	Observer   Observer
}

// Queue is an in-memory outbox. Jobs are routed to the handler registered for
// their Type; failures are retried with a linearly growing delay.
type Queue struct {
	name string

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	observer   Observer

	handlers map[string]Handler
	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	started  bool
}

// NewQueue builds a new queue.
func NewQueue(name string, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Observer == nil {
		cfg.Observer = func(string, string) {}
	}

	return &Queue{
		name:       name,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		handlers:   make(map[string]Handler),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit. Buffered jobs are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("dropped", len(q.jobs)))
}

// Enqueue pushes a job without blocking the caller.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	ctx := q.ctx
	started := q.started
	_, known := q.handlers[job.Type]
	q.mu.RUnlock()

	if !started {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if !known {
		return fmt.Errorf("%s: no handler for job type %q", q.name, job.Type)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	case q.jobs <- job:
		return nil
	default:
		q.observer(job.Type, ResultDropped)
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	q.mu.RLock()
	handler := q.handlers[job.Type]
	q.mu.RUnlock()

	if err := handler(q.ctx, job); err != nil {
		q.handleFailure(job, err)
		return
	}
	q.observer(job.Type, ResultSucceeded)
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.observer(job.Type, ResultFailed)
		q.logger.Error("job exceeded retries",
			zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	q.observer(job.Type, ResultRetried)
	q.logger.Warn("job failed, retrying",
		zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt), zap.Error(err))

	delay := q.retryDelay * time.Duration(job.Attempt)
	go func(j Job) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}

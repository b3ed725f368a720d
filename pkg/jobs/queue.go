package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work identified by Key. While a task with a
// given key is waiting, submitting the same key again is a no-op.
type Task struct {
	Key     string
	Attempt int
}

// Handler processes a task.
type Handler func(context.Context, Task) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory, key-coalescing task dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[string]struct{}
	started bool
}

// NewQueue builds a queue that runs handler for each submitted task.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger,
		tasks:   make(chan Task, cfg.BufferSize),
		pending: make(map[string]struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Submit schedules key for processing. It returns false when the same key is
// already waiting.
func (q *Queue) Submit(key string) (bool, error) {
	return q.enqueue(Task{Key: key})
}

func (q *Queue) enqueue(task Task) (bool, error) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return false, fmt.Errorf("queue %s not started", q.name)
	}
	if _, waiting := q.pending[task.Key]; waiting {
		q.mu.Unlock()
		return false, nil
	}
	q.pending[task.Key] = struct{}{}
	ctx := q.ctx
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		q.release(task.Key)
		return false, fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return true, nil
	}
}

func (q *Queue) release(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.release(task.Key)
			if err := q.handler(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue) retry(task Task, err error) {
	task.Attempt++
	if task.Attempt > q.cfg.MaxRetries {
		q.logger.Error("task exceeded retries", zap.String("queue", q.name), zap.String("key", task.Key), zap.Error(err))
		return
	}
	q.logger.Warn("task failed, retrying", zap.String("queue", q.name), zap.String("key", task.Key), zap.Int("attempt", task.Attempt), zap.Error(err))

	go func() {
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if _, err := q.enqueue(task); err != nil {
				q.logger.Error("failed to requeue task", zap.String("queue", q.name), zap.String("key", task.Key), zap.Error(err))
			}
		}
	}()
}

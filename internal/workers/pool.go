package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// PoolConfig configures worker pool behavior
type PoolConfig struct {
	Workers         int           // Concurrency ceiling for in-flight tasks
	QueueSize       int           // Maximum queued tasks before Submit blocks
	ShutdownTimeout time.Duration // Graceful shutdown timeout
}

// DefaultPoolConfig returns sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:         8,
		QueueSize:       1000,
		ShutdownTimeout: 60 * time.Second,
	}
}

// Task represents a unit of work to be processed
type Task struct {
	ID      string
	Process func(ctx context.Context)
}

// Pool runs tasks under a fixed concurrency ceiling. The ceiling is the
// worker count: a task only executes inside a worker goroutine, so no more
// than Workers tasks are ever in flight at once. Submitted tasks queue until
// a worker frees up.
type Pool struct {
	config PoolConfig
	logger *zap.Logger

	taskQueue chan *Task

	// Coordination
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Statistics
	tasksSubmitted int64
	tasksCompleted int64
	activeWorkers  int64

	// Shutdown coordination
	shutdown      int32
	shutdownMutex sync.RWMutex
}

// worker represents an individual worker goroutine
type worker struct {
	id       int
	taskChan chan *Task
	ctx      context.Context
	logger   *zap.Logger
}

// NewPool creates a worker pool. Cancelling ctx stops workers and is visible
// to in-flight tasks through the context handed to Process.
func NewPool(ctx context.Context, config PoolConfig, logger *zap.Logger) *Pool {
	poolCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		config:    config,
		logger:    logger,
		taskQueue: make(chan *Task, config.QueueSize),
		ctx:       poolCtx,
		cancel:    cancel,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() error {
	p.shutdownMutex.Lock()
	defer p.shutdownMutex.Unlock()

	if atomic.LoadInt32(&p.shutdown) == 1 {
		return fmt.Errorf("worker pool is shutting down")
	}

	p.logger.Debug("Starting worker pool",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize))

	for i := 0; i < p.config.Workers; i++ {
		w := &worker{
			id:       i,
			taskChan: p.taskQueue,
			ctx:      p.ctx,
			logger:   p.logger.With(zap.Int("worker", i)),
		}

		p.wg.Add(1)
		go p.runWorker(w)
	}

	return nil
}

// runWorker runs the main worker loop
func (p *Pool) runWorker(w *worker) {
	defer p.wg.Done()

	w.logger.Debug("Worker started")
	defer w.logger.Debug("Worker stopped")

	for {
		select {
		case <-w.ctx.Done():
			return

		case task, ok := <-w.taskChan:
			if !ok {
				return // Intake closed and drained
			}

			atomic.AddInt64(&p.activeWorkers, 1)
			p.runTask(w, task)
			atomic.AddInt64(&p.activeWorkers, -1)
			atomic.AddInt64(&p.tasksCompleted, 1)
		}
	}
}

// runTask executes a single task, containing panics to that task
func (p *Pool) runTask(w *worker, task *Task) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Task panicked",
				zap.String("task_id", task.ID),
				zap.Any("panic", r))
		}
	}()

	w.logger.Debug("Processing task", zap.String("task_id", task.ID))
	task.Process(w.ctx)
	w.logger.Debug("Task completed",
		zap.String("task_id", task.ID),
		zap.Duration("duration", time.Since(startTime)))
}

// Submit enqueues a task, blocking while the queue is full. It fails only
// when the pool is shutting down or its context has been cancelled; a nil
// return means a worker will eventually pick the task up.
func (p *Pool) Submit(task *Task) error {
	p.shutdownMutex.RLock()
	defer p.shutdownMutex.RUnlock()

	if atomic.LoadInt32(&p.shutdown) == 1 {
		return fmt.Errorf("worker pool is shutting down")
	}

	select {
	case p.taskQueue <- task:
		atomic.AddInt64(&p.tasksSubmitted, 1)
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Drain closes the intake and blocks until the workers have finished every
// queued task, or until the pool context is cancelled. No Submit may follow.
func (p *Pool) Drain() {
	p.closeOnce.Do(func() {
		close(p.taskQueue)
	})
	p.wg.Wait()
}

// Shutdown cancels outstanding work and waits for workers to stop
func (p *Pool) Shutdown() error {
	p.shutdownMutex.Lock()
	defer p.shutdownMutex.Unlock()

	if atomic.SwapInt32(&p.shutdown, 1) == 1 {
		return nil // Already shutting down
	}

	p.logger.Debug("Shutting down worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("All workers stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.logger.Warn("Shutdown timeout reached, abandoning workers")
	}

	return nil
}

// Statistics returns current worker pool statistics
func (p *Pool) Statistics() PoolStats {
	return PoolStats{
		Workers:        p.config.Workers,
		TasksSubmitted: atomic.LoadInt64(&p.tasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.tasksCompleted),
		ActiveWorkers:  atomic.LoadInt64(&p.activeWorkers),
		QueueCapacity:  cap(p.taskQueue),
	}
}

// PoolStats contains worker pool statistics
type PoolStats struct {
	Workers        int   `json:"workers"`
	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	ActiveWorkers  int64 `json:"active_workers"`
	QueueCapacity  int   `json:"queue_capacity"`
}

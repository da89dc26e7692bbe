// Package schedule runs tasks once after a delay. It backs simulated replies:
// every task carries its own target conversation and body, so pending tasks
// never interfere with each other or with later user actions.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("schedule: queue stopped")

// Task is an immutable snapshot handed to the Handler when it fires.
type Task struct {
	ID             string
	Type           string
	ConversationID int64
	Body           string
	EnqueuedAt     time.Time
	DueAt          time.Time
}

// Handler processes a fired task. A returned error is logged; tasks are never retried.
type Handler func(ctx context.Context, task Task) error

// Option controls enqueue behavior. Zero values mean "run immediately".
type Option struct {
	ProcessIn time.Duration
}

type Queue struct {
	clock   clockwork.Clock
	handler Handler
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingTask
	stopped bool
	wg      sync.WaitGroup
}

type pendingTask struct {
	timer clockwork.Timer
}

func NewQueue(clock clockwork.Clock, handler Handler, logger *zap.Logger) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		clock:   clock,
		handler: handler,
		logger:  logger,
		pending: make(map[string]*pendingTask),
	}
}

// Enqueue schedules task and returns its id without waiting for it to run.
// The handler's context carries ctx's values but not its cancellation.
func (q *Queue) Enqueue(ctx context.Context, task Task, opts ...Option) (string, error) {
	var delay time.Duration
	if len(opts) > 0 && opts[0].ProcessIn > 0 {
		delay = opts[0].ProcessIn
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrStopped
	}
	task.ID = uuid.NewString()
	task.EnqueuedAt = q.clock.Now()
	task.DueAt = task.EnqueuedAt.Add(delay)
	entry := &pendingTask{}
	q.pending[task.ID] = entry
	q.wg.Add(1)
	q.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	timer := q.clock.AfterFunc(delay, func() {
		defer q.wg.Done()
		if !q.claim(task.ID) {
			return
		}
		q.run(runCtx, task)
	})

	q.mu.Lock()
	if _, ok := q.pending[task.ID]; ok {
		entry.timer = timer
	} else if q.stopped && timer.Stop() {
		q.wg.Done()
	}
	q.mu.Unlock()

	q.logger.Debug("task enqueued",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Int64("conversation_id", task.ConversationID),
		zap.Duration("delay", delay))
	return task.ID, nil
}

func (q *Queue) claim(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[id]; !ok {
		return false
	}
	delete(q.pending, id)
	return true
}

func (q *Queue) run(ctx context.Context, task Task) {
	if q.handler == nil {
		return
	}
	if err := q.handler(ctx, task); err != nil {
		q.logger.Error("task failed",
			zap.String("task_id", task.ID),
			zap.String("type", task.Type),
			zap.Int64("conversation_id", task.ConversationID),
			zap.Error(err))
	}
}

// Pending reports how many enqueued tasks have not started yet.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until every enqueued task has run or was dropped by Stop.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Stop drops tasks that have not fired yet and rejects further enqueues.
// It is meant for process shutdown and returns the number of dropped tasks.
func (q *Queue) Stop() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	dropped := 0
	for id, entry := range q.pending {
		delete(q.pending, id)
		dropped++
		if entry.timer != nil && entry.timer.Stop() {
			q.wg.Done()
		}
	}
	if dropped > 0 {
		q.logger.Info("dropped pending tasks", zap.Int("count", dropped))
	}
	return dropped
}

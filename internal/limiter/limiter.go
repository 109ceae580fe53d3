// Package limiter runs tasks with bounded parallelism. Tasks are admitted in
// submission order, at most N at a time, and complete in any order.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ai-judge/ai-judge/internal/metrics"
)

// ErrCancelled settles tasks that were still queued when the limiter's
// context was cancelled. Such tasks never run.
var ErrCancelled = errors.New("task cancelled before it was started")

type Task[T any] func(ctx context.Context) (T, error)

// Future is the pending result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done is closed once the task has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) settle(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

type pending[T any] struct {
	task   Task[T]
	future *Future[T]
}

type Limiter[T any] struct {
	ctx   context.Context
	limit int
	stop  func() bool

	mu      sync.Mutex
	queue   []pending[T]
	running int
	// unsettled counts queued and running tasks
	unsettled int
	// idle is closed whenever unsettled drops to zero
	idle chan struct{}
}

// New returns a limiter admitting at most limit tasks at once (at least one).
// Cancelling ctx stops admission: queued tasks settle with ErrCancelled and
// running tasks observe the cancellation through their own context.
func New[T any](ctx context.Context, limit int) *Limiter[T] {
	if limit < 1 {
		limit = 1
	}
	idle := make(chan struct{})
	close(idle)
	l := &Limiter[T]{
		ctx:   ctx,
		limit: limit,
		idle:  idle,
	}
	l.stop = context.AfterFunc(ctx, l.cancelQueued)
	return l
}

func (l *Limiter[T]) Limit() int {
	return l.limit
}

// Submit enqueues task and returns its future. Submitting to a cancelled
// limiter settles the future with ErrCancelled right away.
func (l *Limiter[T]) Submit(task Task[T]) *Future[T] {
	future := newFuture[T]()
	p := pending[T]{task: task, future: future}

	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		var zero T
		future.settle(zero, ErrCancelled)
		return future
	}
	if l.unsettled == 0 {
		l.idle = make(chan struct{})
	}
	l.unsettled++
	if l.running < l.limit {
		l.running++
		l.mu.Unlock()
		go l.work(p)
		return future
	}
	l.queue = append(l.queue, p)
	l.mu.Unlock()
	return future
}

// Drain returns once every submitted task has settled, including tasks
// submitted while Drain is waiting. It only fails when ctx is done.
func (l *Limiter[T]) Drain(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.unsettled == 0 {
			l.mu.Unlock()
			return nil
		}
		idle := l.idle
		l.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close releases the cancellation hook. Running and queued tasks are not
// affected.
func (l *Limiter[T]) Close() {
	l.stop()
}

// Stats returns the number of running and queued tasks.
func (l *Limiter[T]) Stats() (running int, queued int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running, len(l.queue)
}

// work runs p and then keeps taking queued tasks until the queue is empty,
// so a slot is handed over without an extra goroutine.
func (l *Limiter[T]) work(p pending[T]) {
	for {
		value, err := l.execute(p.task)
		p.future.settle(value, err)

		l.mu.Lock()
		l.unsettled--
		if l.unsettled == 0 {
			close(l.idle)
		}
		if len(l.queue) == 0 || l.ctx.Err() != nil {
			l.running--
			l.mu.Unlock()
			return
		}
		p = l.queue[0]
		l.queue[0] = pending[T]{}
		l.queue = l.queue[1:]
		l.mu.Unlock()
	}
}

func (l *Limiter[T]) execute(task Task[T]) (value T, err error) {
	metrics.LimiterInFlight.Inc()
	defer metrics.LimiterInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(l.ctx)
}

func (l *Limiter[T]) cancelQueued() {
	l.mu.Lock()
	queued := l.queue
	l.queue = nil
	l.mu.Unlock()
	if len(queued) == 0 {
		return
	}

	var zero T
	for _, p := range queued {
		p.future.settle(zero, ErrCancelled)
	}

	l.mu.Lock()
	l.unsettled -= len(queued)
	if l.unsettled == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
}

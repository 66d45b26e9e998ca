// Package eventloop runs every tracker callback on one goroutine. Other goroutines
// hand work to it with Post; timers and async completions re-enter through the same queue.
package eventloop

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Showdown-LadderTracker-bot/internal/obslog"
	"github.com/park285/Showdown-LadderTracker-bot/internal/tracker"
)

type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

var _ tracker.Runtime = (*Loop)(nil)

func New() *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Post queues fn and reports false once the loop has stopped. Safe from any goroutine,
// including the loop itself.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it. It must not be called from the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is done. Queued work left at that point is dropped
// and in-flight async jobs see their context cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			l.drain(ctx)
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			runSafe(fn)
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.cancel()
}

// Wait blocks until async jobs started through the loop have returned.
func (l *Loop) Wait() { l.jobs.Wait() }

func runSafe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("loop_task_panic", zap.Any("panic", r))
		}
	}()
	fn()
}

func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc schedules fn on the loop. Stop, called on the loop, guarantees fn will
// not run even if the underlying timer already fired and its callback is queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) tracker.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.cancelled {
				return
			}
			lt.fired = true
			fn()
		})
	})
	return lt
}

// Async runs work on its own goroutine and posts the returned func back to the loop.
func (l *Loop) Async(work func(ctx context.Context) func()) {
	l.jobs.Add(1)
	go func() {
		defer l.jobs.Done()
		var done func()
		func() {
			defer func() {
				if r := recover(); r != nil {
					obslog.L().Error("async_job_panic", zap.Any("panic", r))
				}
			}()
			done = work(l.ctx)
		}()
		if done != nil {
			l.Post(done)
		}
	}()
}

type loopTimer struct {
	t         *time.Timer
	cancelled bool
	fired     bool
}

func (lt *loopTimer) Stop() bool {
	lt.t.Stop()
	was := !lt.cancelled && !lt.fired
	lt.cancelled = true
	return was
}

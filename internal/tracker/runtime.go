package tracker

import (
	"context"
	"time"
)

// Runtime is the single sequence a Tracker runs on. Every callback handed to it
// (timer functions, the closure returned by async work) must run on that sequence.
type Runtime interface {
	Now() time.Time
	// AfterFunc runs fn on the sequence after d. Stop must prevent a pending fn from running.
	AfterFunc(d time.Duration, fn func()) Timer
	// Async runs work off the sequence; the func it returns, if non-nil, runs back on it.
	Async(work func(ctx context.Context) func())
}

type Timer interface {
	Stop() bool
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

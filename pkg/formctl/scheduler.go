package formctl

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d. Banner lifetimes go through it so tests can
// advance time by hand. fn must not run on the goroutine
// calling AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SchedulerFunc adapts a function into a Scheduler.
type SchedulerFunc func(d time.Duration, fn func()) Timer

// AfterFunc delegates to the underlying function.
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Timer {
	return fn(d, f)
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

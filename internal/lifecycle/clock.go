package lifecycle

import "time"

// Timer is a cancellable scheduled callback. Stop reports whether the call
// stopped the timer before it fired. It is an alias so that fakes outside
// this package can satisfy Clock without importing it.
type Timer = interface {
	Stop() bool
}

// Clock supplies the current time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

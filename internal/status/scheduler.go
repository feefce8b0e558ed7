package status

import "time"

// Timer is an armed one-shot callback.
type Timer interface {
	// Stop cancels the timer; it reports false if it already fired.
	Stop() bool
}

// Scheduler arms one-shot callbacks. The controller never holds more than
// one outstanding Timer.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler runs callbacks on the runtime timer goroutines.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

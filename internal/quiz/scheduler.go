package quiz

import "time"

// Scheduler runs a function once after a delay. The session treats a fired
// timer as just another input event; cancel prevents a pending fire.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

// NewScheduler returns the wall-clock scheduler used in production.
func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

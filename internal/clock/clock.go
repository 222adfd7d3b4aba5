// Package clock abstracts time so the scheduler's sweeps can be driven
// deterministically in tests instead of sleeping on the wall clock.
package clock

import "time"

// Clock is the time source injected into the scheduler and services.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// New returns a Clock backed by the wall clock.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

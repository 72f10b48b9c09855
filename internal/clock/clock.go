// Package clock abstracts wall-clock time and timers so playback can be
// driven by a virtual clock in tests and simulations.
package clock

import "time"

// Clock provides the time operations the playback engine needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports false if the call
	// already fired or was stopped.
	Stop() bool
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Milliseconds converts a fractional millisecond count to a Duration.
func Milliseconds(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// SinceMs returns the milliseconds from start to now as a float.
func SinceMs(now, start time.Time) float64 {
	return float64(now.Sub(start)) / float64(time.Millisecond)
}

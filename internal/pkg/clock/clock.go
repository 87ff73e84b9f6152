package clock

import "time"

// Clocker abstracts time so callers can replace real time in tests.
type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system clock.
type TimeClocker struct{}

// New returns a TimeClocker.
func New() *TimeClocker {
	return &TimeClocker{}
}

// Now returns the current system time in UTC.
func (*TimeClocker) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a plain function to Clocker.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

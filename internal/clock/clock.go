// Package clock supplies the current time to code that must stay testable
// with fixed instants.
package clock

import "time"

// Clock returns the current moment
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in a fixed location
type System struct {
	Location *time.Location
}

// NewSystem creates a system clock. A nil location means time.Local.
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{Location: loc}
}

// Now implements Clock
func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant
type Fixed time.Time

// Now implements Clock
func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Func adapts a plain function to Clock
type Func func() time.Time

// Now implements Clock
func (f Func) Now() time.Time {
	return f()
}

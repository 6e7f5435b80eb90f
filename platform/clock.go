// Package platform implements the engine.Clock and engine.Network
// collaborators. The real implementations wrap the host's clock and
// network interfaces; fakes alongside them give tests control over both
// without touching actual hardware or the system clock, the same
// separation the teacher draws between its Coap transport and the
// business logic that uses it.
package platform

import "time"

// SystemClock implements engine.Clock using the host's monotonic time.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock whose Seconds() counts up from the
// moment it is created, so IPSO Power Control's on-time accounting is not
// tied to wall-clock time.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Seconds returns elapsed whole seconds since the clock was created.
func (c *SystemClock) Seconds() int64 {
	return int64(time.Since(c.start).Seconds())
}

// FakeClock implements engine.Clock with a value tests advance directly.
type FakeClock struct {
	now int64
}

// NewFakeClock returns a FakeClock starting at the given second count.
func NewFakeClock(start int64) *FakeClock {
	return &FakeClock{now: start}
}

// Seconds returns the clock's current value.
func (c *FakeClock) Seconds() int64 { return c.now }

// Advance moves the clock forward by delta seconds.
func (c *FakeClock) Advance(delta int64) { c.now += delta }

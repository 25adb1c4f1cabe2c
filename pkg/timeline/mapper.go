// ABOUTME: Conversion between abstract session time and the hardware clock
// ABOUTME: Abstract time is a drift-free duration since session start
package timeline

import "time"

// Mapper pins abstract time zero to a hardware clock instant when the
// session starts. Abstract time is a time.Duration since that instant;
// it is mapped to the hardware domain only at the point of scheduling,
// via a single linear translation.
type Mapper struct {
	now   func() time.Time
	start time.Time
}

// Start pins abstract zero to the current hardware instant. A nil now
// function selects the platform monotonic clock.
func Start(now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{now: now, start: now()}
}

// StartedAt returns the hardware instant pinned to abstract zero.
func (m *Mapper) StartedAt() time.Time {
	return m.start
}

// Now returns the current abstract time.
func (m *Mapper) Now() time.Duration {
	return m.now().Sub(m.start)
}

// HardwareNow returns the current hardware-clock reading.
func (m *Mapper) HardwareNow() time.Time {
	return m.now()
}

// Abstract converts a hardware instant to abstract time.
func (m *Mapper) Abstract(t time.Time) time.Duration {
	return t.Sub(m.start)
}

// Hardware converts an abstract time to the hardware clock domain.
func (m *Mapper) Hardware(a time.Duration) time.Time {
	return m.start.Add(a)
}

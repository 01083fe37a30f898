package testutils

import "time"

// MockClock is a controllable time source for lifecycle tests.
type MockClock struct {
	Time time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{Time: t}
}

// Now returns the current mock time. Pass the method value as a clock
// function.
func (c *MockClock) Now() time.Time {
	return c.Time
}

// Advance moves the clock forward.
func (c *MockClock) Advance(d time.Duration) {
	c.Time = c.Time.Add(d)
}

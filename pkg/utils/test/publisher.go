package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// MockPublisher is a test eventstream publisher that records published
// events.
type MockPublisher struct {
	Events []*eventstream.MemoryEvent

	// FailPublish causes Publish to return an error.
	FailPublish bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Events: make([]*eventstream.MemoryEvent, 0),
	}
}

func (m *MockPublisher) Publish(_ context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.FailPublish {
		return fmt.Errorf("mock publish failure")
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// EventTypes returns the types of the recorded events, in publish order.
func (m *MockPublisher) EventTypes() []string {
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.EventType
	}
	return types
}

package observability

import (
	"context"
	"sync"
)

// CaptureObserver keeps every event it receives. It is safe for use from
// multiple goroutines and is mostly useful in tests.
type CaptureObserver struct {
	mu     sync.Mutex
	events []Event
}

func NewCaptureObserver() *CaptureObserver {
	return &CaptureObserver{}
}

func (c *CaptureObserver) OnEvent(_ context.Context, event Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Events returns a copy of the captured events in arrival order.
func (c *CaptureObserver) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns the captured events with the given type.
func (c *CaptureObserver) OfType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

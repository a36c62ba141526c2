// Package bustest provides subscriber doubles for code that uses a bus.
package bustest

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/mediator/messaging"
)

// Recorder is a Subscriber that records every callback. Optional hooks run
// after the call is recorded and their error is returned to the bus.
type Recorder struct {
	Name string

	OnDeliver  func(ctx context.Context, msg *messaging.Message) error
	OnShutdown func(ctx context.Context) error

	mu        sync.Mutex
	delivered []*messaging.Message
	shutdowns int
	changed   chan struct{}
}

func NewRecorder(name string) *Recorder {
	return &Recorder{
		Name:    name,
		changed: make(chan struct{}, 1),
	}
}

func (r *Recorder) Deliver(ctx context.Context, msg *messaging.Message) error {
	r.mu.Lock()
	r.delivered = append(r.delivered, msg)
	hook := r.OnDeliver
	r.mu.Unlock()
	r.notify()

	if hook != nil {
		return hook(ctx, msg)
	}
	return nil
}

func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.shutdowns++
	hook := r.OnShutdown
	r.mu.Unlock()
	r.notify()

	if hook != nil {
		return hook(ctx)
	}
	return nil
}

func (r *Recorder) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Delivered returns the delivered messages in delivery order.
func (r *Recorder) Delivered() []*messaging.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*messaging.Message, len(r.delivered))
	copy(out, r.delivered)
	return out
}

func (r *Recorder) Deliveries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

func (r *Recorder) Shutdowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdowns
}

// WaitDeliveries blocks until at least n messages were delivered or the
// timeout elapses, and reports whether n was reached.
func (r *Recorder) WaitDeliveries(n int, timeout time.Duration) bool {
	return r.wait(func() bool { return r.Deliveries() >= n }, timeout)
}

// WaitShutdowns blocks until Shutdown was called at least n times or the
// timeout elapses.
func (r *Recorder) WaitShutdowns(n int, timeout time.Duration) bool {
	return r.wait(func() bool { return r.Shutdowns() >= n }, timeout)
}

func (r *Recorder) wait(done func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for !done() {
		select {
		case <-r.changed:
		case <-deadline.C:
			return done()
		}
	}
	return true
}

func (r *Recorder) String() string {
	return "Recorder(" + r.Name + ")"
}

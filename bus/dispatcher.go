package bus

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/multierr"

	"github.com/tailored-agentic-units/mediator/messaging"
	"github.com/tailored-agentic-units/mediator/observability"
)

// run is the dispatcher goroutine. Each iteration sweeps deferred removals,
// stops if draining has emptied the registry, then routes at most one
// message. When the queue is empty it sleeps until a wake signal, the poll
// interval, or cancellation.
func (b *Bus) run() {
	defer b.finish()

	b.emit(EventBusStart, observability.LevelInfo, "bus.run", map[string]any{
		"poll_interval":  b.pollInterval.String(),
		"failure_policy": b.policy(),
	})

	timer := b.clock.Timer(b.pollInterval)
	defer timer.Stop()

	for {
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return
		}

		b.sweep()

		if b.State() == StateDraining && b.registry.empty() {
			return
		}

		if msg, ok := b.queue.poll(); ok {
			if err := b.route(msg); err != nil {
				b.err = err
				return
			}
			continue
		}

		timer.Reset(b.pollInterval)
		select {
		case <-b.queue.ready():
		case <-timer.C:
		case <-b.ctx.Done():
		}
	}
}

func (b *Bus) finish() {
	b.state.Store(int32(StateStopped))

	data := map[string]any{
		"discarded": b.queue.len(),
	}
	level := observability.LevelInfo
	if b.err != nil {
		data["error"] = b.err.Error()
		level = observability.LevelError
	}
	b.emit(EventBusStop, level, "bus.run", data)

	close(b.done)

	if b.onStopped != nil {
		b.onStopped()
	}
}

func (b *Bus) sweep() {
	removed := b.registry.sweep()
	if removed == 0 {
		return
	}

	b.metrics.RecordSubscription(-removed)
	b.emit(EventSubscriberRemove, observability.LevelVerbose, "bus.sweep", map[string]any{
		"removed": removed,
	})
}

// route delivers msg against the "all" list and then against its category
// list. A subscriber registered in both receives the message twice.
func (b *Bus) route(msg *messaging.Message) error {
	if msg.IsTerminate() {
		return b.terminate()
	}

	b.metrics.RecordDispatched(1)

	delivered, errs := b.deliver(b.registry.all, msg)
	if errs == nil || !b.failFast {
		if list := b.registry.category(msg.Category); list != nil {
			n, err := b.deliver(list, msg)
			delivered += n
			errs = multierr.Append(errs, err)
		}
	}

	data := map[string]any{
		"message_id": msg.ID,
		"category":   string(msg.Category),
		"deliveries": delivered,
	}
	if errs != nil {
		data["failures"] = len(multierr.Errors(errs))
		data["error"] = errs.Error()
	}
	b.emit(EventMessageDispatch, observability.LevelVerbose, "bus.route", data)

	if b.failFast {
		return errs
	}
	return nil
}

// deliver calls Deliver on every subscription in list that accepts msg.
// Under fail-fast it stops at the first failure.
func (b *Bus) deliver(list *subscriptionList, msg *messaging.Message) (int, error) {
	var errs error
	delivered := 0

	for _, sub := range list.snapshot() {
		if !sub.accepts(msg) {
			continue
		}

		delivered++
		b.metrics.RecordDelivery(1)

		err := b.invoke(sub.subscriber, "deliver", func() error {
			return sub.subscriber.Deliver(b.ctx, msg)
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			if b.failFast {
				break
			}
		}
	}

	return delivered, errs
}

// terminate tells every registered subscriber to shut down, once each, and
// moves the bus to draining. The terminate message itself is not delivered.
// A later terminate only reaches subscribers registered since the last one.
func (b *Bus) terminate() error {
	if b.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		b.emit(EventBusDraining, observability.LevelInfo, "bus.terminate", map[string]any{
			"pending": b.queue.len(),
		})
	}

	for _, s := range b.registry.distinct() {
		if _, done := b.notified[s]; done {
			continue
		}
		b.notified[s] = struct{}{}
		b.metrics.RecordShutdown(1)

		b.emit(EventSubscriberShutdown, observability.LevelVerbose, "bus.terminate", map[string]any{
			"subscriber": fmt.Sprintf("%T", s),
		})

		err := b.invoke(s, "shutdown", func() error {
			return s.Shutdown(b.ctx)
		})
		if err != nil && b.failFast {
			return err
		}
	}

	return nil
}

// invoke runs one subscriber callback, converting a panic into an error.
// Failures are counted and reported here; the caller decides whether they
// stop the dispatcher.
func (b *Bus) invoke(s messaging.Subscriber, op string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSubscriberPanic, r)
			b.failure(s, op, err, debug.Stack())
		}
		if err != nil {
			err = fmt.Errorf("%w: %s %T: %w", ErrSubscriberFailed, op, s, err)
		}
	}()

	if err := call(); err != nil {
		b.failure(s, op, err, nil)
		return err
	}
	return nil
}

func (b *Bus) failure(s messaging.Subscriber, op string, err error, stack []byte) {
	b.metrics.RecordFailure(1)

	data := map[string]any{
		"subscriber": fmt.Sprintf("%T", s),
		"operation":  op,
		"error":      err.Error(),
		"policy":     b.policy(),
	}
	if stack != nil {
		data["stack"] = string(stack)
	}
	b.emit(EventSubscriberFailure, observability.LevelError, "bus.invoke", data)
}

func (b *Bus) policy() string {
	if b.failFast {
		return "fail-fast"
	}
	return "isolate"
}

// IsSubscriberFailure reports whether err came from a subscriber callback.
func IsSubscriberFailure(err error) bool {
	return errors.Is(err, ErrSubscriberFailed)
}

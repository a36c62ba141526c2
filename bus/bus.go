package bus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tailored-agentic-units/mediator/config"
	"github.com/tailored-agentic-units/mediator/messaging"
	"github.com/tailored-agentic-units/mediator/observability"
)

// Option configures a Bus beyond what BusConfig carries.
type Option func(*Bus)

// WithObserver adds an observer that receives events alongside the one
// selected by BusConfig.Observer.
func WithObserver(o observability.Observer) Option {
	return func(b *Bus) { b.extra = append(b.extra, o) }
}

// WithClock replaces the clock driving the dispatcher's idle timer.
func WithClock(c clock.Clock) Option {
	return func(b *Bus) { b.clock = c }
}

// Bus mediates messages between subscribers. Any goroutine may post,
// register or unregister; one dispatcher goroutine performs every delivery.
type Bus struct {
	name         string
	pollInterval time.Duration
	failFast     bool
	onStopped    func()

	queue    *messageQueue[*messaging.Message]
	registry *registry
	state    atomic.Int32

	// notified is owned by the dispatcher goroutine.
	notified map[messaging.Subscriber]struct{}

	observer observability.Observer
	extra    []observability.Observer
	clock    clock.Clock
	metrics  *Metrics

	ctx  context.Context
	done chan struct{}
	err  error
}

// New creates a bus and starts its dispatcher. There is no separate start
// call: the bus runs until a terminate message has been processed and every
// subscriber has unregistered, or until ctx is cancelled.
func New(ctx context.Context, cfg config.BusConfig, opts ...Option) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bus config: %w", err)
	}

	b := &Bus{
		name:         cfg.Name,
		pollInterval: cfg.PollInterval,
		failFast:     cfg.FailurePolicy == config.FailureFailFast,
		onStopped:    cfg.OnStopped,
		queue:        newMessageQueue[*messaging.Message](),
		registry:     newRegistry(),
		notified:     make(map[messaging.Subscriber]struct{}),
		clock:        clock.New(),
		metrics:      NewMetrics(),
		ctx:          ctx,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	observer, err := resolveObserver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	b.observer = observer
	if len(b.extra) > 0 {
		b.observer = observability.NewFanout(append([]observability.Observer{observer}, b.extra...)...)
	}

	go b.run()

	return b, nil
}

func resolveObserver(cfg config.BusConfig) (observability.Observer, error) {
	observer, err := observability.New(cfg.Observer, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.ObserverLevel == "" {
		return observer, nil
	}

	level, err := observability.ParseLevel(cfg.ObserverLevel)
	if err != nil {
		return nil, err
	}
	return observability.NewLevelFilter(level, observer), nil
}

func (b *Bus) Name() string {
	return b.name
}

// Post enqueues msg for dispatch and returns immediately. It returns false
// when msg is nil, fails validation, or the bus has stopped. A post racing
// the final stop may return true for a message that is never delivered.
func (b *Bus) Post(msg *messaging.Message) bool {
	if msg == nil {
		b.reject(nil, "nil message")
		return false
	}
	if err := msg.Validate(); err != nil {
		b.reject(msg, err.Error())
		return false
	}
	if b.State() == StateStopped {
		b.reject(msg, ErrStopped.Error())
		return false
	}

	b.queue.offer(msg)
	b.metrics.RecordPosted(1)

	b.emit(EventMessagePost, observability.LevelVerbose, "bus.Post", map[string]any{
		"message_id": msg.ID,
		"category":   string(msg.Category),
	})

	return true
}

// Terminate posts a terminate message from source.
func (b *Bus) Terminate(source messaging.Subscriber) bool {
	return b.Post(messaging.NewTerminate(source).Build())
}

func (b *Bus) reject(msg *messaging.Message, reason string) {
	b.metrics.RecordRejected(1)

	data := map[string]any{"reason": reason}
	if msg != nil {
		data["message_id"] = msg.ID
	}
	b.emit(EventMessageReject, observability.LevelWarning, "bus.Post", data)
}

// RegisterAll subscribes s to every routed message.
func (b *Bus) RegisterAll(s messaging.Subscriber, mode Mode) error {
	return b.register(b.registry.all, s, mode)
}

// RegisterNotification subscribes s to notification messages.
func (b *Bus) RegisterNotification(s messaging.Subscriber, mode Mode) error {
	return b.register(b.registry.notification, s, mode)
}

// RegisterRequest subscribes s to request messages.
func (b *Bus) RegisterRequest(s messaging.Subscriber, mode Mode) error {
	return b.register(b.registry.request, s, mode)
}

// RegisterData subscribes s to data messages.
func (b *Bus) RegisterData(s messaging.Subscriber, mode Mode) error {
	return b.register(b.registry.data, s, mode)
}

// register appends a subscription. Registering the same subscriber twice
// in one list is allowed and results in two deliveries per message.
func (b *Bus) register(list *subscriptionList, s messaging.Subscriber, mode Mode) error {
	if err := validateSubscription(s, mode); err != nil {
		return err
	}

	list.add(s, mode)
	b.metrics.RecordSubscription(1)

	b.emit(EventSubscriberRegister, observability.LevelVerbose, "bus.register", map[string]any{
		"list":       list.name,
		"mode":       mode.String(),
		"subscriber": fmt.Sprintf("%T", s),
	})

	return nil
}

// UnregisterAll removes every subscription of s from the "all" list. The
// subscriptions stop receiving messages immediately, even within the
// current routing pass; the list itself is pruned by the dispatcher.
func (b *Bus) UnregisterAll(s messaging.Subscriber) {
	b.unregister(b.registry.all, s)
}

// UnregisterNotification removes every subscription of s from the notification list.
func (b *Bus) UnregisterNotification(s messaging.Subscriber) {
	b.unregister(b.registry.notification, s)
}

// UnregisterRequest removes every subscription of s from the request list.
func (b *Bus) UnregisterRequest(s messaging.Subscriber) {
	b.unregister(b.registry.request, s)
}

// UnregisterData removes every subscription of s from the data list.
func (b *Bus) UnregisterData(s messaging.Subscriber) {
	b.unregister(b.registry.data, s)
}

// unregister marks the subscriptions of s for removal. They stop receiving
// messages at once, including later in the routing pass that is running:
// a subscriber registered twice in a list that unregisters during its first
// Deliver does not get the second. The dispatcher removes the entries on
// its next iteration. Unknown or nil subscribers are ignored.
func (b *Bus) unregister(list *subscriptionList, s messaging.Subscriber) {
	if messaging.IsNilSubscriber(s) || !messaging.Comparable(s) {
		return
	}

	if n := list.retire(s); n > 0 {
		b.emit(EventSubscriberUnregister, observability.LevelVerbose, "bus.unregister", map[string]any{
			"list":          list.name,
			"subscriptions": n,
			"subscriber":    fmt.Sprintf("%T", s),
		})
		b.queue.signal()
	}
}

func (b *Bus) State() State {
	return State(b.state.Load())
}

// Done is closed when the dispatcher has stopped.
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

// Err returns why the dispatcher stopped: nil after an orderly terminate,
// the context error after cancellation, or an ErrSubscriberFailed error
// under the fail-fast policy. It returns nil while the bus is running.
func (b *Bus) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

// Wait blocks until the bus stops or ctx is done.
func (b *Bus) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return fmt.Errorf("waiting for bus %s: %w", b.name, ctx.Err())
	}
}

// Shutdown posts a terminate message on behalf of the bus itself and waits
// for the dispatcher to stop. A subscriber that never unregisters keeps the
// bus draining until ctx expires.
func (b *Bus) Shutdown(ctx context.Context) error {
	select {
	case <-b.done:
		return b.err
	default:
	}

	b.Terminate(self{})
	return b.Wait(ctx)
}

func (b *Bus) Metrics() MetricsSnapshot {
	snapshot := b.metrics.Snapshot()
	snapshot.QueueDepth = int64(b.queue.len())
	return snapshot
}

func (b *Bus) emit(eventType observability.EventType, level observability.Level, source string, data map[string]any) {
	b.observer.OnEvent(b.ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: b.clock.Now(),
		Bus:       b.name,
		Source:    source,
		Data:      data,
	})
}

// self is the source of terminate messages the bus posts for itself.
type self struct{}

func (self) Deliver(context.Context, *messaging.Message) error { return nil }
func (self) Shutdown(context.Context) error                    { return nil }

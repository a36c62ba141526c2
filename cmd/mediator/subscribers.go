package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tailored-agentic-units/mediator/bus"
	"github.com/tailored-agentic-units/mediator/messaging"
)

var errInjected = errors.New("injected responder failure")

// logSubscriber logs every message routed through the bus.
type logSubscriber struct {
	bus    *bus.Bus
	logger *slog.Logger
	count  atomic.Int64
}

func (s *logSubscriber) Deliver(ctx context.Context, msg *messaging.Message) error {
	s.count.Add(1)
	s.logger.DebugContext(ctx, "message",
		"id", msg.ID,
		"category", string(msg.Category),
		"source", fmt.Sprintf("%T", msg.Source),
		"broadcast", msg.IsBroadcast(),
	)
	return nil
}

func (s *logSubscriber) Shutdown(context.Context) error {
	s.bus.UnregisterAll(s)
	return nil
}

// notifySubscriber counts notifications addressed to it.
type notifySubscriber struct {
	bus   *bus.Bus
	count atomic.Int64
}

func (s *notifySubscriber) Deliver(context.Context, *messaging.Message) error {
	s.count.Add(1)
	return nil
}

func (s *notifySubscriber) Shutdown(context.Context) error {
	s.bus.UnregisterNotification(s)
	return nil
}

// responder answers every request with a data message targeted at the
// requester. With failEvery set it reports a failure for every nth request
// after replying.
type responder struct {
	bus       *bus.Bus
	failEvery int
	count     atomic.Int64
}

func (s *responder) Deliver(_ context.Context, msg *messaging.Message) error {
	n := s.count.Add(1)

	reply := messaging.NewData(s, msg.Source, msg.Meta, fmt.Sprintf("ack %v", msg.Meta)).Build()
	s.bus.Post(reply)

	if s.failEvery > 0 && n%int64(s.failEvery) == 0 {
		return fmt.Errorf("%w: request %d", errInjected, n)
	}
	return nil
}

func (s *responder) Shutdown(context.Context) error {
	s.bus.UnregisterRequest(s)
	return nil
}

// producer posts a rotating mix of messages and collects replies to its
// requests.
type producer struct {
	id       int
	bus      *bus.Bus
	replies  chan struct{}
	received atomic.Int64
}

func newProducer(id int, b *bus.Bus, messages int) *producer {
	return &producer{
		id:      id,
		bus:     b,
		replies: make(chan struct{}, messages),
	}
}

func (p *producer) Deliver(context.Context, *messaging.Message) error {
	p.received.Add(1)
	select {
	case p.replies <- struct{}{}:
	default:
	}
	return nil
}

func (p *producer) Shutdown(context.Context) error {
	p.bus.UnregisterData(p)
	return nil
}

// run posts n messages and waits for a reply to each request. It returns
// early, without error, once the bus stops; the bus reports why.
func (p *producer) run(ctx context.Context, n int, notifier messaging.Subscriber) error {
	requests := 0

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return nil
		}

		var msg *messaging.Message
		switch i % 3 {
		case 0:
			msg = messaging.NewNotification(p, notifier, fmt.Sprintf("producer %d message %d", p.id, i)).Build()
		case 1:
			msg = messaging.NewRequest(p, nil, fmt.Sprintf("%d-%d", p.id, i)).Build()
			requests++
		default:
			msg = messaging.NewGeneric(p, nil).Build()
		}

		if !p.bus.Post(msg) {
			return nil
		}
	}

	for ; requests > 0; requests-- {
		select {
		case <-p.replies:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

package bus

import (
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/mediator/messaging"
)

type subscription struct {
	subscriber messaging.Subscriber
	mode       Mode

	// retired is set by unregister. A retired subscription receives nothing
	// further and is physically removed on the dispatcher's next sweep.
	retired atomic.Bool
}

func (s *subscription) accepts(msg *messaging.Message) bool {
	if s.retired.Load() {
		return false
	}
	return s.mode == ModeAny || msg.IsTargetedAt(s.subscriber)
}

// subscriptionList is one category's subscriptions. Any goroutine may append
// or retire; only the dispatcher removes, through sweep.
type subscriptionList struct {
	name string

	mu   sync.RWMutex
	live []*subscription

	pendingMu sync.Mutex
	pending   []*subscription
}

func newSubscriptionList(name string) *subscriptionList {
	return &subscriptionList{name: name}
}

func (l *subscriptionList) add(s messaging.Subscriber, mode Mode) {
	l.mu.Lock()
	l.live = append(l.live, &subscription{subscriber: s, mode: mode})
	l.mu.Unlock()
}

// retire marks every live, not yet retired subscription of s and queues it
// for removal. Subscriptions added afterwards are untouched.
func (l *subscriptionList) retire(s messaging.Subscriber) int {
	var marked []*subscription

	l.mu.RLock()
	for _, sub := range l.live {
		if messaging.SameSubscriber(sub.subscriber, s) && sub.retired.CompareAndSwap(false, true) {
			marked = append(marked, sub)
		}
	}
	l.mu.RUnlock()

	if len(marked) == 0 {
		return 0
	}

	l.pendingMu.Lock()
	l.pending = append(l.pending, marked...)
	l.pendingMu.Unlock()

	return len(marked)
}

// snapshot returns the live subscriptions in insertion order. Callbacks run
// against the snapshot, so they may register and unregister freely.
func (l *subscriptionList) snapshot() []*subscription {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*subscription, len(l.live))
	copy(out, l.live)
	return out
}

// sweep swaps in an empty pending list and drops its subscriptions from the
// live list. Dispatcher only.
func (l *subscriptionList) sweep() int {
	l.pendingMu.Lock()
	pending := l.pending
	l.pending = nil
	l.pendingMu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	doomed := make(map[*subscription]struct{}, len(pending))
	for _, sub := range pending {
		doomed[sub] = struct{}{}
	}

	l.mu.Lock()
	kept := l.live[:0]
	for _, sub := range l.live {
		if _, drop := doomed[sub]; !drop {
			kept = append(kept, sub)
		}
	}
	clear(l.live[len(kept):])
	l.live = kept
	l.mu.Unlock()

	return len(pending)
}

func (l *subscriptionList) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.live)
}

// registry holds the four category lists. The "all" list receives every
// routed message; the others receive only their own category.
type registry struct {
	all          *subscriptionList
	notification *subscriptionList
	request      *subscriptionList
	data         *subscriptionList
}

func newRegistry() *registry {
	return &registry{
		all:          newSubscriptionList("all"),
		notification: newSubscriptionList(string(messaging.CategoryNotification)),
		request:      newSubscriptionList(string(messaging.CategoryRequest)),
		data:         newSubscriptionList(string(messaging.CategoryData)),
	}
}

// category returns the category-specific list for c, or nil when messages
// of c go only to the "all" list.
func (r *registry) category(c messaging.Category) *subscriptionList {
	switch c {
	case messaging.CategoryNotification:
		return r.notification
	case messaging.CategoryRequest:
		return r.request
	case messaging.CategoryData:
		return r.data
	}
	return nil
}

func (r *registry) lists() []*subscriptionList {
	return []*subscriptionList{r.all, r.notification, r.request, r.data}
}

func validateSubscription(s messaging.Subscriber, mode Mode) error {
	if messaging.IsNilSubscriber(s) {
		return ErrNilSubscriber
	}
	if !messaging.Comparable(s) {
		return ErrIncomparableSubscriber
	}
	if !mode.Valid() {
		return ErrInvalidMode
	}
	return nil
}

func (r *registry) sweep() int {
	removed := 0
	for _, l := range r.lists() {
		removed += l.sweep()
	}
	return removed
}

func (r *registry) empty() bool {
	for _, l := range r.lists() {
		if l.size() > 0 {
			return false
		}
	}
	return true
}

// distinct returns each subscriber with a live subscription once, in
// first-seen order across the lists.
func (r *registry) distinct() []messaging.Subscriber {
	seen := make(map[messaging.Subscriber]struct{})
	var out []messaging.Subscriber

	for _, l := range r.lists() {
		for _, sub := range l.snapshot() {
			if sub.retired.Load() {
				continue
			}
			if _, ok := seen[sub.subscriber]; ok {
				continue
			}
			seen[sub.subscriber] = struct{}{}
			out = append(out, sub.subscriber)
		}
	}
	return out
}

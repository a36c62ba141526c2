package messaging

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Category is the routing tag of a message.
type Category string

const (
	CategoryGeneric      Category = "generic"
	CategoryNotification Category = "notification"
	CategoryRequest      Category = "request"
	CategoryData         Category = "data"
	CategoryTerminate    Category = "terminate"
)

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneric, CategoryNotification, CategoryRequest, CategoryData, CategoryTerminate:
		return true
	}
	return false
}

var (
	ErrMissingSource   = errors.New("message source is required")
	ErrUnknownCategory = errors.New("unknown message category")
)

// Message is an immutable value routed by a bus. Build it with one of the
// New* builders and do not modify it after posting.
type Message struct {
	ID        string
	Source    Subscriber
	Target    Subscriber
	Category  Category
	Timestamp time.Time

	// Text is the notification text.
	Text string
	// Meta describes a request or a data delivery.
	Meta any
	// Data is the payload of a data delivery.
	Data any

	Headers map[string]string
}

// Validate checks the construction invariants of the message.
func (msg *Message) Validate() error {
	if IsNilSubscriber(msg.Source) {
		return ErrMissingSource
	}
	if !msg.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, msg.Category)
	}
	return nil
}

// IsBroadcast reports whether the message has no target. A typed-nil
// target counts as none.
func (msg *Message) IsBroadcast() bool {
	return IsNilSubscriber(msg.Target)
}

// IsTargetedAt reports whether a targeted subscriber s should receive the
// message: either it has no target or the target is s.
func (msg *Message) IsTargetedAt(s Subscriber) bool {
	return msg.IsBroadcast() || SameSubscriber(msg.Target, s)
}

func (msg *Message) IsTerminate() bool {
	return msg.Category == CategoryTerminate
}

// Clone returns a copy with its own Headers map. Payload values are shared.
func (msg *Message) Clone() *Message {
	clone := *msg
	clone.Headers = maps.Clone(msg.Headers)
	return &clone
}

func (msg *Message) String() string {
	target := "*"
	if !msg.IsBroadcast() {
		target = fmt.Sprintf("%T", msg.Target)
	}
	return fmt.Sprintf(
		"Message{ID: %s, Category: %s, Source: %T, Target: %s}",
		msg.ID,
		msg.Category,
		msg.Source,
		target,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

package messaging

import (
	"context"
	"reflect"
)

// Subscriber receives messages from a bus.
//
// Both methods are called synchronously on the bus's single dispatch
// goroutine, never concurrently with each other or with any other
// subscriber's callbacks. Implementations must not block indefinitely:
// a slow Deliver delays every later message and a Shutdown that never
// returns keeps the bus from stopping.
type Subscriber interface {
	// Deliver hands the subscriber a message it registered interest in.
	// The message is shared with other subscribers and must not be mutated.
	Deliver(ctx context.Context, msg *Message) error

	// Shutdown is called once when the bus begins terminating. A subscriber
	// typically unregisters itself here.
	Shutdown(ctx context.Context) error
}

// IsNilSubscriber reports whether s is nil or an interface holding a nil
// pointer, map, slice, func, or channel.
func IsNilSubscriber(s Subscriber) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Comparable reports whether s can be used as a subscriber identity. A
// comparable type is not enough: a struct with an interface field holding
// a slice, map or func still panics when compared or hashed, so the value
// itself is hashed once here.
func Comparable(s Subscriber) (ok bool) {
	if s == nil || !reflect.TypeOf(s).Comparable() {
		return false
	}

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[Subscriber]struct{}{s: {}}
	return true
}

// SameSubscriber reports whether a and b are the same subscriber. Values
// that cannot be compared are never the same.
func SameSubscriber(a, b Subscriber) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

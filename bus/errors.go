package bus

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is wrapped by every registration validation error.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	ErrNilSubscriber          = fmt.Errorf("%w: subscriber is nil", ErrInvalidArgument)
	ErrInvalidMode            = fmt.Errorf("%w: unknown subscription mode", ErrInvalidArgument)
	ErrIncomparableSubscriber = fmt.Errorf("%w: subscriber type is not comparable", ErrInvalidArgument)
)

var (
	// ErrSubscriberFailed wraps an error or panic raised by a subscriber callback.
	ErrSubscriberFailed = errors.New("subscriber callback failed")
	// ErrSubscriberPanic marks a callback failure that was a recovered panic.
	ErrSubscriberPanic = errors.New("subscriber panicked")
	// ErrStopped is the reason given for posts rejected after the dispatcher exited.
	ErrStopped = errors.New("bus stopped")
)

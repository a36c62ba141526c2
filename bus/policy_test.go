package bus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/mediator/bus"
	"github.com/tailored-agentic-units/mediator/bus/bustest"
	"github.com/tailored-agentic-units/mediator/config"
	"github.com/tailored-agentic-units/mediator/messaging"
	"github.com/tailored-agentic-units/mediator/observability"
)

var errBoom = errors.New("boom")

func failing(name string) *bustest.Recorder {
	r := bustest.NewRecorder(name)
	r.OnDeliver = func(context.Context, *messaging.Message) error {
		return errBoom
	}
	return r
}

func panicking(name string) *bustest.Recorder {
	r := bustest.NewRecorder(name)
	r.OnDeliver = func(context.Context, *messaging.Message) error {
		panic("subscriber exploded")
	}
	return r
}

func TestIsolate_ContinuesAfterFailures(t *testing.T) {
	capture := observability.NewCaptureObserver()
	b := newTestBus(t, nil, bus.WithObserver(capture))
	source := bustest.NewRecorder("source")
	bad := failing("bad")
	worse := panicking("worse")
	good := bustest.NewRecorder("good")

	require.NoError(t, b.RegisterAll(bad, bus.ModeAny))
	require.NoError(t, b.RegisterAll(worse, bus.ModeAny))
	require.NoError(t, b.RegisterAll(good, bus.ModeAny))

	b.Post(messaging.NewGeneric(source, nil).Build())
	b.Post(messaging.NewGeneric(source, nil).Build())

	require.True(t, good.WaitDeliveries(2, waitTimeout))
	assert.Equal(t, 2, bad.Deliveries())
	assert.Equal(t, 2, worse.Deliveries())

	assert.Equal(t, bus.StateRunning, b.State())
	assert.NoError(t, b.Err())
	assert.Equal(t, int64(4), b.Metrics().Failures)

	failures := capture.OfType(bus.EventSubscriberFailure)
	require.Len(t, failures, 4)

	var stacks int
	for _, e := range failures {
		assert.Equal(t, observability.LevelError, e.Level)
		assert.Equal(t, "isolate", e.Data["policy"])
		if _, ok := e.Data["stack"]; ok {
			stacks++
		}
	}
	assert.Equal(t, 2, stacks, "only recovered panics carry a stack")
}

func TestIsolate_ShutdownFailure(t *testing.T) {
	b := newTestBus(t, nil)
	broken := bustest.NewRecorder("broken")
	broken.OnShutdown = func(context.Context) error {
		b.UnregisterAll(broken)
		return errBoom
	}
	fine := selfUnregistering(b, "fine")

	require.NoError(t, b.RegisterAll(broken, bus.ModeAny))
	require.NoError(t, b.RegisterAll(fine, bus.ModeAny))

	b.Terminate(fine)

	require.NoError(t, waitStopped(t, b))
	assert.Equal(t, 1, fine.Shutdowns())
	assert.Equal(t, int64(1), b.Metrics().Failures)
}

func TestFailFast_StopsOnError(t *testing.T) {
	b := newTestBus(t, func(c *config.BusConfig) {
		c.FailurePolicy = config.FailureFailFast
	})
	source := bustest.NewRecorder("source")
	bad := failing("bad")
	later := bustest.NewRecorder("later")

	require.NoError(t, b.RegisterAll(bad, bus.ModeAny))
	require.NoError(t, b.RegisterAll(later, bus.ModeAny))

	b.Post(messaging.NewGeneric(source, nil).Build())

	err := waitStopped(t, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, bus.ErrSubscriberFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, bus.IsSubscriberFailure(b.Err()))

	assert.Equal(t, 1, bad.Deliveries())
	assert.Equal(t, 0, later.Deliveries())
	assert.Equal(t, 0, later.Shutdowns(), "a failed bus does not run shutdown")

	assert.False(t, b.Post(messaging.NewGeneric(source, nil).Build()))
}

func TestFailFast_SkipsCategoryPass(t *testing.T) {
	b := newTestBus(t, func(c *config.BusConfig) {
		c.FailurePolicy = config.FailureFailFast
	})
	source := bustest.NewRecorder("source")
	notes := bustest.NewRecorder("notes")

	require.NoError(t, b.RegisterAll(failing("bad"), bus.ModeAny))
	require.NoError(t, b.RegisterNotification(notes, bus.ModeAny))

	b.Post(messaging.NewNotification(source, nil, "x").Build())

	assert.ErrorIs(t, waitStopped(t, b), bus.ErrSubscriberFailed)
	assert.Equal(t, 0, notes.Deliveries())
}

func TestFailFast_Panic(t *testing.T) {
	b := newTestBus(t, func(c *config.BusConfig) {
		c.FailurePolicy = config.FailureFailFast
	})
	source := bustest.NewRecorder("source")

	require.NoError(t, b.RegisterData(panicking("worse"), bus.ModeAny))
	b.Post(messaging.NewData(source, nil, nil, 1).Build())
	b.Post(messaging.NewData(source, nil, nil, 2).Build())

	err := waitStopped(t, b)
	assert.ErrorIs(t, err, bus.ErrSubscriberFailed)
	assert.ErrorIs(t, err, bus.ErrSubscriberPanic)
	assert.Equal(t, int64(1), b.Metrics().Dispatched, "no message is processed after the failure")
}

func TestFailFast_ShutdownError(t *testing.T) {
	b := newTestBus(t, func(c *config.BusConfig) {
		c.FailurePolicy = config.FailureFailFast
	})
	broken := bustest.NewRecorder("broken")
	broken.OnShutdown = func(context.Context) error { return errBoom }

	require.NoError(t, b.RegisterRequest(broken, bus.ModeAny))
	b.Terminate(broken)

	err := waitStopped(t, b)
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, bus.ErrSubscriberFailed)
}

package bus_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/tailored-agentic-units/mediator/bus"
	"github.com/tailored-agentic-units/mediator/config"
	"github.com/tailored-agentic-units/mediator/messaging"
	"github.com/tailored-agentic-units/mediator/observability"
)

func TestModule_Lifecycle(t *testing.T) {
	cfg := &config.BusConfig{Name: "fx-bus", Observer: "noop"}
	reg := prometheus.NewRegistry()

	var b *bus.Bus
	app := fxtest.New(t,
		bus.Module(),
		fx.Supply(cfg),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Populate(&b),
	)

	app.RequireStart()
	require.NotNil(t, b)
	assert.Equal(t, "fx-bus", b.Name())
	assert.Equal(t, bus.StateRunning, b.State())

	r := selfUnregistering(b, "r")
	require.NoError(t, b.RegisterAll(r, bus.ModeAny))
	require.True(t, b.Post(messaging.NewGeneric(r, nil).Build()))
	require.True(t, r.WaitDeliveries(1, waitTimeout))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	app.RequireStop()

	assert.Equal(t, bus.StateStopped, b.State())
	assert.Equal(t, 1, r.Shutdowns())
	assert.NoError(t, b.Err())

	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families, "collector is unregistered on stop")
}

func TestModule_Defaults(t *testing.T) {
	capture := observability.NewCaptureObserver()

	var b *bus.Bus
	app := fxtest.New(t,
		bus.Module(),
		fx.Provide(func() observability.Observer { return capture }),
		fx.Populate(&b),
	)

	app.RequireStart()
	assert.Equal(t, "default", b.Name())
	app.RequireStop()

	assert.Equal(t, bus.StateStopped, b.State())
	assert.NotEmpty(t, capture.OfType(bus.EventBusStop))
}

package bus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tailored-agentic-units/mediator/config"
	"github.com/tailored-agentic-units/mediator/observability"
)

// Params are the optional dependencies of the fx module.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.BusConfig      `optional:"true"`
	Observer  observability.Observer `optional:"true"`
	Registry  prometheus.Registerer  `optional:"true"`
}

// Module provides a *Bus to an fx application. The bus starts when it is
// constructed; stopping the application posts a terminate message and waits
// for every subscriber to unregister, bounded by the stop context.
func Module() fx.Option {
	return fx.Module("bus",
		fx.Provide(NewFromParams),
	)
}

// NewFromParams builds a bus from fx-injected dependencies and binds its
// shutdown to the application lifecycle.
func NewFromParams(p Params) (*Bus, error) {
	cfg := config.DefaultBusConfig()
	if p.Config != nil {
		cfg.Merge(p.Config)
	}

	var opts []Option
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}

	ctx, cancel := context.WithCancel(context.Background())
	b, err := New(ctx, cfg, opts...)
	if err != nil {
		cancel()
		return nil, err
	}

	var collector *Collector
	if p.Registry != nil {
		collector = NewCollector(b)
		if err := p.Registry.Register(collector); err != nil {
			cancel()
			return nil, err
		}
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			defer cancel()
			if collector != nil {
				p.Registry.Unregister(collector)
			}
			return b.Shutdown(ctx)
		},
	})

	return b, nil
}

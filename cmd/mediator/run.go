package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/mediator/bus"
	"github.com/tailored-agentic-units/mediator/config"
)

type runOptions struct {
	messages        int
	producers       int
	failEvery       int
	metricsAddr     string
	shutdownTimeout time.Duration
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo bus with producers, a logger, a notifier and a responder",
		Long: `Run starts a bus and registers three subscribers:

- a logger on every message
- a notifier that only accepts notifications targeted at it
- a responder that answers each request with a data message

Each producer posts a rotating mix of notifications, requests and generic
messages, then waits for the answers to its requests. Afterwards the bus is
terminated and a summary is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := busConfig(v)
			if err != nil {
				return err
			}

			opts := runOptions{
				messages:        v.GetInt("messages"),
				producers:       v.GetInt("producers"),
				failEvery:       v.GetInt("fail-every"),
				metricsAddr:     v.GetString("metrics-addr"),
				shutdownTimeout: v.GetDuration("shutdown-timeout"),
			}
			if opts.producers < 1 {
				return fmt.Errorf("producers must be at least 1: %d", opts.producers)
			}

			cfg.Logger = newLogger(cmd.ErrOrStderr(), v.GetBool("verbose"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runDemo(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("messages", 30, "messages posted by each producer")
	cmd.Flags().Int("producers", 3, "number of concurrent producers")
	cmd.Flags().Int("fail-every", 0, "make the responder fail every nth request; 0 disables")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().Duration("shutdown-timeout", 5*time.Second, "how long to wait for subscribers to unregister")
	_ = v.BindPFlags(cmd.Flags())

	return cmd
}

func runDemo(ctx context.Context, cfg config.BusConfig, opts runOptions, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// producers waiting on replies give up once the bus stops
	cfg.OnStopped = cancel

	logger := cfg.Logger

	b, err := bus.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	if opts.metricsAddr != "" {
		srv := newMetricsServer(opts.metricsAddr, b)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", opts.metricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", opts.metricsAddr)
	}

	logSub := &logSubscriber{bus: b, logger: logger}
	notifier := &notifySubscriber{bus: b}
	responder := &responder{bus: b, failEvery: opts.failEvery}

	registrations := []error{
		b.RegisterAll(logSub, bus.ModeAny),
		b.RegisterNotification(notifier, bus.ModeTargeted),
		b.RegisterRequest(responder, bus.ModeAny),
	}
	if err := multierr.Combine(registrations...); err != nil {
		return fmt.Errorf("failed to register subscribers: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	producers := make([]*producer, opts.producers)
	for i := range producers {
		p := newProducer(i, b, opts.messages)
		if err := b.RegisterData(p, bus.ModeTargeted); err != nil {
			return fmt.Errorf("failed to register producer %d: %w", i, err)
		}
		producers[i] = p
		g.Go(func() error {
			return p.run(gctx, opts.messages, notifier)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancelShutdown()

	err = b.Shutdown(shutdownCtx)

	var replies int64
	for _, p := range producers {
		replies += p.received.Load()
	}
	printSummary(out, b, summary{
		logged:        logSub.count.Load(),
		notifications: notifier.count.Load(),
		requests:      responder.count.Load(),
		replies:       replies,
	})

	if err != nil {
		return fmt.Errorf("bus %s: %w", b.Name(), err)
	}
	return nil
}

func newMetricsServer(addr string, b *bus.Bus) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(bus.NewCollector(b))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type summary struct {
	logged        int64
	notifications int64
	requests      int64
	replies       int64
}

func printSummary(out io.Writer, b *bus.Bus, s summary) {
	m := b.Metrics()

	fmt.Fprintf(out, "bus %s %s\n", b.Name(), b.State())
	fmt.Fprintf(out, "  posted=%d rejected=%d dispatched=%d deliveries=%d failures=%d shutdowns=%d\n",
		m.Posted, m.Rejected, m.Dispatched, m.Deliveries, m.Failures, m.Shutdowns)
	fmt.Fprintf(out, "  logged=%d notifications=%d requests=%d replies=%d\n",
		s.logged, s.notifications, s.requests, s.replies)
}

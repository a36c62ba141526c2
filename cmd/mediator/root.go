package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/mediator/config"
	"github.com/tailored-agentic-units/mediator/observability"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MEDIATOR")
	// MEDIATOR_METRICS_ADDR for metrics-addr
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	root := &cobra.Command{
		Use:   "mediator",
		Short: "In-process publish/subscribe bus",
		Long: `mediator routes messages between subscribers through a single dispatcher.

Subscribers register for every message or for one category (notification,
request, data), either for broadcasts and messages targeted at them or for
targeted messages only. A terminate message asks every subscriber to shut
down; the bus stops once all of them have unregistered.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "bus config JSON file")
	root.PersistentFlags().String("name", "", "bus name (overrides config)")
	root.PersistentFlags().Duration("poll-interval", 0, "idle dispatcher poll interval (overrides config)")
	root.PersistentFlags().String("observer", "",
		fmt.Sprintf("observer name, one of %s (overrides config)", strings.Join(observability.Names(), ", ")))
	root.PersistentFlags().String("observer-level", "", "drop bus events below this level (overrides config)")
	root.PersistentFlags().Bool("fail-fast", false, "stop the bus on the first subscriber failure")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging to stderr")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newRunCmd(v))

	return root
}

// busConfig layers flags and MEDIATOR_* variables over the config file,
// which is itself layered over the defaults.
func busConfig(v *viper.Viper) (config.BusConfig, error) {
	cfg := config.DefaultBusConfig()

	if path := v.GetString("config"); path != "" {
		loaded, err := config.LoadBusConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	override := &config.BusConfig{
		Name:          v.GetString("name"),
		PollInterval:  v.GetDuration("poll-interval"),
		Observer:      v.GetString("observer"),
		ObserverLevel: v.GetString("observer-level"),
	}
	if v.GetBool("fail-fast") {
		override.FailurePolicy = config.FailureFailFast
	}
	cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid bus config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

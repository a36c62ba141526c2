package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tailored-agentic-units/mediator/observability"
)

// FailurePolicy decides what the dispatcher does when a subscriber callback
// returns an error or panics.
type FailurePolicy string

const (
	// FailureIsolate recovers the failure, reports it, and keeps delivering
	// to the remaining subscribers.
	FailureIsolate FailurePolicy = "isolate"
	// FailureFailFast stops the dispatcher on the first failure. No further
	// messages are processed and the failure is reported by Bus.Err.
	FailureFailFast FailurePolicy = "fail-fast"
)

func (p FailurePolicy) Valid() bool {
	return p == FailureIsolate || p == FailureFailFast
}

const (
	defaultBusName      = "default"
	defaultPollInterval = 5 * time.Millisecond
)

// BusConfig defines configuration for a bus instance.
type BusConfig struct {
	Name string `json:"name,omitempty"`

	// PollInterval bounds how long an idle dispatcher sleeps before checking
	// the queue again when no wake signal arrives.
	PollInterval time.Duration `json:"poll_interval,omitempty"`

	FailurePolicy FailurePolicy `json:"failure_policy,omitempty"`

	// Observer names a registered observability factory.
	Observer string `json:"observer,omitempty"`

	// ObserverLevel drops events below this level ("verbose", "info",
	// "warning", "error"). Empty passes every event.
	ObserverLevel string `json:"observer_level,omitempty"`

	// Logger backs the "slog" observer. Nil means slog.Default().
	Logger *slog.Logger `json:"-"`

	// OnStopped runs on the dispatcher goroutine right after the bus stops.
	OnStopped func() `json:"-"`
}

// DefaultBusConfig returns a BusConfig with sensible defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Name:          defaultBusName,
		PollInterval:  defaultPollInterval,
		FailurePolicy: FailureIsolate,
		Observer:      "slog",
		Logger:        slog.Default(),
	}
}

func (c *BusConfig) Merge(source *BusConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.PollInterval > 0 {
		c.PollInterval = source.PollInterval
	}

	if source.FailurePolicy != "" {
		c.FailurePolicy = source.FailurePolicy
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.ObserverLevel != "" {
		c.ObserverLevel = source.ObserverLevel
	}

	if source.Logger != nil {
		c.Logger = source.Logger
	}

	if source.OnStopped != nil {
		c.OnStopped = source.OnStopped
	}
}

// Validate reports the first invalid field.
func (c *BusConfig) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive: %v", c.PollInterval)
	}
	if !c.FailurePolicy.Valid() {
		return fmt.Errorf("unknown failure policy: %q", c.FailurePolicy)
	}
	if c.ObserverLevel != "" {
		if _, err := observability.ParseLevel(c.ObserverLevel); err != nil {
			return fmt.Errorf("observer level: %w", err)
		}
	}
	return nil
}

// LoadBusConfig reads a JSON config file and merges it over the defaults.
// Durations are written in Go syntax, e.g. {"poll_interval": "10ms"}.
func LoadBusConfig(filename string) (*BusConfig, error) {
	cfg := DefaultBusConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded fileConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	source, err := loaded.busConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(source)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return &cfg, nil
}

type fileConfig struct {
	Name          string        `json:"name"`
	PollInterval  string        `json:"poll_interval"`
	FailurePolicy FailurePolicy `json:"failure_policy"`
	Observer      string        `json:"observer"`
	ObserverLevel string        `json:"observer_level"`
}

func (f fileConfig) busConfig() (*BusConfig, error) {
	cfg := &BusConfig{
		Name:          f.Name,
		FailurePolicy: f.FailurePolicy,
		Observer:      f.Observer,
		ObserverLevel: f.ObserverLevel,
	}
	if f.PollInterval != "" {
		d, err := time.ParseDuration(f.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	return cfg, nil
}

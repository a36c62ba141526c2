package observability

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory builds an observer for one bus. The logger is the bus's
// configured logger and may be nil.
type Factory func(logger *slog.Logger) Observer

var (
	factories = map[string]Factory{
		"noop": func(*slog.Logger) Observer { return NoOpObserver{} },
		"slog": func(logger *slog.Logger) Observer { return NewSlogObserver(logger) },
	}
	mutex sync.RWMutex
)

// Register makes a factory selectable by name from configuration,
// replacing any factory already registered under that name.
func Register(name string, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	factories[name] = factory
}

// New builds the observer registered under name. An empty name selects
// "slog".
func New(name string, logger *slog.Logger) (Observer, error) {
	if name == "" {
		name = "slog"
	}

	mutex.RLock()
	factory, exists := factories[name]
	mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return factory(logger), nil
}

// Names lists the registered observer names in sorted order.
func Names() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package observability carries lifecycle and routing events out of a bus.
// Levels reuse OpenTelemetry SeverityNumber values so events can be handed
// to an OTel pipeline unchanged.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts the names returned by String plus the slog spellings
// "debug" and "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "debug":
		return LevelVerbose, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level: %q", s)
	}
}

// SlogLevel folds the OTel severity ranges onto slog's four levels.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event, e.g. "bus.start" or "subscriber.failure".
type EventType string

// Event is one observable occurrence on a bus. Data carries telemetry such
// as counts, categories and error text, never message payloads.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Bus       string
	Source    string
	Data      map[string]any
}

// Attrs flattens the event for structured logging. Data keys are sorted so
// that repeated events render identically.
func (e Event) Attrs() []slog.Attr {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+2)
	if e.Bus != "" {
		attrs = append(attrs, slog.String("bus", e.Bus))
	}
	if e.Source != "" {
		attrs = append(attrs, slog.String("source", e.Source))
	}
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Data[k]))
	}
	return attrs
}

// Observer receives events on the emitting goroutine. For routing events
// that is the bus dispatcher, so OnEvent must return quickly.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

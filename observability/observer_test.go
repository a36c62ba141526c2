package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/mediator/observability"
)

func TestLevel_ParseRoundTrip(t *testing.T) {
	for _, level := range []observability.Level{
		observability.LevelVerbose,
		observability.LevelInfo,
		observability.LevelWarning,
		observability.LevelError,
	} {
		t.Run(level.String(), func(t *testing.T) {
			got, err := observability.ParseLevel(level.String())
			require.NoError(t, err)
			assert.Equal(t, level, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    observability.Level
		wantErr bool
	}{
		{in: "debug", want: observability.LevelVerbose},
		{in: " WARN ", want: observability.LevelWarning},
		{in: "Error", want: observability.LevelError},
		{in: "fatal", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := observability.ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{level: observability.LevelVerbose, want: slog.LevelDebug},
		{level: observability.LevelInfo, want: slog.LevelInfo},
		{level: observability.LevelWarning, want: slog.LevelWarn},
		{level: observability.LevelError, want: slog.LevelError},
		{level: 21, want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.SlogLevel())
		})
	}
}

func TestEvent_Attrs(t *testing.T) {
	event := observability.Event{
		Type:   "message.dispatch",
		Bus:    "orders",
		Source: "bus.route",
		Data:   map[string]any{"deliveries": 3, "category": "data", "message_id": "m1"},
	}

	var keys []string
	for _, attr := range event.Attrs() {
		keys = append(keys, attr.Key)
	}
	assert.Equal(t, []string{"bus", "source", "category", "deliveries", "message_id"}, keys)

	assert.Empty(t, observability.Event{}.Attrs())
}

func TestLevelFilter(t *testing.T) {
	capture := observability.NewCaptureObserver()
	filter := observability.NewLevelFilter(observability.LevelWarning, capture)

	for _, level := range []observability.Level{
		observability.LevelVerbose,
		observability.LevelInfo,
		observability.LevelWarning,
		observability.LevelError,
	} {
		filter.OnEvent(context.Background(), observability.Event{Type: "bus.start", Level: level})
	}

	events := capture.Events()
	require.Len(t, events, 2)
	assert.Equal(t, observability.LevelWarning, events[0].Level)
	assert.Equal(t, observability.LevelError, events[1].Level)
}

func TestFanout_NilFilteringAndPanicIsolation(t *testing.T) {
	first := observability.NewCaptureObserver()
	second := observability.NewCaptureObserver()
	explosive := observability.ObserverFunc(func(context.Context, observability.Event) {
		panic("observer failed")
	})

	fanout := observability.NewFanout(nil, first, explosive, nil, second)

	assert.NotPanics(t, func() {
		fanout.OnEvent(context.Background(), observability.Event{Type: "message.post"})
	})

	require.Len(t, first.Events(), 1)
	require.Len(t, second.Events(), 1)
	assert.Equal(t, observability.EventType("message.post"), second.Events()[0].Type)
}

func TestCaptureObserver_Concurrent(t *testing.T) {
	capture := observability.NewCaptureObserver()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				capture.OnEvent(context.Background(), observability.Event{Type: "message.post"})
			}
		}()
	}
	wg.Wait()

	capture.OnEvent(context.Background(), observability.Event{Type: "bus.stop"})

	assert.Len(t, capture.Events(), 401)
	assert.Len(t, capture.OfType("message.post"), 400)
	assert.Len(t, capture.OfType("bus.stop"), 1)
}

func TestSlogObserver_HandlerLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{name: "verbose at debug handler", level: observability.LevelVerbose, minLevel: slog.LevelDebug, expectLog: true},
		{name: "verbose at info handler", level: observability.LevelVerbose, minLevel: slog.LevelInfo, expectLog: false},
		{name: "info at warn handler", level: observability.LevelInfo, minLevel: slog.LevelWarn, expectLog: false},
		{name: "error at error handler", level: observability.LevelError, minLevel: slog.LevelError, expectLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
				Type:   "subscriber.failure",
				Level:  tt.level,
				Source: "bus.invoke",
			})

			assert.Equal(t, tt.expectLog, buf.Len() > 0, "buf: %q", buf.String())
		})
	}
}

func TestSlogObserver_Output(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:   "message.dispatch",
		Level:  observability.LevelVerbose,
		Bus:    "orders",
		Source: "bus.route",
		Data:   map[string]any{"deliveries": 3},
	})

	output := buf.String()
	assert.Contains(t, output, "msg=message.dispatch")
	assert.Contains(t, output, "bus=orders source=bus.route deliveries=3")
}

func TestNewSlogObserver_NilLogger(t *testing.T) {
	obs := observability.NewSlogObserver(nil)
	require.NotNil(t, obs)
	obs.OnEvent(context.Background(), observability.Event{Type: "bus.start", Level: observability.LevelVerbose})
}

func TestRegistry(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	obs, err := observability.New("", logger)
	require.NoError(t, err)
	obs.OnEvent(context.Background(), observability.Event{Type: "bus.start", Level: observability.LevelInfo})
	assert.True(t, strings.Contains(buf.String(), "bus.start"), "empty name builds a slog observer on the given logger")

	obs, err = observability.New("noop", logger)
	require.NoError(t, err)
	assert.IsType(t, observability.NoOpObserver{}, obs)

	_, err = observability.New("missing", logger)
	assert.Error(t, err)

	capture := observability.NewCaptureObserver()
	observability.Register("capture-test", func(*slog.Logger) observability.Observer { return capture })

	got, err := observability.New("capture-test", nil)
	require.NoError(t, err)
	assert.Same(t, capture, got)
	assert.Contains(t, observability.Names(), "capture-test")
	assert.Subset(t, observability.Names(), []string{"noop", "slog"})
}

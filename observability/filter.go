package observability

import "context"

// LevelFilter drops events below a minimum level before they reach next.
type LevelFilter struct {
	min  Level
	next Observer
}

func NewLevelFilter(min Level, next Observer) *LevelFilter {
	return &LevelFilter{min: min, next: next}
}

func (f *LevelFilter) OnEvent(ctx context.Context, event Event) {
	if event.Level < f.min {
		return
	}
	f.next.OnEvent(ctx, event)
}

// Fanout forwards each event to several observers in order. An observer
// that panics misses that event; the others still receive it.
type Fanout struct {
	observers []Observer
}

// NewFanout ignores nil observers so optional ones can be passed directly.
func NewFanout(observers ...Observer) *Fanout {
	kept := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &Fanout{observers: kept}
}

func (f *Fanout) OnEvent(ctx context.Context, event Event) {
	for _, o := range f.observers {
		forward(ctx, o, event)
	}
}

func forward(ctx context.Context, o Observer, event Event) {
	defer func() { _ = recover() }()
	o.OnEvent(ctx, event)
}

// Package engine drives the cursor tracker and gesture classifier for one
// face stream, in frame order.
package engine

import (
	"time"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

// Config bundles the tunables of both components.
type Config struct {
	Gesture gesture.Config
	Cursor  cursor.Config
}

// DefaultConfig returns the default gesture and cursor tunables.
func DefaultConfig() Config {
	return Config{
		Gesture: gesture.DefaultConfig(),
		Cursor:  cursor.DefaultConfig(),
	}
}

// Input is one inference frame. Blendshapes is nil when the landmarker
// returned no blendshapes, Landmark is nil when it returned no face mesh.
type Input struct {
	Timestamp   time.Time
	Blendshapes gesture.Frame
	Landmark    *cursor.Point
}

// Stats counts what the engine has seen since it was created or reset.
type Stats struct {
	Frames            int64
	ClampedTimestamps int64
	Events            map[gesture.Kind]int64
}

// Engine owns all per-stream state. Every stream gets its own Engine; an
// Engine must only be driven from one goroutine.
type Engine struct {
	cfg        Config
	tracker    *cursor.Tracker
	classifier *gesture.Classifier

	lastTimestamp time.Time
	seen          bool
	stats         Stats
}

// New creates an engine with fresh classifier and tracker state.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		tracker:    cursor.NewTracker(cfg.Cursor),
		classifier: gesture.NewClassifier(cfg.Gesture),
		stats:      Stats{Events: make(map[gesture.Kind]int64)},
	}
}

// Process runs one frame and returns its events: discrete gestures first,
// then the cursor move when a landmark was present.
//
// Timestamps that go backwards are clamped to the previous frame's.
func (e *Engine) Process(in Input) []gesture.Event {
	now := e.monotonic(in.Timestamp)
	e.stats.Frames++

	var (
		stable   bool
		position cursor.Position
	)
	if in.Landmark != nil {
		position, stable = e.tracker.Update(*in.Landmark, now)
	} else {
		stable = e.tracker.HeadStable(now)
	}

	var events []gesture.Event
	if in.Blendshapes != nil {
		events = e.classifier.Update(in.Blendshapes, stable, now)
	}
	if in.Landmark != nil {
		events = append(events, gesture.CursorMove(position.X, position.Y))
	}

	for _, ev := range events {
		e.stats.Events[ev.Kind]++
	}
	return events
}

func (e *Engine) monotonic(ts time.Time) time.Time {
	if e.seen && ts.Before(e.lastTimestamp) {
		e.stats.ClampedTimestamps++
		return e.lastTimestamp
	}
	e.seen = true
	e.lastTimestamp = ts
	return ts
}

// Cursor returns the current smoothed cursor position.
func (e *Engine) Cursor() cursor.Position {
	return e.tracker.Position()
}

// HeadStable reports head stability as of the last processed frame.
func (e *Engine) HeadStable() bool {
	return e.tracker.HeadStable(e.lastTimestamp)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Stats returns a copy of the engine's counters.
func (e *Engine) Stats() Stats {
	events := make(map[gesture.Kind]int64, len(e.stats.Events))
	for k, v := range e.stats.Events {
		events[k] = v
	}
	return Stats{
		Frames:            e.stats.Frames,
		ClampedTimestamps: e.stats.ClampedTimestamps,
		Events:            events,
	}
}

// Reset returns the engine to its initial state, keeping its configuration.
func (e *Engine) Reset() {
	e.tracker.Reset()
	e.classifier.Reset()
	e.lastTimestamp = time.Time{}
	e.seen = false
	e.stats = Stats{Events: make(map[gesture.Kind]int64)}
}

// Package cursor maps the tracked nose-tip landmark to a smoothed on-canvas
// cursor and tracks how still the head is.
package cursor

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Defaults
const (
	DefaultMovementMultiplier = 1.5
	DefaultSmoothingFactor    = 0.4
	DefaultMovementThreshold  = 0.05
	DefaultStabilityDelay     = 200 * time.Millisecond

	// NoseTipIndex is the nose tip's index in the 478-point face mesh.
	NoseTipIndex = 1
)

// Point is a landmark in normalized image coordinates, 0-1 on both axes.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Position is a cursor location in percent of the canvas, 0-100 on both axes.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Center is where the cursor starts.
var Center = Position{X: 50, Y: 50}

// Config holds the smoothing and stability tunables.
type Config struct {
	// MovementMultiplier scales displacement from the image centre so that
	// small head movements cover the whole canvas.
	MovementMultiplier float64
	// SmoothingFactor is the weight kept from the previous position. Lower
	// is more responsive.
	SmoothingFactor float64
	// MovementThreshold is the largest per-axis jump, in normalized units,
	// still counted as holding the head still.
	MovementThreshold float64
	// StabilityDelay is how long the head must stay still.
	StabilityDelay time.Duration
}

// DefaultConfig returns the stock cursor tunables.
func DefaultConfig() Config {
	return Config{
		MovementMultiplier: DefaultMovementMultiplier,
		SmoothingFactor:    DefaultSmoothingFactor,
		MovementThreshold:  DefaultMovementThreshold,
		StabilityDelay:     DefaultStabilityDelay,
	}
}

// Tracker turns raw landmark samples into a smoothed cursor. Not safe for
// concurrent use.
type Tracker struct {
	cfg       Config
	position  Position
	stability *StabilityTracker
}

// NewTracker creates a tracker with the cursor centred. Smoothing is clamped
// to [0,1] and a negative multiplier to 0.
func NewTracker(cfg Config) *Tracker {
	cfg.SmoothingFactor = mgl64.Clamp(cfg.SmoothingFactor, 0, 1)
	if cfg.MovementMultiplier < 0 {
		cfg.MovementMultiplier = 0
	}
	return &Tracker{
		cfg:       cfg,
		position:  Center,
		stability: NewStabilityTracker(cfg.MovementThreshold, cfg.StabilityDelay),
	}
}

// Update consumes one raw sample and returns the smoothed cursor position
// and whether the head counts as stable at now.
func (t *Tracker) Update(raw Point, now time.Time) (Position, bool) {
	raw = t.sanitize(raw)

	target := t.Target(raw)
	s := t.cfg.SmoothingFactor
	t.position = Position{
		X: t.position.X*s + target.X*(1-s),
		Y: t.position.Y*s + target.Y*(1-s),
	}

	stable := t.stability.Observe(raw, now)
	return t.position, stable
}

// Target maps a raw sample to the unsmoothed cursor position: mirrored
// horizontally, magnified about the centre, scaled to percent and clamped.
func (t *Tracker) Target(raw Point) Position {
	offset := mgl64.Vec2{1 - raw.X - 0.5, raw.Y - 0.5}
	magnified := mgl64.Vec2{0.5, 0.5}.Add(offset.Mul(t.cfg.MovementMultiplier))
	return Position{
		X: mgl64.Clamp(magnified.X()*100, 0, 100),
		Y: mgl64.Clamp(magnified.Y()*100, 0, 100),
	}
}

// HeadStable reports stability at now without consuming a sample, for frames
// where the face mesh was not returned.
func (t *Tracker) HeadStable(now time.Time) bool {
	return t.stability.Stable(now)
}

// Position returns the smoothed cursor.
func (t *Tracker) Position() Position {
	return t.position
}

// Config returns the tunables after clamping.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Stability exposes the head stability tracker.
func (t *Tracker) Stability() *StabilityTracker {
	return t.stability
}

// Reset recentres the cursor and clears stability.
func (t *Tracker) Reset() {
	t.position = Center
	t.stability.Reset()
}

// sanitize clamps coordinates into [0,1]. A non-finite coordinate holds the
// previous raw sample's value for that axis.
func (t *Tracker) sanitize(p Point) Point {
	last := t.stability.LastSample()
	if !finite(p.X) {
		p.X = last.X
	}
	if !finite(p.Y) {
		p.Y = last.Y
	}
	return Point{
		X: mgl64.Clamp(p.X, 0, 1),
		Y: mgl64.Clamp(p.Y, 0, 1),
	}
}

// PointFromLandmarks picks the nose tip out of a full face mesh.
func PointFromLandmarks(landmarks []Point) (Point, bool) {
	if len(landmarks) <= NoseTipIndex {
		return Point{}, false
	}
	return landmarks[NoseTipIndex], true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

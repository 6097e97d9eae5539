package cursor

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// StabilityTracker decides whether the head has been still long enough to
// trust expressions that head motion can fake, such as a brow raise.
type StabilityTracker struct {
	threshold float64
	delay     time.Duration

	last        mgl64.Vec2
	stableSince time.Time
	armed       bool
}

// NewStabilityTracker starts with the previous sample at the image centre.
func NewStabilityTracker(threshold float64, delay time.Duration) *StabilityTracker {
	return &StabilityTracker{
		threshold: threshold,
		delay:     delay,
		last:      mgl64.Vec2{0.5, 0.5},
	}
}

// Observe records a raw landmark sample and reports whether the head is
// stable at now. Movement at or above the threshold disarms the timer; the
// next still sample re-arms it from its own timestamp.
func (s *StabilityTracker) Observe(p Point, now time.Time) bool {
	current := mgl64.Vec2{p.X, p.Y}
	moved := current.Sub(s.last).Len()
	s.last = current

	if moved >= s.threshold {
		s.armed = false
		s.stableSince = time.Time{}
		return false
	}
	if !s.armed {
		s.armed = true
		s.stableSince = now
	}
	return s.Stable(now)
}

// Stable evaluates the timer without recording a sample.
func (s *StabilityTracker) Stable(now time.Time) bool {
	return s.armed && now.Sub(s.stableSince) > s.delay
}

// StableSince returns when the current still period began, if one has.
func (s *StabilityTracker) StableSince() (time.Time, bool) {
	return s.stableSince, s.armed
}

// LastSample returns the most recent raw sample.
func (s *StabilityTracker) LastSample() Point {
	return Point{X: s.last.X(), Y: s.last.Y()}
}

// Reset recentres the last sample and disarms the timer.
func (s *StabilityTracker) Reset() {
	s.last = mgl64.Vec2{0.5, 0.5}
	s.stableSince = time.Time{}
	s.armed = false
}

package gesture

import "time"

// Debouncer remembers when each gesture last fired. A gesture that has never
// fired is always ready, whatever the timestamp of the first frame is.
type Debouncer struct {
	window time.Duration
	last   map[Gesture]time.Time
}

// NewDebouncer creates a debouncer where no gesture has fired yet.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		last:   make(map[Gesture]time.Time),
	}
}

// Ready reports whether g may fire at now: it never fired, or more than the
// window has elapsed since it did.
func (d *Debouncer) Ready(g Gesture, now time.Time) bool {
	last, ok := d.last[g]
	if !ok {
		return true
	}
	return now.Sub(last) > d.window
}

// Mark records that g fired at now.
func (d *Debouncer) Mark(g Gesture, now time.Time) {
	d.last[g] = now
}

// LastFired returns when g last fired and whether it ever has.
func (d *Debouncer) LastFired(g Gesture) (time.Time, bool) {
	t, ok := d.last[g]
	return t, ok
}

// Window returns the minimum gap between two firings of one gesture.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Reset forgets every firing.
func (d *Debouncer) Reset() {
	d.last = make(map[Gesture]time.Time)
}

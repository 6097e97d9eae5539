// Package gesture turns per-frame blendshape scores into debounced discrete
// drawing events.
package gesture

import "time"

// Default tuning, matched to the browser landmarker's score ranges.
const (
	DefaultSmileThreshold     = 0.8
	DefaultEyebrowThreshold   = 0.75
	DefaultMouthOpenThreshold = 0.3
	DefaultDebounceWindow     = 500 * time.Millisecond
)

// Config holds the classifier's thresholds and debounce window.
type Config struct {
	SmileThreshold     float64
	EyebrowThreshold   float64
	MouthOpenThreshold float64
	DebounceWindow     time.Duration
}

// DefaultConfig returns the stock thresholds and a 500ms debounce window.
func DefaultConfig() Config {
	return Config{
		SmileThreshold:     DefaultSmileThreshold,
		EyebrowThreshold:   DefaultEyebrowThreshold,
		MouthOpenThreshold: DefaultMouthOpenThreshold,
		DebounceWindow:     DefaultDebounceWindow,
	}
}

type detector struct {
	gesture         Gesture
	shapes          []Shape
	threshold       float64
	needsStableHead bool
	emit            func() Event
}

// Classifier is a set of independent threshold detectors sharing one
// Debouncer. It is not safe for concurrent use; each frame source owns one.
type Classifier struct {
	cfg       Config
	detectors []detector
	debounce  *Debouncer
}

// NewClassifier creates a classifier with a fresh debouncer.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg: cfg,
		// Evaluation order is also emission order.
		detectors: []detector{
			{
				gesture:   GestureSmile,
				shapes:    []Shape{MouthSmileLeft, MouthSmileRight},
				threshold: cfg.SmileThreshold,
				emit:      ToolCycle,
			},
			{
				gesture:         GestureEyebrowRaise,
				shapes:          []Shape{BrowInnerUp, BrowOuterUpLeft, BrowOuterUpRight},
				threshold:       cfg.EyebrowThreshold,
				needsStableHead: true,
				emit:            ColorCycle,
			},
			{
				gesture:   GestureMouthOpen,
				shapes:    []Shape{MouthOpen, JawOpen},
				threshold: cfg.MouthOpenThreshold,
				emit:      DrawToggle,
			},
		},
		debounce: NewDebouncer(cfg.DebounceWindow),
	}
}

// Update evaluates every detector against frame and returns the events that
// fired, in smile, eyebrow raise, mouth open order. Gestures are not
// mutually exclusive: several may fire on the same frame.
func (c *Classifier) Update(frame Frame, headStable bool, now time.Time) []Event {
	var events []Event
	for _, d := range c.detectors {
		if frame.Max(d.shapes...) <= d.threshold {
			continue
		}
		if d.needsStableHead && !headStable {
			continue
		}
		if !c.debounce.Ready(d.gesture, now) {
			continue
		}
		c.debounce.Mark(d.gesture, now)
		events = append(events, d.emit())
	}
	return events
}

// Scores reports the combined score each gesture saw in frame.
func (c *Classifier) Scores(frame Frame) map[Gesture]float64 {
	scores := make(map[Gesture]float64, len(c.detectors))
	for _, d := range c.detectors {
		scores[d.gesture] = frame.Max(d.shapes...)
	}
	return scores
}

// Config returns the thresholds in use.
func (c *Classifier) Config() Config {
	return c.cfg
}

// LastFired exposes the debounce state for a gesture.
func (c *Classifier) LastFired(g Gesture) (time.Time, bool) {
	return c.debounce.LastFired(g)
}

// Reset forgets every debounce timer.
func (c *Classifier) Reset() {
	c.debounce.Reset()
}

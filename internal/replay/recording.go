// Package replay runs recorded landmarker output through the engine.
//
// A recording is a YAML file listing frames in capture order. Each frame has
// a timestamp in milliseconds, the blendshape scores by ARKit name, and the
// nose tip landmark in normalized image coordinates. Either of the last two
// may be omitted to model a frame where the landmarker found no face data.
//
//	name: smile then draw
//	frames:
//	  - t_ms: 0
//	    blendshapes: {mouthSmileLeft: 0.92}
//	    landmark: {x: 0.5, y: 0.5}
//	  - t_ms: 33
//	    landmark: {x: 0.48, y: 0.5}
package replay

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

// Validation errors
var (
	ErrNoFrames     = errors.New("recording has no frames")
	ErrUnknownShape = errors.New("unknown blendshape")
	ErrBadValue     = errors.New("non-finite or out of range value")
)

// Recording is a captured sequence of landmarker frames.
type Recording struct {
	Name   string  `yaml:"name,omitempty"`
	Frames []Frame `yaml:"frames"`
}

// Frame is one recorded landmarker result.
type Frame struct {
	TimeMs      float64            `yaml:"t_ms"`
	Blendshapes map[string]float64 `yaml:"blendshapes,omitempty"`
	Landmark    *cursor.Point      `yaml:"landmark,omitempty"`
}

// Load reads and validates a recording file.
func Load(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording %s: %w", path, err)
	}

	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recording %s: %w", path, err)
	}
	return rec, nil
}

// Parse decodes and validates a recording from YAML.
func Parse(data []byte) (*Recording, error) {
	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks that the recording has frames, that every blendshape name
// is a known shape and that every number is finite.
func (r *Recording) Validate() error {
	if len(r.Frames) == 0 {
		return ErrNoFrames
	}

	for i, f := range r.Frames {
		if !finite(f.TimeMs) || math.Abs(f.TimeMs) > maxTimeMs {
			return fmt.Errorf("frame %d: t_ms: %w", i, ErrBadValue)
		}
		for _, name := range sortedKeys(f.Blendshapes) {
			if !gesture.IsKnownShape(name) {
				return fmt.Errorf("frame %d: %w %q", i, ErrUnknownShape, name)
			}
			if !finite(f.Blendshapes[name]) {
				return fmt.Errorf("frame %d: %s: %w", i, name, ErrBadValue)
			}
		}
		if f.Landmark != nil && (!finite(f.Landmark.X) || !finite(f.Landmark.Y)) {
			return fmt.Errorf("frame %d: landmark: %w", i, ErrBadValue)
		}
	}
	return nil
}

// Duration is the time between the first and last frame.
func (r *Recording) Duration() time.Duration {
	if len(r.Frames) == 0 {
		return 0
	}
	return msToDuration(r.Frames[len(r.Frames)-1].TimeMs - r.Frames[0].TimeMs)
}

// Save writes the recording as YAML.
func (r *Recording) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Input converts the frame to engine input with its time counted from epoch.
func (f Frame) Input(epoch time.Time) engine.Input {
	in := engine.Input{Timestamp: epoch.Add(msToDuration(f.TimeMs))}
	if f.Blendshapes != nil {
		in.Blendshapes = make(gesture.Frame, len(f.Blendshapes))
		for name, score := range f.Blendshapes {
			in.Blendshapes[gesture.Shape(name)] = score
		}
	}
	if f.Landmark != nil {
		p := *f.Landmark
		in.Landmark = &p
	}
	return in
}

// Categories returns the blendshapes in the landmarker's list form, sorted by name.
func (f Frame) Categories() []gesture.Category {
	if f.Blendshapes == nil {
		return nil
	}
	out := make([]gesture.Category, 0, len(f.Blendshapes))
	for _, name := range sortedKeys(f.Blendshapes) {
		out = append(out, gesture.Category{Name: name, Score: f.Blendshapes[name]})
	}
	return out
}

// maxTimeMs keeps frame times and the gaps between them within a time.Duration.
const maxTimeMs = float64(math.MaxInt64/int64(time.Millisecond)) / 2

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

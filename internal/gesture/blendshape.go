package gesture

import "math"

// Shape names a facial blendshape as reported by the face landmarker.
type Shape string

// Blendshape names reported by the face landmarker.
const (
	BrowDownLeft        Shape = "browDownLeft"
	BrowDownRight       Shape = "browDownRight"
	BrowInnerUp         Shape = "browInnerUp"
	BrowOuterUpLeft     Shape = "browOuterUpLeft"
	BrowOuterUpRight    Shape = "browOuterUpRight"
	CheekPuff           Shape = "cheekPuff"
	CheekSquintLeft     Shape = "cheekSquintLeft"
	CheekSquintRight    Shape = "cheekSquintRight"
	EyeBlinkLeft        Shape = "eyeBlinkLeft"
	EyeBlinkRight       Shape = "eyeBlinkRight"
	EyeLookDownLeft     Shape = "eyeLookDownLeft"
	EyeLookDownRight    Shape = "eyeLookDownRight"
	EyeLookInLeft       Shape = "eyeLookInLeft"
	EyeLookInRight      Shape = "eyeLookInRight"
	EyeLookOutLeft      Shape = "eyeLookOutLeft"
	EyeLookOutRight     Shape = "eyeLookOutRight"
	EyeLookUpLeft       Shape = "eyeLookUpLeft"
	EyeLookUpRight      Shape = "eyeLookUpRight"
	EyeSquintLeft       Shape = "eyeSquintLeft"
	EyeSquintRight      Shape = "eyeSquintRight"
	EyeWideLeft         Shape = "eyeWideLeft"
	EyeWideRight        Shape = "eyeWideRight"
	JawForward          Shape = "jawForward"
	JawLeft             Shape = "jawLeft"
	JawOpen             Shape = "jawOpen"
	JawRight            Shape = "jawRight"
	MouthClose          Shape = "mouthClose"
	MouthDimpleLeft     Shape = "mouthDimpleLeft"
	MouthDimpleRight    Shape = "mouthDimpleRight"
	MouthFrownLeft      Shape = "mouthFrownLeft"
	MouthFrownRight     Shape = "mouthFrownRight"
	MouthFunnel         Shape = "mouthFunnel"
	MouthLeft           Shape = "mouthLeft"
	MouthLowerDownLeft  Shape = "mouthLowerDownLeft"
	MouthLowerDownRight Shape = "mouthLowerDownRight"
	MouthPressLeft      Shape = "mouthPressLeft"
	MouthPressRight     Shape = "mouthPressRight"
	MouthPucker         Shape = "mouthPucker"
	MouthRight          Shape = "mouthRight"
	MouthRollLower      Shape = "mouthRollLower"
	MouthRollUpper      Shape = "mouthRollUpper"
	MouthShrugLower     Shape = "mouthShrugLower"
	MouthShrugUpper     Shape = "mouthShrugUpper"
	MouthSmileLeft      Shape = "mouthSmileLeft"
	MouthSmileRight     Shape = "mouthSmileRight"
	MouthStretchLeft    Shape = "mouthStretchLeft"
	MouthStretchRight   Shape = "mouthStretchRight"
	MouthUpperUpLeft    Shape = "mouthUpperUpLeft"
	MouthUpperUpRight   Shape = "mouthUpperUpRight"
	NoseSneerLeft       Shape = "noseSneerLeft"
	NoseSneerRight      Shape = "noseSneerRight"
	TongueOut           Shape = "tongueOut"

	// MouthOpen is not part of the ARKit set but older landmarker builds
	// still report it, so mouth detection reads it alongside JawOpen.
	MouthOpen Shape = "mouthOpen"

	// Neutral is the landmarker's catch-all category.
	Neutral Shape = "_neutral"
)

var knownShapes = map[Shape]struct{}{
	BrowDownLeft: {}, BrowDownRight: {}, BrowInnerUp: {}, BrowOuterUpLeft: {}, BrowOuterUpRight: {},
	CheekPuff: {}, CheekSquintLeft: {}, CheekSquintRight: {},
	EyeBlinkLeft: {}, EyeBlinkRight: {}, EyeLookDownLeft: {}, EyeLookDownRight: {},
	EyeLookInLeft: {}, EyeLookInRight: {}, EyeLookOutLeft: {}, EyeLookOutRight: {},
	EyeLookUpLeft: {}, EyeLookUpRight: {}, EyeSquintLeft: {}, EyeSquintRight: {},
	EyeWideLeft: {}, EyeWideRight: {},
	JawForward: {}, JawLeft: {}, JawOpen: {}, JawRight: {},
	MouthClose: {}, MouthDimpleLeft: {}, MouthDimpleRight: {}, MouthFrownLeft: {}, MouthFrownRight: {},
	MouthFunnel: {}, MouthLeft: {}, MouthLowerDownLeft: {}, MouthLowerDownRight: {},
	MouthPressLeft: {}, MouthPressRight: {}, MouthPucker: {}, MouthRight: {},
	MouthRollLower: {}, MouthRollUpper: {}, MouthShrugLower: {}, MouthShrugUpper: {},
	MouthSmileLeft: {}, MouthSmileRight: {}, MouthStretchLeft: {}, MouthStretchRight: {},
	MouthUpperUpLeft: {}, MouthUpperUpRight: {}, NoseSneerLeft: {}, NoseSneerRight: {},
	TongueOut: {}, MouthOpen: {}, Neutral: {},
}

// IsKnownShape reports whether name is a blendshape the landmarker can emit.
func IsKnownShape(name string) bool {
	_, ok := knownShapes[Shape(name)]
	return ok
}

// Frame holds one inference frame's blendshape scores keyed by shape name.
// A Frame is only read during a single Update call.
type Frame map[Shape]float64

// Category mirrors the landmarker's per-shape output record.
type Category struct {
	Name  string  `json:"categoryName" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// FrameFromCategories builds a Frame from the landmarker's category list.
// When a name repeats, the last score wins.
func FrameFromCategories(categories []Category) Frame {
	frame := make(Frame, len(categories))
	for _, c := range categories {
		frame[Shape(c.Name)] = c.Score
	}
	return frame
}

// Score returns the clamped score for shape. Absent and NaN scores read as 0.
func (f Frame) Score(shape Shape) float64 {
	v, ok := f[shape]
	if !ok {
		return 0
	}
	return clampScore(v)
}

// Max returns the highest score among shapes.
func (f Frame) Max(shapes ...Shape) float64 {
	var best float64
	for _, s := range shapes {
		if v := f.Score(s); v > best {
			best = v
		}
	}
	return best
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Package detector provides hand detection interfaces and types for the
// gesture control pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
// X and Y are normalized image coordinates in [0,1] with Y increasing
// downward; Z is the MediaPipe relative depth estimate.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance returns the Euclidean distance between two points in the
// image plane. Depth is ignored: gesture geometry is judged in 2D.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PalmScale returns the wrist-to-index-MCP distance, used as a
// size-invariant reference length for per-hand thresholds.
func (h *HandLandmarks) PalmScale() float64 {
	return Distance(h.Points[Wrist], h.Points[IndexMCP])
}

// Scaled returns a copy of the landmarks with X and Y converted from
// normalized coordinates to pixel coordinates for the given frame size.
func (h *HandLandmarks) Scaled(width, height float64) *HandLandmarks {
	scaled := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < NumLandmarks; i++ {
		scaled.Points[i] = Point3D{
			X: h.Points[i].X * width,
			Y: h.Points[i].Y * height,
			Z: h.Points[i].Z,
		}
	}
	return scaled
}

package detector

import "math"

// Frame dimensions assumed by the pose fixtures. They match the default
// capture size so pixel-tuned thresholds behave as they do live.
const (
	FixtureFrameWidth  = 1280.0
	FixtureFrameHeight = 720.0
)

// Pose fixtures build geometrically valid hands for the gestures the
// classifier recognizes. All geometry is laid out in pixel space and
// normalized at the end, so distances quoted in comments are pixels.

const (
	poseWristX = 640.0
	poseWristY = 520.0
)

type poseHand struct {
	h HandLandmarks
}

func newPose(handedness string) *poseHand {
	p := &poseHand{}
	p.h.Handedness = handedness
	p.h.Score = 0.97
	p.set(Wrist, poseWristX, poseWristY)
	return p
}

func (p *poseHand) set(i int, xPx, yPx float64) {
	p.h.Points[i] = Point3D{X: xPx / FixtureFrameWidth, Y: yPx / FixtureFrameHeight}
}

func (p *poseHand) build() HandLandmarks { return p.h }

// dirFor converts a pointing angle (0 = up, positive = screen-left) to
// a unit direction in image coordinates (y grows downward).
func dirFor(angleDeg float64) (dx, dy float64) {
	rad := angleDeg * math.Pi / 180
	return -math.Sin(rad), -math.Cos(rad)
}

// extendFromWrist lays a four-joint finger chain on the ray from the
// wrist at the given angle, at the given radii. A colinear chain has
// zero curvature and strictly increasing wrist distance.
func (p *poseHand) extendFromWrist(mcp, pip, dip, tip int, angleDeg float64, radii [4]float64) {
	dx, dy := dirFor(angleDeg)
	joints := [4]int{mcp, pip, dip, tip}
	for i, j := range joints {
		p.set(j, poseWristX+dx*radii[i], poseWristY+dy*radii[i])
	}
}

var extendedRadii = [4]float64{90, 135, 180, 230}

// curlFinger folds a finger back on itself: the tip ends up closer to
// the wrist than the PIP, which fails both extension tests.
func (p *poseHand) curlFinger(mcp, pip, dip, tip int, mcpOffsetX float64) {
	bx := poseWristX + mcpOffsetX
	by := poseWristY - 85
	p.set(mcp, bx, by)
	p.set(pip, bx, by-30)
	p.set(dip, bx-5, by-5)
	p.set(tip, bx-10, by+20)
}

// restingThumb places the thumb loosely beside the palm. The last joint
// bends downward so the chain never reads as a thumbs-up.
func (p *poseHand) restingThumb() {
	p.set(ThumbCMC, poseWristX+40, poseWristY-20)
	p.set(ThumbMCP, poseWristX+60, poseWristY-40)
	p.set(ThumbIP, poseWristX+70, poseWristY-55)
	p.set(ThumbTip, poseWristX+72, poseWristY-45)
}

var fingerJoints = [4][4]int{
	{IndexMCP, IndexPIP, IndexDIP, IndexTip},
	{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
	{RingMCP, RingPIP, RingDIP, RingTip},
	{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
}

var curlOffsets = [4]float64{25, 0, -25, -50}

// FingerSetHand returns a hand with the given fingers extended (index 0
// through pinky 3) and the rest curled. The index finger points at
// angleDeg; other extended fingers fan off it so each chain stays
// straight on its own ray.
func FingerSetHand(handedness string, angleDeg float64, extended [4]bool) HandLandmarks {
	p := newPose(handedness)
	p.restingThumb()
	for f := 0; f < 4; f++ {
		j := fingerJoints[f]
		if extended[f] {
			p.extendFromWrist(j[0], j[1], j[2], j[3], angleDeg+float64(f)*10, extendedRadii)
		} else {
			p.curlFinger(j[0], j[1], j[2], j[3], curlOffsets[f])
		}
	}
	return p.build()
}

// PointerHand returns a hand with only the index finger extended,
// pointing at angleDeg (0 = straight up, +90 = screen-left).
func PointerHand(handedness string, angleDeg float64) HandLandmarks {
	return FingerSetHand(handedness, angleDeg, [4]bool{true, false, false, false})
}

// RetractedPointerHand returns a hand whose index finger still passes
// the extension test but is pulled in too far to satisfy the pointer
// ratio, the pose that locks an active knob.
func RetractedPointerHand(handedness string) HandLandmarks {
	p := newPose(handedness)
	p.restingThumb()
	j := fingerJoints[0]
	p.extendFromWrist(j[0], j[1], j[2], j[3], 0, [4]float64{90, 93, 96, 99})
	for f := 1; f < 4; f++ {
		j := fingerJoints[f]
		p.curlFinger(j[0], j[1], j[2], j[3], curlOffsets[f])
	}
	return p.build()
}

// RockstarHand returns a hand with only index and pinky extended.
func RockstarHand(handedness string) HandLandmarks {
	return FingerSetHand(handedness, 0, [4]bool{true, false, false, true})
}

// FistHand returns a hand with every finger curled; it matches no
// gesture.
func FistHand(handedness string) HandLandmarks {
	return FingerSetHand(handedness, 0, [4]bool{false, false, false, false})
}

// PinchHand returns a volume-pinch pose: thumb and index tips touch at
// the given pixel Y while middle, ring and pinky stay extended.
func PinchHand(handedness string, pinchY float64) HandLandmarks {
	p := newPose(handedness)
	cx := poseWristX + 40

	p.set(ThumbCMC, poseWristX+40, poseWristY-30)
	p.set(ThumbMCP, poseWristX+55, poseWristY-60)
	p.set(ThumbIP, cx-14, pinchY+25)
	p.set(ThumbTip, cx-8, pinchY)

	p.set(IndexMCP, poseWristX+25, poseWristY-85)
	p.set(IndexPIP, cx+22, pinchY+45)
	p.set(IndexDIP, cx+14, pinchY+22)
	p.set(IndexTip, cx+8, pinchY)

	for f := 1; f < 4; f++ {
		j := fingerJoints[f]
		p.extendFromWrist(j[0], j[1], j[2], j[3], float64(f)*12, extendedRadii)
	}
	return p.build()
}

// ThumbsUpHand returns a play-toggle pose: thumb joints climb strictly
// upward, the whole thumb sits on the hand's outer side, and no other
// finger is extended.
func ThumbsUpHand(handedness string) HandLandmarks {
	p := newPose(handedness)

	// Raw handedness "Left" drives deck 1, whose thumb points toward
	// the left edge of the frame.
	side := 1.0
	if handedness == "Left" {
		side = -1.0
	}

	p.set(ThumbCMC, poseWristX+side*70, poseWristY-25)
	p.set(ThumbMCP, poseWristX+side*95, poseWristY-60)
	p.set(ThumbIP, poseWristX+side*105, poseWristY-95)
	p.set(ThumbTip, poseWristX+side*110, poseWristY-130)

	for f := 0; f < 4; f++ {
		j := fingerJoints[f]
		p.curlFinger(j[0], j[1], j[2], j[3], -side*float64(10+f*20))
	}
	return p.build()
}

// Package gesture classifies hand landmark observations into the
// control vocabulary of the deck state machines: knob selection poses,
// the volume pinch, and the play/effect toggles.
package gesture

import (
	"math"

	"github.com/vasukaker/gestdj/internal/detector"
)

// Category identifies the control gesture a hand is making.
type Category int

const (
	None Category = iota
	FilterSelect
	LowEQSelect
	MidEQSelect
	HighEQSelect
	VolumePinch
	PlayToggle
	EffectToggle
)

var categoryNames = map[Category]string{
	None:         "none",
	FilterSelect: "filter",
	LowEQSelect:  "low_eq",
	MidEQSelect:  "mid_eq",
	HighEQSelect: "high_eq",
	VolumePinch:  "volume_pinch",
	PlayToggle:   "play_toggle",
	EffectToggle: "effect_toggle",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// IsKnob reports whether the category selects a rotary control.
func (c Category) IsKnob() bool {
	return c >= FilterSelect && c <= HighEQSelect
}

// IsToggle reports whether the category is an edge-triggered action.
func (c Category) IsToggle() bool {
	return c == PlayToggle || c == EffectToggle
}

// Config holds the classification thresholds. All were tuned against
// live camera footage; change them together with the capture size.
type Config struct {
	// CurlThreshold is the maximum cumulative joint bend, in degrees,
	// for a finger to count as extended.
	CurlThreshold float64

	// ExtendMargin is the radial monotonicity margin as a fraction of
	// the palm scale (wrist to index MCP distance).
	ExtendMargin float64

	// PointerRatio is the minimum tip-to-wrist over MCP-to-wrist
	// distance ratio for the index finger to count as pointing.
	PointerRatio float64

	// PinchThreshold is the maximum thumb-to-index tip distance, in
	// pixels, for a volume pinch.
	PinchThreshold float64

	// MaxAngle clamps the reported pointer rotation, in degrees.
	MaxAngle float64

	// FrameWidth and FrameHeight convert normalized landmarks to the
	// pixel space the pixel-tuned thresholds assume.
	FrameWidth  float64
	FrameHeight float64
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		CurlThreshold:  35,
		ExtendMargin:   0.03,
		PointerRatio:   1.15,
		PinchThreshold: 40,
		MaxAngle:       135,
		FrameWidth:     1280,
		FrameHeight:    720,
	}
}

// Result is the classification of a single hand observation.
type Result struct {
	Category Category

	// Angle is the pointer rotation in degrees, clamped to
	// [-MaxAngle, MaxAngle]. Zero is straight up, positive is toward
	// the left edge of the frame. Only meaningful for knob categories.
	Angle float64

	// Pointer reports whether the index finger satisfies the pointing
	// ratio. A knob category with Pointer false locks the knob.
	Pointer bool

	// PinchY is the thumb-index midpoint in pixels, measured from the
	// top of the frame. Only meaningful for VolumePinch.
	PinchY float64
}

// Classifier turns hand landmarks into gesture results. It is
// stateless: the same observation always yields the same result.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

var fingerChains = [4][4]int{
	{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip},
	{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip},
	{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip},
}

// Finger indices into the extension table.
const (
	fingerIndex = iota
	fingerMiddle
	fingerRing
	fingerPinky
)

// Classify maps one hand observation to a gesture result. Precedence:
// thumbs-up, then volume pinch, then the extended-finger sets. The
// pinch check runs before set matching because a pinching index finger
// reads as neither extended nor reliably curled.
func (c *Classifier) Classify(hand detector.HandLandmarks) Result {
	px := hand.Scaled(c.cfg.FrameWidth, c.cfg.FrameHeight)
	margin := c.cfg.ExtendMargin * px.PalmScale()

	var ext [4]bool
	for f, chain := range fingerChains {
		ext[f] = c.extended(px, chain, margin)
	}

	if c.thumbsUp(px, ext) {
		return Result{Category: PlayToggle}
	}

	if ext[fingerMiddle] && ext[fingerRing] && ext[fingerPinky] {
		thumbTip := px.Points[detector.ThumbTip]
		indexTip := px.Points[detector.IndexTip]
		if detector.Distance(thumbTip, indexTip) < c.cfg.PinchThreshold {
			return Result{
				Category: VolumePinch,
				PinchY:   (thumbTip.Y + indexTip.Y) / 2,
			}
		}
	}

	cat := categoryFor(ext)
	res := Result{Category: cat}
	if cat.IsKnob() {
		res.Angle = c.pointerAngle(px)
		res.Pointer = c.pointing(px)
	}
	return res
}

// categoryFor matches the extended-finger set exactly. Near-miss sets
// map to None rather than the closest knob.
func categoryFor(ext [4]bool) Category {
	switch ext {
	case [4]bool{true, false, false, false}:
		return FilterSelect
	case [4]bool{true, true, false, false}:
		return LowEQSelect
	case [4]bool{true, true, true, false}:
		return MidEQSelect
	case [4]bool{true, true, true, true}:
		return HighEQSelect
	case [4]bool{true, false, false, true}:
		return EffectToggle
	}
	return None
}

// extended reports whether a finger chain is straight and reaching away
// from the wrist: cumulative joint bend below the curl threshold, and
// each joint strictly farther from the wrist than the last.
func (c *Classifier) extended(h *detector.HandLandmarks, chain [4]int, margin float64) bool {
	p := h.Points
	bend := bendAngle(p[chain[0]], p[chain[1]], p[chain[2]]) +
		bendAngle(p[chain[1]], p[chain[2]], p[chain[3]])
	if bend > c.cfg.CurlThreshold {
		return false
	}

	wrist := p[detector.Wrist]
	rMCP := detector.Distance(wrist, p[chain[0]])
	rPIP := detector.Distance(wrist, p[chain[1]])
	rDIP := detector.Distance(wrist, p[chain[2]])
	rTip := detector.Distance(wrist, p[chain[3]])
	return rMCP+margin < rPIP && rPIP < rDIP && rDIP < rTip-margin/2
}

// bendAngle returns the change of direction at joint b, in degrees.
func bendAngle(a, b, c detector.Point3D) float64 {
	ux, uy := b.X-a.X, b.Y-a.Y
	vx, vy := c.X-b.X, c.Y-b.Y
	un := math.Hypot(ux, uy)
	vn := math.Hypot(vx, vy)
	if un == 0 || vn == 0 {
		return 180
	}
	cos := (ux*vx + uy*vy) / (un * vn)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// pointerAngle measures the wrist-to-index-tip direction. Zero is
// straight up; positive angles lean toward the left edge of the frame.
// Values are clamped rather than wrapped so a hand tilted past the
// range pins the knob instead of jumping across it.
func (c *Classifier) pointerAngle(h *detector.HandLandmarks) float64 {
	wrist := h.Points[detector.Wrist]
	tip := h.Points[detector.IndexTip]
	dx := tip.X - wrist.X
	dyUp := wrist.Y - tip.Y
	angle := math.Atan2(-dx, dyUp) * 180 / math.Pi
	return math.Max(-c.cfg.MaxAngle, math.Min(c.cfg.MaxAngle, angle))
}

func (c *Classifier) pointing(h *detector.HandLandmarks) bool {
	wrist := h.Points[detector.Wrist]
	tipDist := detector.Distance(wrist, h.Points[detector.IndexTip])
	mcpDist := detector.Distance(wrist, h.Points[detector.IndexMCP])
	return tipDist > c.cfg.PointerRatio*mcpDist
}

// thumbsUp detects the play-toggle pose: every thumb joint strictly
// higher than the previous one starting at the wrist, the whole thumb
// on the hand's outer side, and no other finger extended.
func (c *Classifier) thumbsUp(h *detector.HandLandmarks, ext [4]bool) bool {
	for _, e := range ext {
		if e {
			return false
		}
	}

	p := h.Points
	for i := detector.Wrist; i < detector.ThumbTip; i++ {
		if p[i+1].Y >= p[i].Y {
			return false
		}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	for i := detector.IndexMCP; i <= detector.PinkyTip; i++ {
		minX = math.Min(minX, p[i].X)
		maxX = math.Max(maxX, p[i].X)
	}
	for i := detector.ThumbCMC; i <= detector.ThumbTip; i++ {
		if h.Handedness == "Left" {
			if p[i].X >= minX {
				return false
			}
		} else {
			if p[i].X <= maxX {
				return false
			}
		}
	}
	return true
}

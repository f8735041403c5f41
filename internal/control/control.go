// Package control implements the per-deck control surface: the
// continuous controls with their value domains and MIDI quantization,
// and the state machine that drives them from gesture classifications.
package control

import "math"

// Control identifies one continuous control on a deck.
type Control int

const (
	Filter Control = iota
	LowEQ
	MidEQ
	HighEQ
	Volume
	NumControls
)

var controlNames = [NumControls]string{"filter", "low_eq", "mid_eq", "high_eq", "volume"}

func (c Control) String() string {
	if c < 0 || c >= NumControls {
		return "unknown"
	}
	return controlNames[c]
}

// Range describes a control's value domain and resting value.
type Range struct {
	Min     float64
	Default float64
	Max     float64
}

var ranges = [NumControls]Range{
	Filter: {Min: 0, Default: 0.5, Max: 1},
	LowEQ:  {Min: 0, Default: 1, Max: 4},
	MidEQ:  {Min: 0, Default: 1, Max: 4},
	HighEQ: {Min: 0, Default: 1, Max: 4},
	Volume: {Min: 0, Default: 1, Max: 1},
}

// Range returns the control's value domain.
func (c Control) Range() Range { return ranges[c] }

func (c Control) isEQ() bool { return c == LowEQ || c == MidEQ || c == HighEQ }

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ValueFromAngle maps a pointer angle in degrees to a control value.
// The angle spans [-90, +90] across the control's travel via the
// normalized position n = 0.5 + angle/180: filter is linear in n, while
// the EQ controls use f(n) = (2n)^2, which is monotonic over the travel
// and anchors unity gain at 0 degrees.
func (c Control) ValueFromAngle(angle float64) float64 {
	n := clamp01(0.5 + angle/180)
	if c.isEQ() {
		return (2 * n) * (2 * n)
	}
	return n
}

// AngleForValue inverts ValueFromAngle. It is used to preserve a knob's
// committed value when the knob is re-engaged at a different hand angle.
func (c Control) AngleForValue(v float64) float64 {
	r := ranges[c]
	v = math.Max(r.Min, math.Min(r.Max, v))
	n := v
	if c.isEQ() {
		n = math.Sqrt(v) / 2
	}
	return (n - 0.5) * 180
}

// ToMIDI quantizes a control value to the 0..127 CC scale. EQ controls
// pin their unity default to 64 so host and gestures agree on "flat":
// below-default values land in 0..63, above-default in 65..127. Linear
// controls span the scale proportionally.
func (c Control) ToMIDI(v float64) uint8 {
	r := ranges[c]
	v = math.Max(r.Min, math.Min(r.Max, v))
	if c.isEQ() {
		switch {
		case v < r.Default:
			m := math.Floor((v - r.Min) / (r.Default - r.Min) * 64)
			return uint8(math.Min(m, 63))
		case v > r.Default:
			return uint8(64 + math.Round((v-r.Default)/(r.Max-r.Default)*63))
		default:
			return 64
		}
	}
	return uint8(math.Round((v - r.Min) / (r.Max - r.Min) * 127))
}

// FromMIDI maps a CC value back into the control's domain, inverting
// ToMIDI. It is used when adopting host feedback.
func (c Control) FromMIDI(m uint8) float64 {
	r := ranges[c]
	if c.isEQ() {
		switch {
		case m < 64:
			return r.Min + float64(m)/64*(r.Default-r.Min)
		case m > 64:
			return r.Default + float64(m-64)/63*(r.Max-r.Default)
		default:
			return r.Default
		}
	}
	return r.Min + float64(m)/127*(r.Max-r.Min)
}

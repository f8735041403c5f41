package control

import (
	"sync"
	"time"

	"github.com/vasukaker/gestdj/internal/gesture"
)

// State is the deck's engagement state.
type State int

const (
	Idle State = iota
	ControlActive
	Locked
	VolumeActive
)

var stateNames = [...]string{"idle", "control_active", "locked", "volume_active"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Toggle identifies an edge-triggered deck action.
type Toggle int

const (
	TogglePlay Toggle = iota
	ToggleEffect
	numToggles
)

func (t Toggle) String() string {
	if t == TogglePlay {
		return "play"
	}
	return "effect"
}

// Config holds the state machine tunables.
type Config struct {
	// DebounceFrames is how many consecutive consistent classifications
	// a knob switch needs before committing.
	DebounceFrames int

	// HandLostTimeout drops the deck to Idle after this long without a
	// usable gesture. Values freeze, they are never reset.
	HandLostTimeout time.Duration

	// ToggleCooldown is the minimum release time before a toggle can
	// fire again.
	ToggleCooldown time.Duration

	// Smoothing is the fraction of the remaining distance the smoothed
	// value covers per scheduler tick. 0.6 at 30 Hz settles a step in
	// under 100ms.
	Smoothing float64

	// PinchSensitivity converts pinch midpoint travel in pixels to
	// volume units. Upward movement increases volume.
	PinchSensitivity float64

	// Deadband is the minimum MIDI delta worth sending.
	Deadband int

	// TakeoverEpsilon is the MIDI distance at which a gesture value
	// reacquires a host-set control.
	TakeoverEpsilon int
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		DebounceFrames:   2,
		HandLostTimeout:  500 * time.Millisecond,
		ToggleCooldown:   300 * time.Millisecond,
		Smoothing:        0.6,
		PinchSensitivity: 0.0035,
		Deadband:         2,
		TakeoverEpsilon:  4,
	}
}

// Update is one outbound control change produced by a scheduler tick.
type Update struct {
	Control Control
	Value   uint8
}

// channel is the per-control wire state.
type channel struct {
	value     float64 // committed target in control units
	smoothed  float64
	lastSent  int  // last CC value on the wire, -1 before the first send
	baseline  int  // host feedback baseline, -1 when gesture has authority
	forceSync bool // send on the next tick regardless of deadband
}

// Deck is one performer's control state machine. The classification
// pipeline and the feedback receiver write to it, the scheduler reads
// and advances it; each deck has its own lock so the two decks never
// contend with each other.
type Deck struct {
	mu  sync.Mutex
	cfg Config
	id  int

	state       State
	active      Control
	angleOffset float64

	channels [NumControls]channel

	pendingKnob  Control
	pendingCount int

	lastGesture time.Time // last frame with a knob or pinch category

	pinchStartY   float64
	pinchStartVol float64

	toggleHeld     [numToggles]bool
	toggleReleased [numToggles]time.Time
}

// NewDeck creates a deck with every control at its resting value.
func NewDeck(id int, cfg Config) *Deck {
	d := &Deck{cfg: cfg, id: id, pendingKnob: -1}
	for c := Control(0); c < NumControls; c++ {
		def := c.Range().Default
		d.channels[c] = channel{value: def, smoothed: def, lastSent: -1, baseline: -1}
	}
	return d
}

// ID returns the deck index (0 or 1).
func (d *Deck) ID() int { return d.id }

// Apply consumes one classification for this deck's hand and returns
// any toggles that fired on this frame. Toggles bypass the scheduler
// cadence, so the caller forwards them to the port immediately.
func (d *Deck) Apply(res gesture.Result, now time.Time) []Toggle {
	d.mu.Lock()
	defer d.mu.Unlock()

	fired := d.updateToggles(res.Category, now)

	switch {
	case res.Category == gesture.VolumePinch:
		d.applyPinch(res, now)
	case res.Category.IsKnob():
		d.applyKnob(res, now)
	default:
		d.noGesture(now)
	}
	return fired
}

// HandLost notes a frame with no hand for this deck.
func (d *Deck) HandLost(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseToggles(now)
	d.noGesture(now)
}

func (d *Deck) updateToggles(cat gesture.Category, now time.Time) []Toggle {
	var fired []Toggle
	observed := [numToggles]bool{
		TogglePlay:   cat == gesture.PlayToggle,
		ToggleEffect: cat == gesture.EffectToggle,
	}
	for t := Toggle(0); t < numToggles; t++ {
		switch {
		case observed[t] && !d.toggleHeld[t]:
			d.toggleHeld[t] = true
			if d.toggleReleased[t].IsZero() || now.Sub(d.toggleReleased[t]) >= d.cfg.ToggleCooldown {
				fired = append(fired, t)
			}
		case !observed[t] && d.toggleHeld[t]:
			d.toggleHeld[t] = false
			d.toggleReleased[t] = now
		}
	}
	return fired
}

func (d *Deck) releaseToggles(now time.Time) {
	for t := Toggle(0); t < numToggles; t++ {
		if d.toggleHeld[t] {
			d.toggleHeld[t] = false
			d.toggleReleased[t] = now
		}
	}
}

// knobFor maps knob categories to controls.
func knobFor(cat gesture.Category) Control {
	switch cat {
	case gesture.FilterSelect:
		return Filter
	case gesture.LowEQSelect:
		return LowEQ
	case gesture.MidEQSelect:
		return MidEQ
	case gesture.HighEQSelect:
		return HighEQ
	}
	return -1
}

func (d *Deck) applyKnob(res gesture.Result, now time.Time) {
	d.lastGesture = now
	knob := knobFor(res.Category)

	switch d.state {
	case Idle:
		if !res.Pointer {
			return
		}
		// Fresh engagement maps the hand angle absolutely.
		d.state = ControlActive
		d.active = knob
		d.angleOffset = 0
		d.pendingKnob = -1
		d.channels[knob].forceSync = true
		d.track(res.Angle)

	case ControlActive:
		if knob != d.active {
			d.debounceSwitch(knob, res.Angle)
			return
		}
		d.pendingKnob = -1
		if !res.Pointer {
			d.state = Locked
			return
		}
		d.track(res.Angle)

	case Locked:
		if knob != d.active {
			d.debounceSwitch(knob, res.Angle)
			return
		}
		d.pendingKnob = -1
		if !res.Pointer {
			return
		}
		// Resume without a snap: re-anchor the angle to the value the
		// knob froze at.
		d.state = ControlActive
		d.angleOffset = d.active.AngleForValue(d.channels[d.active].value) - res.Angle
		d.track(res.Angle)

	case VolumeActive:
		// Pinch released into a knob pose.
		d.state = Idle
		d.applyKnob(res, now)
	}
}

// debounceSwitch commits a knob change only after DebounceFrames
// consecutive classifications agree, suppressing single-frame flicker.
func (d *Deck) debounceSwitch(knob Control, angle float64) {
	if d.pendingKnob != knob {
		d.pendingKnob = knob
		d.pendingCount = 1
	} else {
		d.pendingCount++
	}
	if d.pendingCount < d.cfg.DebounceFrames {
		return
	}
	d.pendingKnob = -1
	d.state = ControlActive
	d.active = knob
	// Re-anchor so the current hand angle reproduces the new knob's
	// committed value instead of snapping to the absolute mapping.
	d.angleOffset = knob.AngleForValue(d.channels[knob].value) - angle
	d.channels[knob].forceSync = true
	d.track(angle)
}

func (d *Deck) track(angle float64) {
	ch := &d.channels[d.active]
	ch.value = d.active.ValueFromAngle(angle + d.angleOffset)
}

func (d *Deck) applyPinch(res gesture.Result, now time.Time) {
	d.lastGesture = now
	if d.state != VolumeActive {
		d.state = VolumeActive
		d.pendingKnob = -1
		d.pinchStartY = res.PinchY
		d.pinchStartVol = d.channels[Volume].value
		d.channels[Volume].forceSync = true
		return
	}
	// Upward movement (decreasing pixel Y) raises the volume.
	delta := (d.pinchStartY - res.PinchY) * d.cfg.PinchSensitivity
	d.channels[Volume].value = clamp01(d.pinchStartVol + delta)
}

// noGesture handles None and toggle-only frames: active knobs lock in
// place, and the deck falls back to Idle once the hand-lost debounce
// window passes. Values freeze, they are never reset.
func (d *Deck) noGesture(now time.Time) {
	d.pendingKnob = -1
	d.pendingCount = 0

	switch d.state {
	case ControlActive:
		d.state = Locked
	case VolumeActive:
		d.state = Idle
	}
	if d.state == Locked && !d.lastGesture.IsZero() &&
		now.Sub(d.lastGesture) >= d.cfg.HandLostTimeout {
		d.state = Idle
	}
}

// Tick advances smoothing one scheduler step and returns the control
// changes that should go on the wire. Soft takeover suppresses a
// control whose gesture value is still far from a host-set baseline;
// once the gap closes to within TakeoverEpsilon the gesture regains
// authority.
func (d *Deck) Tick() []Update {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Update
	for c := Control(0); c < NumControls; c++ {
		ch := &d.channels[c]
		ch.smoothed += d.cfg.Smoothing * (ch.value - ch.smoothed)
		if diff := ch.value - ch.smoothed; diff < 1e-6 && diff > -1e-6 {
			ch.smoothed = ch.value
		}

		m := c.ToMIDI(ch.smoothed)
		if ch.baseline >= 0 {
			if absInt(int(m)-ch.baseline) > d.cfg.TakeoverEpsilon {
				continue
			}
			ch.baseline = -1
		}

		if ch.forceSync || ch.lastSent < 0 || absInt(int(m)-ch.lastSent) >= d.cfg.Deadband {
			ch.forceSync = false
			ch.lastSent = int(m)
			out = append(out, Update{Control: c, Value: m})
		}
	}
	return out
}

// AdoptFeedback records a host-reported CC value. A control the
// performer is engaged with only updates its takeover baseline; any
// other control adopts the host value outright, so the next tick has
// nothing to send for it.
func (d *Deck) AdoptFeedback(c Control, value uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()

	engaged := false
	switch d.state {
	case ControlActive, Locked:
		engaged = c == d.active
	case VolumeActive:
		engaged = c == Volume
	}

	ch := &d.channels[c]
	if engaged {
		ch.baseline = int(value)
		return
	}
	v := c.FromMIDI(value)
	ch.value = v
	ch.smoothed = v
	ch.lastSent = int(value)
	ch.baseline = -1
	ch.forceSync = false
}

// ForceSync marks every control for an unconditional send on the next
// tick. Used after the MIDI port reconnects, when the wire state is
// unknown.
func (d *Deck) ForceSync() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.channels {
		d.channels[c].forceSync = true
	}
}

// DefaultUpdates returns every control at its resting value, used to
// zero the host surface on shutdown.
func (d *Deck) DefaultUpdates() []Update {
	out := make([]Update, 0, NumControls)
	for c := Control(0); c < NumControls; c++ {
		out = append(out, Update{Control: c, Value: c.ToMIDI(c.Range().Default)})
	}
	return out
}

// ControlSnapshot is the observable state of one control.
type ControlSnapshot struct {
	Value float64 `json:"value"`
	MIDI  uint8   `json:"midi"`
}

// Snapshot is the observable state of a deck.
type Snapshot struct {
	Deck     int                        `json:"deck"`
	State    string                     `json:"state"`
	Active   string                     `json:"active,omitempty"`
	Controls map[string]ControlSnapshot `json:"controls"`
}

// Snapshot returns a copy of the deck's observable state.
func (d *Deck) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Snapshot{
		Deck:     d.id + 1,
		State:    d.state.String(),
		Controls: make(map[string]ControlSnapshot, NumControls),
	}
	if d.state == ControlActive || d.state == Locked {
		s.Active = d.active.String()
	} else if d.state == VolumeActive {
		s.Active = Volume.String()
	}
	for c := Control(0); c < NumControls; c++ {
		ch := d.channels[c]
		s.Controls[c.String()] = ControlSnapshot{
			Value: ch.value,
			MIDI:  c.ToMIDI(ch.smoothed),
		}
	}
	return s
}

// State returns the deck's current engagement state.
func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package control

import (
	"math"
	"testing"
	"time"

	"github.com/vasukaker/gestdj/internal/gesture"
)

func knobResult(cat gesture.Category, angle float64) gesture.Result {
	return gesture.Result{Category: cat, Angle: angle, Pointer: true}
}

func pinchResult(y float64) gesture.Result {
	return gesture.Result{Category: gesture.VolumePinch, PinchY: y}
}

// settle runs enough ticks for smoothing to fully converge.
func settle(d *Deck) {
	for i := 0; i < 200; i++ {
		d.Tick()
	}
}

func findUpdate(updates []Update, c Control) (Update, bool) {
	for _, u := range updates {
		if u.Control == c {
			return u, true
		}
	}
	return Update{}, false
}

func TestDeck_InitialTickSyncsDefaults(t *testing.T) {
	d := NewDeck(0, DefaultConfig())

	updates := d.Tick()
	if len(updates) != int(NumControls) {
		t.Fatalf("first tick sent %d updates, want %d", len(updates), NumControls)
	}
	want := map[Control]uint8{Filter: 64, LowEQ: 64, MidEQ: 64, HighEQ: 64, Volume: 127}
	for c, m := range want {
		u, ok := findUpdate(updates, c)
		if !ok {
			t.Fatalf("no initial update for %v", c)
		}
		if u.Value != m {
			t.Errorf("initial %v = %d, want %d", c, u.Value, m)
		}
	}

	if more := d.Tick(); len(more) != 0 {
		t.Errorf("second tick resent %d updates", len(more))
	}
}

func TestDeck_AbsoluteMappingOnActivation(t *testing.T) {
	tests := []struct {
		angle float64
		midi  uint8
	}{
		{-90, 0},
		{0, 64},
		{90, 127},
	}

	for _, tt := range tests {
		d := NewDeck(0, DefaultConfig())
		settle(d)
		now := time.Now()

		d.Apply(knobResult(gesture.FilterSelect, tt.angle), now)
		if d.State() != ControlActive {
			t.Fatalf("expected ControlActive, got %v", d.State())
		}
		settle(d)

		got := d.Snapshot().Controls["filter"]
		if got.MIDI != tt.midi {
			t.Errorf("filter at %0.0f degrees settled at MIDI %d, want %d", tt.angle, got.MIDI, tt.midi)
		}
	}
}

func TestDeck_ActivationSendsImmediately(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	settle(d)
	now := time.Now()

	// A one-unit move is inside the deadband, but activation must sync
	// the control anyway.
	d.Apply(knobResult(gesture.FilterSelect, 1), now)
	updates := d.Tick()
	if _, ok := findUpdate(updates, Filter); !ok {
		t.Error("activation did not produce an immediate filter update")
	}
}

func TestDeck_KnobSwitchDebounce(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	d.Apply(knobResult(gesture.FilterSelect, 0), now)
	d.Apply(knobResult(gesture.FilterSelect, 0), now)

	// One flickered frame must not switch the knob.
	d.Apply(knobResult(gesture.LowEQSelect, 0), now)
	if got := d.Snapshot().Active; got != "filter" {
		t.Fatalf("single frame switched active knob to %q", got)
	}
	// An inconsistent follow-up resets the count.
	d.Apply(knobResult(gesture.FilterSelect, 0), now)
	d.Apply(knobResult(gesture.LowEQSelect, 0), now)
	if got := d.Snapshot().Active; got != "filter" {
		t.Fatalf("reset debounce still switched to %q", got)
	}

	// Two consecutive frames commit the switch.
	d.Apply(knobResult(gesture.LowEQSelect, 0), now)
	if got := d.Snapshot().Active; got != "low_eq" {
		t.Errorf("active knob = %q after two consistent frames, want low_eq", got)
	}
}

func TestDeck_KnobSwitchPreservesValue(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	// Engage the filter at +45 degrees: committed value 0.75.
	d.Apply(knobResult(gesture.FilterSelect, 45), now)

	// Switch to low EQ while the hand is still at +45. The EQ must keep
	// its committed value (default 1.0) rather than snap to the
	// absolute reading for +45.
	d.Apply(knobResult(gesture.LowEQSelect, 45), now)
	d.Apply(knobResult(gesture.LowEQSelect, 45), now)

	v := d.Snapshot().Controls["low_eq"].Value
	if math.Abs(v-1.0) > 1e-9 {
		t.Fatalf("low EQ snapped to %f on switch, want 1.0", v)
	}

	// Further rotation tracks relative to the switch angle.
	d.Apply(knobResult(gesture.LowEQSelect, 63), now)
	want := LowEQ.ValueFromAngle(18)
	v = d.Snapshot().Controls["low_eq"].Value
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("low EQ after 18 degree move = %f, want %f", v, want)
	}
}

func TestDeck_LockAndResume(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	d.Apply(knobResult(gesture.FilterSelect, 0), now)

	// Pointer breaks: the knob locks and stops tracking.
	locked := gesture.Result{Category: gesture.FilterSelect, Angle: 60, Pointer: false}
	d.Apply(locked, now)
	if d.State() != Locked {
		t.Fatalf("expected Locked, got %v", d.State())
	}
	d.Apply(gesture.Result{Category: gesture.FilterSelect, Angle: 90, Pointer: false}, now)
	if v := d.Snapshot().Controls["filter"].Value; math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("locked filter drifted to %f", v)
	}

	// Pointer resumes at a different angle: no snap, then relative
	// tracking from the resume angle.
	d.Apply(knobResult(gesture.FilterSelect, 90), now)
	if d.State() != ControlActive {
		t.Fatalf("expected ControlActive after resume, got %v", d.State())
	}
	if v := d.Snapshot().Controls["filter"].Value; math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("resume snapped filter to %f", v)
	}
	d.Apply(knobResult(gesture.FilterSelect, 108), now)
	if v := d.Snapshot().Controls["filter"].Value; math.Abs(v-0.6) > 1e-9 {
		t.Errorf("filter after resume move = %f, want 0.6", v)
	}
}

func TestDeck_IdleActivationNeedsPointer(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	d.Apply(gesture.Result{Category: gesture.FilterSelect, Angle: 0, Pointer: false}, now)
	if d.State() != Idle {
		t.Errorf("retracted pointer activated the deck: %v", d.State())
	}
}

func TestDeck_VolumePinchRamp(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	// Pull the volume down to zero first so an upward pinch has room.
	d.AdoptFeedback(Volume, 0)

	d.Apply(pinchResult(500), now)
	if d.State() != VolumeActive {
		t.Fatalf("expected VolumeActive, got %v", d.State())
	}

	// 100px upward in 10px steps: monotonic ramp to +0.35.
	prev := 0.0
	for y := 490.0; y >= 400; y -= 10 {
		d.Apply(pinchResult(y), now)
		v := d.Snapshot().Controls["volume"].Value
		if v <= prev {
			t.Fatalf("volume ramp not monotonic at y=%0.0f: %f <= %f", y, v, prev)
		}
		prev = v
	}
	if math.Abs(prev-0.35) > 1e-9 {
		t.Errorf("volume after 100px upward = %f, want 0.35", prev)
	}
}

func TestDeck_VolumeClamped(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	now := time.Now()

	// Default volume is already 1.0; a large upward move must clamp.
	d.Apply(pinchResult(600), now)
	d.Apply(pinchResult(100), now)
	if v := d.Snapshot().Controls["volume"].Value; v != 1.0 {
		t.Errorf("volume exceeded range: %f", v)
	}

	// And a huge downward move clamps at zero.
	d.Apply(pinchResult(5000), now)
	if v := d.Snapshot().Controls["volume"].Value; v != 0.0 {
		t.Errorf("volume underflowed range: %f", v)
	}
}

func TestDeck_ToggleFiresOncePerEdge(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	base := time.Now()
	play := gesture.Result{Category: gesture.PlayToggle}
	none := gesture.Result{Category: gesture.None}

	fired := d.Apply(play, base)
	if len(fired) != 1 || fired[0] != TogglePlay {
		t.Fatalf("rising edge fired %v, want [play]", fired)
	}

	// Held: no refire.
	for i := 1; i <= 5; i++ {
		if fired := d.Apply(play, base.Add(time.Duration(i)*33*time.Millisecond)); len(fired) != 0 {
			t.Fatalf("held toggle refired at frame %d", i)
		}
	}

	// Released and re-held inside the cooldown: still exactly one fire.
	d.Apply(none, base.Add(200*time.Millisecond))
	if fired := d.Apply(play, base.Add(300*time.Millisecond)); len(fired) != 0 {
		t.Fatal("toggle refired within the cooldown window")
	}

	// Released again, then re-held after the cooldown: fires.
	d.Apply(none, base.Add(400*time.Millisecond))
	if fired := d.Apply(play, base.Add(800*time.Millisecond)); len(fired) != 1 {
		t.Fatalf("toggle after cooldown fired %v, want one event", fired)
	}
}

func TestDeck_HandLostFreezesAndIdles(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	base := time.Now()

	d.Apply(knobResult(gesture.FilterSelect, 45), base)
	want := d.Snapshot().Controls["filter"].Value

	d.HandLost(base.Add(100 * time.Millisecond))
	if d.State() != Locked {
		t.Fatalf("expected Locked right after hand loss, got %v", d.State())
	}

	d.HandLost(base.Add(700 * time.Millisecond))
	if d.State() != Idle {
		t.Fatalf("expected Idle after the debounce window, got %v", d.State())
	}
	if v := d.Snapshot().Controls["filter"].Value; v != want {
		t.Errorf("hand loss reset the filter: %f, want %f", v, want)
	}
}

func TestDeck_SoftTakeover(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	settle(d)
	now := time.Now()

	// Performer is on the filter when the host moves it to 0.
	d.Apply(knobResult(gesture.FilterSelect, 0), now)
	settle(d)
	d.AdoptFeedback(Filter, 0)

	// Gesture still reads mid-travel: outbound sends are suppressed.
	d.Apply(knobResult(gesture.FilterSelect, 2), now)
	if updates := d.Tick(); len(updates) != 0 {
		t.Fatalf("suppressed control still sent %v", updates)
	}

	// The performer sweeps toward the host value; once within epsilon
	// the gesture regains authority and sends resume.
	d.Apply(knobResult(gesture.FilterSelect, -90), now)
	resumed := false
	for i := 0; i < 100; i++ {
		if len(d.Tick()) > 0 {
			resumed = true
			break
		}
	}
	if !resumed {
		t.Fatal("sends never resumed after converging on the host value")
	}
	settle(d)
	if got := d.Snapshot().Controls["filter"].MIDI; got != 0 {
		t.Errorf("filter settled at MIDI %d, want 0", got)
	}
}

func TestDeck_FeedbackAdoptionWhenIdle(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	settle(d)

	d.AdoptFeedback(LowEQ, 100)

	if updates := d.Tick(); len(updates) != 0 {
		t.Fatalf("adopting feedback caused an echo send: %v", updates)
	}
	want := LowEQ.FromMIDI(100)
	if v := d.Snapshot().Controls["low_eq"].Value; math.Abs(v-want) > 1e-9 {
		t.Errorf("adopted value = %f, want %f", v, want)
	}
}

func TestDeck_FeedbackOnEngagedControlOnlySetsBaseline(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	settle(d)
	now := time.Now()

	d.Apply(knobResult(gesture.FilterSelect, 0), now)
	settle(d)
	before := d.Snapshot().Controls["filter"].Value

	d.AdoptFeedback(Filter, 10)

	if v := d.Snapshot().Controls["filter"].Value; v != before {
		t.Errorf("feedback overwrote an engaged control: %f", v)
	}
}

func TestDeck_SchedulerRateBound(t *testing.T) {
	d := NewDeck(0, DefaultConfig())
	settle(d)
	now := time.Now()

	// 30 ticks = one second of scheduler time. However wildly the
	// committed value moves between ticks, each control sends at most
	// once per tick.
	sent := 0
	angle := -90.0
	for i := 0; i < 30; i++ {
		d.Apply(knobResult(gesture.FilterSelect, angle), now)
		angle = -angle
		updates := d.Tick()
		n := 0
		for _, u := range updates {
			if u.Control == Filter {
				n++
			}
		}
		if n > 1 {
			t.Fatalf("tick %d sent %d filter updates", i, n)
		}
		sent += n
	}
	if sent > 30 {
		t.Errorf("sent %d filter updates in a 1s window, want <= 30", sent)
	}
}

func TestDeck_DefaultUpdates(t *testing.T) {
	d := NewDeck(1, DefaultConfig())
	updates := d.DefaultUpdates()
	if len(updates) != int(NumControls) {
		t.Fatalf("got %d default updates, want %d", len(updates), NumControls)
	}
	if u, _ := findUpdate(updates, Volume); u.Value != 127 {
		t.Errorf("default volume = %d, want 127", u.Value)
	}
}

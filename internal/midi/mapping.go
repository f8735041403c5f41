// Package midi owns the virtual MIDI device: the CC number assignment,
// the fixed-rate outbound scheduler, and the host feedback receiver.
package midi

import "github.com/vasukaker/gestdj/internal/control"

// CC numbers emitted per deck channel. The host-side mapping file binds
// the same numbers, so changing these requires re-mapping the host.
const (
	CCFilter uint8 = 1
	CCLowEQ  uint8 = 2
	CCMidEQ  uint8 = 3
	CCHighEQ uint8 = 4
	CCVolume uint8 = 5
	CCPlay   uint8 = 18
	CCEffect uint8 = 20
)

// toggleValue is what play/effect edges carry on the wire.
const toggleValue uint8 = 127

// ChannelForDeck maps a deck index to its MIDI channel. Deck 1 speaks
// channel 0 and deck 2 channel 1, in both directions.
func ChannelForDeck(deck int) uint8 { return uint8(deck) }

var ccForControl = [control.NumControls]uint8{
	control.Filter: CCFilter,
	control.LowEQ:  CCLowEQ,
	control.MidEQ:  CCMidEQ,
	control.HighEQ: CCHighEQ,
	control.Volume: CCVolume,
}

// CCForControl returns the CC number a control is sent on.
func CCForControl(c control.Control) uint8 { return ccForControl[c] }

// ControlForCC inverts CCForControl for inbound feedback. The second
// return is false for CC numbers the host should not be sending us.
func ControlForCC(cc uint8) (control.Control, bool) {
	for c := control.Control(0); c < control.NumControls; c++ {
		if ccForControl[c] == cc {
			return c, true
		}
	}
	return 0, false
}

// CCForToggle returns the CC number a toggle edge is sent on.
func CCForToggle(t control.Toggle) uint8 {
	if t == control.TogglePlay {
		return CCPlay
	}
	return CCEffect
}

package midi

import (
	"log"

	"github.com/vasukaker/gestdj/internal/control"
)

// Receiver consumes host-reported CC values and forwards them to the
// decks as soft-takeover feedback. Delivery is synchronous from the
// port callback and the decks keep only the latest value per control,
// so feedback bursts never queue up.
type Receiver struct {
	port  *Port
	decks []*control.Deck
}

// NewReceiver creates a receiver over the given decks.
func NewReceiver(port *Port, decks []*control.Deck) *Receiver {
	return &Receiver{port: port, decks: decks}
}

// Start begins consuming inbound CCs from the port.
func (r *Receiver) Start() error {
	return r.port.Listen(r.Handle)
}

// Handle routes one inbound CC. Messages on channels or CC numbers we
// never emit are host chatter and get dropped without noise; anything
// else would spam the log at feedback rates.
func (r *Receiver) Handle(channel, cc, value uint8) {
	if int(channel) >= len(r.decks) {
		return
	}
	c, ok := ControlForCC(cc)
	if !ok {
		return
	}
	if value > 127 {
		log.Printf("midi: dropping malformed feedback value %d", value)
		return
	}
	r.decks[channel].AdoptFeedback(c, value)
}

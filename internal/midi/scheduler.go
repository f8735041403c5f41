package midi

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/vasukaker/gestdj/internal/control"
)

// SchedulerConfig holds the output pacing parameters.
type SchedulerConfig struct {
	// Rate is the output loop frequency in Hz.
	Rate int

	// RetryInterval is how often an unavailable port is reopened.
	RetryInterval time.Duration
}

// DefaultSchedulerConfig returns the production pacing: 30 Hz output,
// port retry every 5 seconds.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Rate: 30, RetryInterval: 5 * time.Second}
}

// Scheduler drains deck state to the port at a fixed rate, decoupled
// from camera frame arrival. It is the single consumer of the deck
// state tables; toggles are the one exception and go out immediately
// via SendToggle.
type Scheduler struct {
	cfg       SchedulerConfig
	transport Transport
	decks     []*control.Deck

	stopCh chan struct{}
	doneCh chan struct{}

	// available is read by SendToggle on the pipeline goroutine while
	// the run loop writes it, so it has to be atomic.
	available atomic.Bool
	onAvail   func(bool)
}

// NewScheduler creates a scheduler over the given decks.
func NewScheduler(t Transport, decks []*control.Deck, cfg SchedulerConfig) *Scheduler {
	if cfg.Rate <= 0 {
		cfg.Rate = 30
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	s := &Scheduler{
		cfg:       cfg,
		transport: t,
		decks:     decks,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.available.Store(true)
	return s
}

// OnAvailability registers a callback invoked whenever the port flips
// between usable and lost. Set it before Start.
func (s *Scheduler) OnAvailability(fn func(bool)) {
	s.onAvail = fn
}

// Start launches the output loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the loop, resets every control to its resting value on the
// wire, and returns. In-flight knob updates are dropped.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.resetSurface()
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.Rate))
	defer ticker.Stop()
	retry := time.NewTicker(s.cfg.RetryInterval)
	defer retry.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-retry.C:
			s.retryPort()
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick drains one scheduler step. Deck state keeps advancing while the
// port is down so classification never stalls; the port recovery path
// forces a full resync to cover the dropped sends.
func (s *Scheduler) tick() {
	for _, d := range s.decks {
		for _, u := range d.Tick() {
			if err := s.transport.SendCC(ChannelForDeck(d.ID()), CCForControl(u.Control), u.Value); err != nil {
				s.noteSendError(err)
				return
			}
		}
	}
	if s.transport.Available() {
		s.setAvailable(true)
	}
}

// SendToggle pushes an edge event straight to the port, bypassing the
// tick cadence to keep play/effect latency minimal.
func (s *Scheduler) SendToggle(deck int, t control.Toggle) {
	if err := s.transport.SendCC(ChannelForDeck(deck), CCForToggle(t), toggleValue); err != nil {
		s.noteSendError(err)
	}
}

func (s *Scheduler) noteSendError(err error) {
	if s.setAvailable(false) {
		log.Printf("midi: port lost, sends degrade to no-ops: %v", err)
	}
}

// setAvailable flips the availability flag and reports whether this
// call made the transition. Only the first of concurrent flips
// notifies.
func (s *Scheduler) setAvailable(up bool) bool {
	if !s.available.CompareAndSwap(!up, up) {
		return false
	}
	if s.onAvail != nil {
		s.onAvail(up)
	}
	return true
}

func (s *Scheduler) retryPort() {
	if s.transport.Available() {
		return
	}
	if err := s.transport.Reopen(); err != nil {
		log.Printf("midi: port reopen failed: %v", err)
		return
	}
	log.Printf("midi: port recovered, resyncing controls")
	s.setAvailable(true)
	for _, d := range s.decks {
		d.ForceSync()
	}
}

// resetSurface returns the host surface to resting values on shutdown.
func (s *Scheduler) resetSurface() {
	for _, d := range s.decks {
		for _, u := range d.DefaultUpdates() {
			if err := s.transport.SendCC(ChannelForDeck(d.ID()), CCForControl(u.Control), u.Value); err != nil {
				return
			}
		}
	}
}

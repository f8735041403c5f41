package app

import (
	"log"
	"time"

	"github.com/vasukaker/gestdj/internal/capture"
	"github.com/vasukaker/gestdj/internal/control"
	"github.com/vasukaker/gestdj/internal/detector"
)

// runPipeline is the frame loop. Each iteration reads one camera frame,
// detects hand landmarks, classifies each hand, and feeds the result to
// that hand's deck. Decks without a usable hand this frame get a
// hand-lost notification so their timeout can run.
//
// The loop only writes deck state; the scheduler reads it at its own
// 30 Hz cadence, so a slow or stalled camera never blocks MIDI output.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.step(time.Now())
		}
	}
}

// step processes one frame.
func (a *App) step(now time.Time) {
	if !a.IsEnabled() {
		// Paused: no hands are being tracked, let the decks idle out.
		for _, d := range a.decks {
			d.HandLost(now)
		}
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		a.handsLost(now)
		return
	}

	// Landmark detection is the expensive stage. While every deck is
	// idle a static scene cannot start a gesture, so frames without
	// motion skip it. Engaged decks always run detection: a held pose
	// has to keep tracking even when it is perfectly still.
	motionDetected, _ := a.motion.Detect(frame)
	if !motionDetected && a.allIdle() {
		frame.Close()
		a.handsLost(now)
		return
	}

	a.mu.RLock()
	det := a.detector
	a.mu.RUnlock()

	hands, err := det.Detect(frame)
	frame.Close()
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		a.handsLost(now)
		return
	}

	var seen [NumDecks]bool
	for i := range hands {
		hand := &hands[i]
		deck, ok := deckForHand(hand)
		if !ok || seen[deck] {
			continue
		}
		seen[deck] = true

		res := a.classifier.Classify(*hand)
		for _, t := range a.decks[deck].Apply(res, now) {
			a.scheduler.SendToggle(deck, t)
		}
	}

	for i, d := range a.decks {
		if !seen[i] {
			d.HandLost(now)
		}
	}
}

// allIdle reports whether no deck is engaged or locked.
func (a *App) allIdle() bool {
	for _, d := range a.decks {
		if d.State() != control.Idle {
			return false
		}
	}
	return true
}

// handsLost notifies every deck that no hand data arrived this frame.
func (a *App) handsLost(now time.Time) {
	for _, d := range a.decks {
		d.HandLost(now)
	}
}

// deckForHand routes a detected hand to its deck: the performer's left
// hand drives deck 1, the right hand deck 2. Hands without a usable
// handedness label are dropped.
func deckForHand(h *detector.HandLandmarks) (int, bool) {
	switch h.Handedness {
	case "Left":
		return 0, true
	case "Right":
		return 1, true
	default:
		return 0, false
	}
}

// Package app wires the capture, classification, control, and MIDI
// output stages into the running pipeline.
package app

import (
	"log"
	"sync"

	"github.com/vasukaker/gestdj/internal/capture"
	"github.com/vasukaker/gestdj/internal/config"
	"github.com/vasukaker/gestdj/internal/control"
	"github.com/vasukaker/gestdj/internal/detector"
	"github.com/vasukaker/gestdj/internal/gesture"
	"github.com/vasukaker/gestdj/internal/midi"
)

// NumDecks is the number of performer hands tracked, left and right.
const NumDecks = 2

// App orchestrates the frame pipeline: camera frames go through the
// landmark detector and classifier into the per-deck state machines,
// and the scheduler drains deck state to the MIDI port at its own rate.
type App struct {
	cfg        config.Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	detector   detector.Detector
	classifier *gesture.Classifier
	decks      []*control.Deck
	scheduler  *midi.Scheduler

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates the pipeline over the given MIDI transport. The transport
// is injected so the output path stays testable without a real port.
func New(cfg config.Config, transport midi.Transport) *App {
	decks := make([]*control.Deck, NumDecks)
	for i := range decks {
		decks[i] = control.NewDeck(i, cfg.DeckConfig())
	}

	a := &App{
		cfg:        cfg,
		camera:     capture.NewCamera(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height),
		motion:     capture.NewMotionDetector(cfg.MotionConfig()),
		classifier: gesture.NewClassifier(cfg.GestureConfig()),
		decks:      decks,
		scheduler:  midi.NewScheduler(transport, decks, cfg.SchedulerConfig()),
		enabled:    true,
	}

	// Try MediaPipe first, fall back to mock detector
	dcfg := detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConf,
	}
	if mp, err := detector.NewMediaPipeDetector(dcfg); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled pauses or resumes gesture tracking. The MIDI port stays
// open while paused; decks drift to Idle through the hand-lost timeout
// with their values frozen.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	resumed := enabled && !a.enabled
	a.enabled = enabled
	a.mu.Unlock()

	// The scene has likely changed during the pause; reseed the
	// motion baseline so the first frame back is not a false diff.
	if resumed {
		a.motion.Reset()
	}
}

// IsEnabled returns whether gesture tracking is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera sets the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Decks returns the per-hand control state machines.
func (a *App) Decks() []*control.Deck {
	return a.decks
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Scheduler returns the MIDI output scheduler.
func (a *App) Scheduler() *midi.Scheduler {
	return a.scheduler
}

// Start opens the camera and launches the frame loop and the output
// scheduler.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	if a.cfg.Camera.FPS > 0 {
		a.camera.SetFPS(a.cfg.Camera.FPS)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)
	a.scheduler.Start()

	log.Println("Pipeline started")
	return nil
}

// Stop halts the frame loop, stops the scheduler (which parks every
// control at its resting value on the wire), and releases the camera
// and detector.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	doneCh := a.doneCh
	a.mu.Unlock()

	<-doneCh
	a.scheduler.Stop()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Pipeline stopped")
}

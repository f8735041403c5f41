package config

import (
	"os"
	"testing"
	"time"

	"github.com/vasukaker/gestdj/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MIDI.DeviceName != "GestDJ Gestures" {
		t.Errorf("device name = %q", cfg.MIDI.DeviceName)
	}
	if cfg.MIDI.Rate != 30 {
		t.Errorf("midi rate = %d, want 30", cfg.MIDI.Rate)
	}
	if cfg.Control.HandLostTimeout != 500*time.Millisecond {
		t.Errorf("hand lost timeout = %v", cfg.Control.HandLostTimeout)
	}
	if cfg.Gesture.CurlThreshold != 35 {
		t.Errorf("curl threshold = %v", cfg.Gesture.CurlThreshold)
	}
	if cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("camera size = %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("GESTDJ_MIDI_DEVICE_NAME", "Test Device")
	os.Setenv("GESTDJ_CONTROL_DEBOUNCE_FRAMES", "4")
	defer os.Unsetenv("GESTDJ_MIDI_DEVICE_NAME")
	defer os.Unsetenv("GESTDJ_CONTROL_DEBOUNCE_FRAMES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MIDI.DeviceName != "Test Device" {
		t.Errorf("env override ignored: device name = %q", cfg.MIDI.DeviceName)
	}
	if cfg.Control.DebounceFrames != 4 {
		t.Errorf("env override ignored: debounce frames = %d", cfg.Control.DebounceFrames)
	}
}

func TestMergeTunablesReachesClassifierAndDecks(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	merged := cfg.MergeTunables(store.Tunables{
		CurlThreshold:     40,
		Deadband:          5,
		HandLostTimeoutMs: 800,
		Smoothing:         0.3,
	})

	if got := merged.GestureConfig().CurlThreshold; got != 40 {
		t.Errorf("curl threshold = %v, want 40", got)
	}
	dc := merged.DeckConfig()
	if dc.Deadband != 5 {
		t.Errorf("deadband = %d, want 5", dc.Deadband)
	}
	if dc.HandLostTimeout != 800*time.Millisecond {
		t.Errorf("hand lost timeout = %v, want 800ms", dc.HandLostTimeout)
	}
	if dc.Smoothing != 0.3 {
		t.Errorf("smoothing = %v, want 0.3", dc.Smoothing)
	}

	// Knobs the profile leaves at zero keep their configured values.
	if dc.DebounceFrames != cfg.Control.DebounceFrames {
		t.Errorf("debounce frames = %d, want %d", dc.DebounceFrames, cfg.Control.DebounceFrames)
	}
	if merged.Gesture.PinchThreshold != cfg.Gesture.PinchThreshold {
		t.Errorf("pinch threshold = %v, want %v", merged.Gesture.PinchThreshold, cfg.Gesture.PinchThreshold)
	}
}

func TestGestureConfigCarriesFrameSize(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	gc := cfg.GestureConfig()
	if gc.FrameWidth != float64(cfg.Camera.Width) || gc.FrameHeight != float64(cfg.Camera.Height) {
		t.Errorf("classifier frame size %vx%v does not match camera %dx%d",
			gc.FrameWidth, gc.FrameHeight, cfg.Camera.Width, cfg.Camera.Height)
	}
}

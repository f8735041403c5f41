package detector

import "gocv.io/x/gocv"

// Detector turns a camera frame into per-hand landmark sets. An empty
// slice means no hands this frame, which is not an error.
type Detector interface {
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases whatever the implementation holds, including any
	// external process.
	Close() error
}

// Config tunes the landmark provider. Both decks need a hand, so
// MaxHands defaults to two.
type Config struct {
	MaxHands        int
	MinConfidence   float64
	MinTrackingConf float64
}

// DefaultConfig returns the production detection tuning.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// withDefaults fills unset fields so a partially specified Config is
// still usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxHands <= 0 {
		c.MaxHands = def.MaxHands
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.MinTrackingConf <= 0 {
		c.MinTrackingConf = def.MinTrackingConf
	}
	return c
}

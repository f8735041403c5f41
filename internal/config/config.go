// Package config loads application configuration. Every empirically
// tuned constant in the pipeline lives here as a named value so it can
// be adjusted without touching code.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vasukaker/gestdj/internal/capture"
	"github.com/vasukaker/gestdj/internal/control"
	"github.com/vasukaker/gestdj/internal/gesture"
	"github.com/vasukaker/gestdj/internal/midi"
	"github.com/vasukaker/gestdj/internal/store"
)

// Config holds application configuration.
type Config struct {
	Camera   CameraConfig
	Detector DetectorConfig
	Gesture  GestureConfig
	Control  ControlConfig
	MIDI     MIDIConfig
	Server   ServerConfig
	Store    StoreConfig
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	DeviceID int `mapstructure:"device_id"`
	Width    int
	Height   int
	FPS      int

	// MotionThreshold is the percent of changed pixels below which an
	// idle frame skips landmark detection.
	MotionThreshold float64 `mapstructure:"motion_threshold"`

	// MotionBlurSize is the Gaussian kernel width (odd) used before
	// frame differencing.
	MotionBlurSize int `mapstructure:"motion_blur_size"`

	// MotionDiffThreshold is the per-pixel intensity delta that counts
	// as a change.
	MotionDiffThreshold float64 `mapstructure:"motion_diff_threshold"`
}

// DetectorConfig holds landmark provider settings.
type DetectorConfig struct {
	MaxHands        int     `mapstructure:"max_hands"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence"`
}

// GestureConfig holds classifier thresholds.
type GestureConfig struct {
	CurlThreshold  float64 `mapstructure:"curl_threshold"`
	ExtendMargin   float64 `mapstructure:"extend_margin"`
	PointerRatio   float64 `mapstructure:"pointer_ratio"`
	PinchThreshold float64 `mapstructure:"pinch_threshold"`
	MaxAngle       float64 `mapstructure:"max_angle"`
}

// ControlConfig holds state machine tunables.
type ControlConfig struct {
	DebounceFrames   int           `mapstructure:"debounce_frames"`
	HandLostTimeout  time.Duration `mapstructure:"hand_lost_timeout"`
	ToggleCooldown   time.Duration `mapstructure:"toggle_cooldown"`
	Smoothing        float64       `mapstructure:"smoothing"`
	PinchSensitivity float64       `mapstructure:"pinch_sensitivity"`
	Deadband         int           `mapstructure:"deadband"`
	TakeoverEpsilon  int           `mapstructure:"takeover_epsilon"`
}

// MIDIConfig holds virtual device settings.
type MIDIConfig struct {
	DeviceName    string        `mapstructure:"device_name"`
	Rate          int           `mapstructure:"rate"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// ServerConfig holds the status server settings.
type ServerConfig struct {
	Enabled bool
	Addr    string
}

// StoreConfig holds tuning profile persistence settings.
type StoreConfig struct {
	Path string
}

// Load reads configuration from file and env. Env var overrides use
// prefix GESTDJ_, e.g. GESTDJ_MIDI_DEVICE_NAME.
func Load() (Config, error) {
	v := viper.New()

	gestureDefaults := gesture.DefaultConfig()
	controlDefaults := control.DefaultConfig()
	schedDefaults := midi.DefaultSchedulerConfig()

	v.SetDefault("camera.device_id", 0)
	v.SetDefault("camera.width", 1280)
	v.SetDefault("camera.height", 720)
	v.SetDefault("camera.fps", 30)
	motionDefaults := capture.DefaultMotionConfig()
	v.SetDefault("camera.motion_threshold", motionDefaults.MinChangedPct)
	v.SetDefault("camera.motion_blur_size", motionDefaults.BlurSize)
	v.SetDefault("camera.motion_diff_threshold", float64(motionDefaults.DiffThreshold))

	v.SetDefault("detector.max_hands", 2)
	v.SetDefault("detector.min_confidence", 0.5)
	v.SetDefault("detector.min_tracking_confidence", 0.5)

	v.SetDefault("gesture.curl_threshold", gestureDefaults.CurlThreshold)
	v.SetDefault("gesture.extend_margin", gestureDefaults.ExtendMargin)
	v.SetDefault("gesture.pointer_ratio", gestureDefaults.PointerRatio)
	v.SetDefault("gesture.pinch_threshold", gestureDefaults.PinchThreshold)
	v.SetDefault("gesture.max_angle", gestureDefaults.MaxAngle)

	v.SetDefault("control.debounce_frames", controlDefaults.DebounceFrames)
	v.SetDefault("control.hand_lost_timeout", controlDefaults.HandLostTimeout)
	v.SetDefault("control.toggle_cooldown", controlDefaults.ToggleCooldown)
	v.SetDefault("control.smoothing", controlDefaults.Smoothing)
	v.SetDefault("control.pinch_sensitivity", controlDefaults.PinchSensitivity)
	v.SetDefault("control.deadband", controlDefaults.Deadband)
	v.SetDefault("control.takeover_epsilon", controlDefaults.TakeoverEpsilon)

	v.SetDefault("midi.device_name", "GestDJ Gestures")
	v.SetDefault("midi.rate", schedDefaults.Rate)
	v.SetDefault("midi.retry_interval", schedDefaults.RetryInterval)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8722")

	v.SetDefault("store.path", filepath.Join(os.Getenv("HOME"), ".gestdj", "profiles.db"))

	v.SetConfigType("yaml")

	if cfgPath := os.Getenv("GESTDJ_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".gestdj"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("GESTDJ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// config file is optional
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// MergeTunables overlays a stored tuning profile on the configuration.
// Zero-valued fields keep the configured value, so a profile only has
// to carry the knobs it changes.
func (c Config) MergeTunables(t store.Tunables) Config {
	if t.CurlThreshold > 0 {
		c.Gesture.CurlThreshold = t.CurlThreshold
	}
	if t.ExtendMargin > 0 {
		c.Gesture.ExtendMargin = t.ExtendMargin
	}
	if t.PointerRatio > 0 {
		c.Gesture.PointerRatio = t.PointerRatio
	}
	if t.PinchThreshold > 0 {
		c.Gesture.PinchThreshold = t.PinchThreshold
	}
	if t.DebounceFrames > 0 {
		c.Control.DebounceFrames = t.DebounceFrames
	}
	if t.HandLostTimeoutMs > 0 {
		c.Control.HandLostTimeout = time.Duration(t.HandLostTimeoutMs) * time.Millisecond
	}
	if t.ToggleCooldownMs > 0 {
		c.Control.ToggleCooldown = time.Duration(t.ToggleCooldownMs) * time.Millisecond
	}
	if t.Smoothing > 0 {
		c.Control.Smoothing = t.Smoothing
	}
	if t.PinchSensitivity > 0 {
		c.Control.PinchSensitivity = t.PinchSensitivity
	}
	if t.Deadband > 0 {
		c.Control.Deadband = t.Deadband
	}
	if t.TakeoverEpsilon > 0 {
		c.Control.TakeoverEpsilon = t.TakeoverEpsilon
	}
	return c
}

// MotionConfig assembles the frame-differencing gate configuration.
func (c Config) MotionConfig() capture.MotionConfig {
	return capture.MotionConfig{
		MinChangedPct: c.Camera.MotionThreshold,
		BlurSize:      c.Camera.MotionBlurSize,
		DiffThreshold: float32(c.Camera.MotionDiffThreshold),
	}
}

// GestureConfig assembles the classifier configuration. The classifier
// needs the frame size because its pinch threshold is in pixels.
func (c Config) GestureConfig() gesture.Config {
	return gesture.Config{
		CurlThreshold:  c.Gesture.CurlThreshold,
		ExtendMargin:   c.Gesture.ExtendMargin,
		PointerRatio:   c.Gesture.PointerRatio,
		PinchThreshold: c.Gesture.PinchThreshold,
		MaxAngle:       c.Gesture.MaxAngle,
		FrameWidth:     float64(c.Camera.Width),
		FrameHeight:    float64(c.Camera.Height),
	}
}

// DeckConfig assembles the state machine configuration.
func (c Config) DeckConfig() control.Config {
	return control.Config{
		DebounceFrames:   c.Control.DebounceFrames,
		HandLostTimeout:  c.Control.HandLostTimeout,
		ToggleCooldown:   c.Control.ToggleCooldown,
		Smoothing:        c.Control.Smoothing,
		PinchSensitivity: c.Control.PinchSensitivity,
		Deadband:         c.Control.Deadband,
		TakeoverEpsilon:  c.Control.TakeoverEpsilon,
	}
}

// SchedulerConfig assembles the MIDI output pacing configuration.
func (c Config) SchedulerConfig() midi.SchedulerConfig {
	return midi.SchedulerConfig{
		Rate:          c.MIDI.Rate,
		RetryInterval: c.MIDI.RetryInterval,
	}
}

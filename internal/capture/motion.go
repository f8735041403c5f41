package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MotionConfig holds the frame-differencing tunables.
type MotionConfig struct {
	// MinChangedPct is the percentage of changed pixels below which a
	// frame counts as still.
	MinChangedPct float64

	// BlurSize is the Gaussian kernel width applied before
	// differencing to knock out sensor noise. Must be odd.
	BlurSize int

	// DiffThreshold is the per-pixel intensity delta that counts as a
	// change.
	DiffThreshold float32
}

// DefaultMotionConfig returns the production gate tuning: 1% of pixels
// over a 21x21 blur with a delta of 25 intensity levels.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		MinChangedPct: 1.0,
		BlurSize:      21,
		DiffThreshold: 25,
	}
}

// MotionDetector decides whether a frame is worth running landmark
// detection on. The pipeline consults it only while every deck is
// idle: a still scene cannot start a gesture, but an engaged deck has
// to keep tracking a motionless held pose, so engaged frames bypass
// the gate entirely.
type MotionDetector struct {
	cfg      MotionConfig
	baseline gocv.Mat
	primed   bool
	mu       sync.Mutex
}

// NewMotionDetector creates the gate. Out-of-range config fields fall
// back to the defaults; an even blur size is widened to the next odd.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	def := DefaultMotionConfig()
	if cfg.MinChangedPct <= 0 {
		cfg.MinChangedPct = def.MinChangedPct
	}
	if cfg.BlurSize <= 0 {
		cfg.BlurSize = def.BlurSize
	}
	if cfg.BlurSize%2 == 0 {
		cfg.BlurSize++
	}
	if cfg.DiffThreshold <= 0 {
		cfg.DiffThreshold = def.DiffThreshold
	}
	return &MotionDetector{
		cfg:      cfg,
		baseline: gocv.NewMat(),
	}
}

// Detect reports whether the frame moved relative to the previous one,
// along with the changed-pixel percentage. The first frame after
// construction or Reset only seeds the baseline and reports still.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	blurred := m.prepare(frame)
	defer blurred.Close()

	if !m.primed {
		blurred.CopyTo(&m.baseline)
		m.primed = true
		return false, 0
	}

	pct := m.changedPct(blurred)
	blurred.CopyTo(&m.baseline)
	return pct > m.cfg.MinChangedPct, pct
}

// prepare grayscales and blurs a frame for differencing.
func (m *MotionDetector) prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	kernel := image.Point{X: m.cfg.BlurSize, Y: m.cfg.BlurSize}
	gocv.GaussianBlur(gray, &blurred, kernel, 0, 0, gocv.BorderDefault)
	return blurred
}

// changedPct compares a prepared frame against the baseline and
// returns the percentage of pixels whose delta exceeds DiffThreshold.
func (m *MotionDetector) changedPct(blurred gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, m.cfg.DiffThreshold, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100.0
}

// Reset drops the baseline so the next frame reseeds it. The pipeline
// calls this when tracking resumes from pause: the scene has likely
// changed and a stale baseline would misreport the first frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

// Close releases the baseline Mat. The detector stays usable; a later
// Detect reseeds like the first frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropBaseline()
}

func (m *MotionDetector) dropBaseline() {
	if !m.baseline.Empty() {
		m.baseline.Close()
		m.baseline = gocv.NewMat()
	}
	m.primed = false
}

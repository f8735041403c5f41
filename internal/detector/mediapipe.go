package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// idleShutdown is how long the Python service may sit unused before it
// is stopped. It restarts transparently on the next Detect.
const idleShutdown = 30 * time.Second

// MediaPipeDetector runs hand-landmark detection in a Python MediaPipe
// subprocess. Frames go out as length-prefixed JPEG; landmarks come
// back one JSON line per frame. The process starts lazily on first use
// and shuts itself down after idleShutdown without frames.
type MediaPipeDetector struct {
	cfg Config

	mu        sync.Mutex
	proc      *exec.Cmd
	in        io.WriteCloser
	out       *bufio.Reader
	running   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector verifies the service script is installed and
// returns a detector over it. The subprocess itself is not started
// until the first Detect.
func NewMediaPipeDetector(cfg Config) (*MediaPipeDetector, error) {
	if locateAsset(serviceScriptCandidates()) == "" {
		return nil, fmt.Errorf("mediapipe_service.py not found")
	}
	return &MediaPipeDetector{cfg: cfg.withDefaults()}, nil
}

// Detect sends one frame to the service and decodes its landmark
// response.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureRunning(); err != nil {
		return nil, err
	}

	jpeg, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer jpeg.Close()

	if err := d.writeFrame(jpeg.GetBytes()); err != nil {
		return nil, err
	}
	hands, err := d.readHands()
	if err != nil {
		return nil, err
	}

	d.touch()
	return hands, nil
}

// Close stops the Python service.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

// writeFrame sends a big-endian 4-byte length followed by the JPEG
// bytes.
func (d *MediaPipeDetector) writeFrame(jpeg []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))
	if _, err := d.in.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := d.in.Write(jpeg); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readHands decodes one JSON response line from the service.
func (d *MediaPipeDetector) readHands() ([]HandLandmarks, error) {
	line, err := d.out.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp struct {
		Hands []wireHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := make([]HandLandmarks, len(resp.Hands))
	for i, h := range resp.Hands {
		hands[i] = h.landmarks()
	}
	return hands, nil
}

func (d *MediaPipeDetector) ensureRunning() error {
	if d.running {
		return nil
	}

	script := locateAsset(serviceScriptCandidates())
	if script == "" {
		return fmt.Errorf("mediapipe_service.py not found")
	}
	python := locateAsset(venvPythonCandidates())
	if python == "" {
		python = "python3"
	}

	d.proc = exec.Command(python, append([]string{script}, d.cfg.serviceArgs()...)...)
	d.proc.Stderr = os.Stderr

	in, err := d.proc.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	out, err := d.proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := d.proc.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.in = in
	d.out = bufio.NewReader(out)
	d.running = true
	return nil
}

func (d *MediaPipeDetector) stop() error {
	if !d.running {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.in != nil {
		d.in.Close()
	}

	err := d.proc.Wait()
	d.proc = nil
	d.in = nil
	d.out = nil
	d.running = false
	return err
}

// touch pushes the idle shutdown out by one interval.
func (d *MediaPipeDetector) touch() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.stop()
	})
}

// serviceArgs renders the detection tuning as service CLI flags.
func (c Config) serviceArgs() []string {
	return []string{
		"--max-hands", strconv.Itoa(c.MaxHands),
		"--min-confidence", strconv.FormatFloat(c.MinConfidence, 'g', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(c.MinTrackingConf, 'g', -1, 64),
	}
}

// serviceScriptCandidates lists where the Python service may live:
// next to the working directory during development, next to the
// binary, or under the user install dir.
func serviceScriptCandidates() []string {
	return assetCandidates("scripts/mediapipe_service.py")
}

// venvPythonCandidates lists where a bundled interpreter may live. An
// empty result falls back to the system python3.
func venvPythonCandidates() []string {
	return append(assetCandidates("venv/bin/python"), "../../venv/bin/python")
}

func assetCandidates(rel string) []string {
	candidates := []string{rel, filepath.Join("..", rel)}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), rel))
	}
	return append(candidates, filepath.Join(os.Getenv("HOME"), ".gestdj", rel))
}

// locateAsset returns the first candidate that exists, as an absolute
// path when possible.
func locateAsset(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// wireHand is the per-hand JSON shape emitted by the service.
type wireHand struct {
	Points     []wirePoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h wireHand) landmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{X: h.Points[i].X, Y: h.Points[i].Y, Z: h.Points[i].Z}
	}
	return lm
}

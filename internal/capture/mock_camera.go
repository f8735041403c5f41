package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrames is returned when a non-looping mock runs out of frames,
// or was given none.
var ErrNoFrames = errors.New("no frames available")

// MockCamera feeds a fixed frame sequence to the pipeline, so tests
// can drive synthesized gesture scenes without a physical device. A
// looping mock replays the sequence forever, which is how the tests
// hold a pose across many pipeline steps.
type MockCamera struct {
	mu   sync.Mutex
	src  []*gocv.Mat
	next int
	loop bool
	open bool
	fps  int
}

// NewMockCamera creates a mock over the given frames.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{src: frames, loop: loop, fps: DefaultFPS}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame in the sequence, so the
// pipeline can Close it without touching the source.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if len(c.src) == 0 {
		return nil, ErrNoFrames
	}
	if c.next >= len(c.src) {
		if !c.loop {
			return nil, ErrNoFrames
		}
		c.next = 0
	}

	frame := c.src[c.next].Clone()
	c.next++
	return &frame, nil
}

// SetFPS sets the rate the mock reports to the pipeline; tests use a
// high value to run many steps quickly.
func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps > 0 {
		c.fps = fps
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetFrames swaps the frame sequence and rewinds playback.
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.src = frames
	c.next = 0
}

// Rewind restarts playback from the first frame.
func (c *MockCamera) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
}

package detector

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestDistance(t *testing.T) {
	a := Point3D{X: 1.0, Y: 2.0, Z: 5.0}
	b := Point3D{X: 4.0, Y: 6.0, Z: -3.0}

	// Depth must not contribute.
	if d := Distance(a, b); math.Abs(d-5.0) > epsilon {
		t.Errorf("expected distance 5.0, got %f", d)
	}
}

func TestHandLandmarks_Scaled(t *testing.T) {
	hand := HandLandmarks{Handedness: "Left", Score: 0.9}
	hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.5, Z: 0.1}
	hand.Points[IndexTip] = Point3D{X: 0.25, Y: 0.75, Z: 0.2}

	scaled := hand.Scaled(1280, 720)

	if scaled.Handedness != "Left" || scaled.Score != 0.9 {
		t.Errorf("handedness/score not preserved: %+v", scaled)
	}
	if scaled.Points[Wrist].X != 640 || scaled.Points[Wrist].Y != 360 {
		t.Errorf("wrist not scaled to pixels: %+v", scaled.Points[Wrist])
	}
	if scaled.Points[IndexTip].X != 320 || scaled.Points[IndexTip].Y != 540 {
		t.Errorf("index tip not scaled to pixels: %+v", scaled.Points[IndexTip])
	}
	if scaled.Points[IndexTip].Z != 0.2 {
		t.Errorf("depth should pass through unchanged, got %f", scaled.Points[IndexTip].Z)
	}
	// Original must be untouched.
	if hand.Points[Wrist].X != 0.5 {
		t.Error("Scaled mutated the receiver")
	}
}

func TestHandLandmarks_PalmScale(t *testing.T) {
	hand := HandLandmarks{}
	hand.Points[Wrist] = Point3D{X: 0.5, Y: 0.5}
	hand.Points[IndexMCP] = Point3D{X: 0.5, Y: 0.4}

	if s := hand.PalmScale(); math.Abs(s-0.1) > epsilon {
		t.Errorf("expected palm scale 0.1, got %f", s)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()

		mock.SetHands([]HandLandmarks{
			PointerHand("Left", 0),
			ThumbsUpHand("Right"),
		})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{MinConfidence: 0.8}.withDefaults()
	if c.MaxHands != 2 {
		t.Errorf("max hands = %d, want default 2", c.MaxHands)
	}
	if c.MinConfidence != 0.8 {
		t.Errorf("set field overwritten: min confidence = %v", c.MinConfidence)
	}
	if c.MinTrackingConf != 0.5 {
		t.Errorf("min tracking conf = %v, want default 0.5", c.MinTrackingConf)
	}
}

func TestConfig_ServiceArgs(t *testing.T) {
	got := Config{MaxHands: 2, MinConfidence: 0.5, MinTrackingConf: 0.7}.serviceArgs()
	want := []string{
		"--max-hands", "2",
		"--min-confidence", "0.5",
		"--min-tracking-confidence", "0.7",
	}
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPoseFixtures(t *testing.T) {
	t.Run("pointer tip follows the requested angle", func(t *testing.T) {
		hand := PointerHand("Left", 90).Scaled(FixtureFrameWidth, FixtureFrameHeight)

		// +90 degrees points toward the left edge of the frame.
		tip := hand.Points[IndexTip]
		wrist := hand.Points[Wrist]
		if tip.X >= wrist.X {
			t.Errorf("tip should be left of wrist: tip=%f wrist=%f", tip.X, wrist.X)
		}
		if math.Abs(tip.Y-wrist.Y) > 1 {
			t.Errorf("horizontal pointer should keep tip at wrist height, dy=%f", tip.Y-wrist.Y)
		}
	})

	t.Run("thumbs up climbs strictly and stays outside", func(t *testing.T) {
		for _, handedness := range []string{"Left", "Right"} {
			hand := ThumbsUpHand(handedness)
			for i := Wrist; i < ThumbTip; i++ {
				if hand.Points[i+1].Y >= hand.Points[i].Y {
					t.Errorf("%s: thumb chain not strictly rising at joint %d", handedness, i)
				}
			}
		}
	})

	t.Run("pinch tips stay within threshold distance", func(t *testing.T) {
		hand := PinchHand("Right", 300).Scaled(FixtureFrameWidth, FixtureFrameHeight)
		d := Distance(hand.Points[ThumbTip], hand.Points[IndexTip])
		if d >= 40 {
			t.Errorf("pinch tips %0.1fpx apart, want < 40px", d)
		}
		midY := (hand.Points[ThumbTip].Y + hand.Points[IndexTip].Y) / 2
		if math.Abs(midY-300) > epsilon {
			t.Errorf("pinch midpoint Y = %f, want 300", midY)
		}
	})
}

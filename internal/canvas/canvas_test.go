package canvas

import (
	"image"
	"image/color"
	"testing"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/health"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

func TestGenerateSizeRespectsMinimum(t *testing.T) {
	rng := sample.New(1)
	for i := 0; i < 50; i++ {
		w, h := GenerateSize(200, 50, 10, 12, rng)
		if w < 220 || h < 70 {
			t.Fatalf("canvas %dx%d smaller than padded text 220x70", w, h)
		}
		if float64(w)*float64(h) > 12e6 {
			t.Fatalf("canvas %dx%d exceeds the megapixel cap", w, h)
		}
	}
}

func TestGenerateSizeCapsMultiplier(t *testing.T) {
	rng := sample.New(2)
	for i := 0; i < 50; i++ {
		w, h := GenerateSize(100, 100, 0, 1000, rng)
		if w > 500 || h > 500 {
			t.Fatalf("multiplier should cap at 5x: got %dx%d", w, h)
		}
	}
}

func TestGenerateSizeTinyCap(t *testing.T) {
	// Cap below the padded minimum: the minimum still wins.
	w, h := GenerateSize(1000, 1000, 10, 0.1, sample.New(3))
	if w < 1020 || h < 1020 {
		t.Errorf("padded minimum must hold even over the cap: %dx%d", w, h)
	}
}

func TestPlaceCenter(t *testing.T) {
	x, y, err := Place(100, 80, 40, 20, PlaceCenter, sample.New(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 30 || y != 30 {
		t.Errorf("center placement = (%d,%d), want (30,30)", x, y)
	}
}

func TestPlaceRandomStrategiesStayInside(t *testing.T) {
	rng := sample.New(4)
	for _, strategy := range []string{PlaceUniformRandom, PlaceWeightedRandom} {
		for i := 0; i < 100; i++ {
			x, y, err := Place(100, 80, 40, 20, strategy, rng)
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", strategy, err)
			}
			if x < 0 || x > 60 || y < 0 || y > 60 {
				t.Fatalf("%s placed text outside the canvas: (%d,%d)", strategy, x, y)
			}
		}
	}
}

func TestPlaceTextLargerThanCanvas(t *testing.T) {
	x, y, err := Place(30, 30, 50, 50, PlaceUniformRandom, sample.New(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x != 0 || y != 0 {
		t.Errorf("oversized text should pin to origin, got (%d,%d)", x, y)
	}
}

func TestPlaceUnknownStrategy(t *testing.T) {
	if _, _, err := Place(10, 10, 5, 5, "gravity", sample.New(1)); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestSolid(t *testing.T) {
	img := Solid(10, 10, models.RGB{R: 5, G: 6, B: 7})
	px := img.NRGBAAt(4, 4)
	if px.R != 5 || px.G != 6 || px.B != 7 || px.A != 255 {
		t.Errorf("solid fill = %+v", px)
	}
}

func TestComposeRebasesBoxes(t *testing.T) {
	cv := Solid(100, 100, models.RGB{R: 255, G: 255, B: 255})
	text := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	text.SetNRGBA(5, 5, color.NRGBA{A: 255})

	boxes := []models.CharacterBox{{Char: "a", X0: 2, Y0: 2, X1: 8, Y1: 8}}
	out := Compose(cv, text, 30, 40, boxes)
	if out[0].X0 != 32 || out[0].Y0 != 42 || out[0].X1 != 38 || out[0].Y1 != 48 {
		t.Errorf("box not rebased: %+v", out[0])
	}
	if out[0].Truncated {
		t.Error("fully inside box must not be truncated")
	}
	if cv.NRGBAAt(35, 45).A != 255 {
		t.Error("text pixel missing from canvas")
	}
}

func TestComposeTruncatesAtEdge(t *testing.T) {
	cv := Solid(50, 50, models.RGB{})
	text := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	boxes := []models.CharacterBox{{Char: "a", X0: 10, Y0: 0, X1: 20, Y1: 10}}

	out := Compose(cv, text, 45, 45, boxes)
	if !out[0].Truncated {
		t.Errorf("box crossing the edge must be truncated: %+v", out[0])
	}
	if out[0].X1 > 50 || out[0].Y1 > 50 {
		t.Errorf("truncated box still escapes the canvas: %+v", out[0])
	}
}

func newTestManager(t *testing.T, bgW, bgH int) (*Manager, *health.Tracker) {
	t.Helper()
	tracker := health.NewTracker()
	m := NewManager([]string{"bg.png"}, tracker, WithOpener(func(string) (image.Image, error) {
		img := image.NewNRGBA(image.Rect(0, 0, bgW, bgH))
		for y := 0; y < bgH; y++ {
			for x := 0; x < bgW; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: 100, A: 255})
			}
		}
		return img, nil
	}))
	return m, tracker
}

func TestRegionCropsWithoutResize(t *testing.T) {
	m, tracker := newTestManager(t, 200, 150)
	region, err := m.Region("bg.png", 80, 60, 40, 30, sample.New(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if region.Bounds().Dx() != 80 || region.Bounds().Dy() != 60 {
		t.Errorf("region = %v, want 80x60", region.Bounds())
	}
	if tracker.Score("bg.png") <= 100-1 {
		t.Errorf("successful crop should reward the background, score %v", tracker.Score("bg.png"))
	}
}

func TestRegionModeratePenalty(t *testing.T) {
	m, tracker := newTestManager(t, 70, 50)
	_, err := m.Region("bg.png", 80, 60, 40, 30, sample.New(1))
	if !apperrors.IsKind(err, apperrors.KindBackgroundTooSmall) {
		t.Fatalf("expected background_too_small, got %v", err)
	}
	if got := tracker.Score("bg.png"); got != 90 {
		t.Errorf("moderate failure should cost 10 points, score %v", got)
	}
}

func TestRegionSeverePenalty(t *testing.T) {
	m, tracker := newTestManager(t, 30, 20)
	_, err := m.Region("bg.png", 80, 60, 40, 30, sample.New(1))
	if !apperrors.IsKind(err, apperrors.KindBackgroundTooSmall) {
		t.Fatalf("expected background_too_small, got %v", err)
	}
	if got := tracker.Score("bg.png"); got != 80 {
		t.Errorf("severe failure should cost 20 points, score %v", got)
	}
}

func TestPickEmptyPool(t *testing.T) {
	m := NewManager(nil, health.NewTracker())
	if _, err := m.Pick(nil, 0.5); !apperrors.IsKind(err, apperrors.KindNoHealthyResource) {
		t.Errorf("expected no_healthy_resource, got %v", err)
	}
}

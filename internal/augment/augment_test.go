package augment

import (
	"image"
	"image/color"
	"testing"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// blockSurface draws an opaque block and returns the surface plus the box
// that exactly covers the block's ink.
func blockSurface(w, h, bx0, by0, bx1, by1 int) (*image.NRGBA, models.CharacterBox) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := by0; y < by1; y++ {
		for x := bx0; x < bx1; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	return img, models.CharacterBox{Char: "x", X0: bx0, Y0: by0, X1: bx1, Y1: by1}
}

func TestRotateSwapsAxes(t *testing.T) {
	img, box := blockSurface(60, 30, 40, 10, 50, 20)
	out, boxes := Rotate(img, []models.CharacterBox{box}, 90)

	ob := out.Bounds()
	if ob.Dx() != 30 || ob.Dy() != 60 {
		t.Fatalf("90 degree rotation should swap dimensions, got %dx%d", ob.Dx(), ob.Dy())
	}
	if len(boxes) != 1 || !boxes[0].Valid() {
		t.Fatalf("box lost: %+v", boxes)
	}
	// The block sat right of center, so counter-clockwise it moves above
	// the center.
	cy := float64(boxes[0].Y0+boxes[0].Y1) / 2
	if cy >= 30 {
		t.Errorf("rotated block should sit in the top half, center y = %.0f", cy)
	}
}

func TestRotateBoxTracksInk(t *testing.T) {
	img, box := blockSurface(50, 50, 20, 20, 30, 30)
	out, boxes := Rotate(img, []models.CharacterBox{box}, 30)

	// Every opaque pixel must fall inside the rotated box.
	bb := boxes[0]
	ob := out.Bounds()
	for y := ob.Min.Y; y < ob.Max.Y; y++ {
		for x := ob.Min.X; x < ob.Max.X; x++ {
			if out.NRGBAAt(x, y).A > 128 {
				if x < bb.X0 || x >= bb.X1 || y < bb.Y0 || y >= bb.Y1 {
					t.Fatalf("ink at (%d,%d) escapes box %+v", x, y, bb)
				}
			}
		}
	}
}

func TestPerspectiveZeroMagnitudeIsIdentity(t *testing.T) {
	img, box := blockSurface(40, 40, 10, 10, 30, 30)
	out, boxes := Perspective(img, []models.CharacterBox{box}, 0, sample.New(1))
	for i := range img.Pix {
		if img.Pix[i] != out.Pix[i] {
			t.Fatal("zero magnitude must not move pixels")
		}
	}
	if boxes[0].X0 != 10 || boxes[0].X1 != 30 {
		t.Errorf("box moved under identity: %+v", boxes[0])
	}
}

func TestPerspectiveDeterministic(t *testing.T) {
	img, box := blockSurface(40, 40, 10, 10, 30, 30)
	o1, b1 := Perspective(img, []models.CharacterBox{box}, 0.2, sample.New(9))
	o2, b2 := Perspective(img, []models.CharacterBox{box}, 0.2, sample.New(9))
	if b1[0] != b2[0] {
		t.Errorf("boxes differ across identical seeds: %+v vs %+v", b1[0], b2[0])
	}
	for i := range o1.Pix {
		if o1.Pix[i] != o2.Pix[i] {
			t.Fatal("pixels differ across identical seeds")
		}
	}
}

func TestPerspectiveBoxesStayInBounds(t *testing.T) {
	img, box := blockSurface(40, 40, 2, 2, 38, 38)
	_, boxes := Perspective(img, []models.CharacterBox{box}, 0.4, sample.New(3))
	bb := boxes[0]
	if bb.Occluded {
		return
	}
	if bb.X0 < 0 || bb.Y0 < 0 || bb.X1 > 40 || bb.Y1 > 40 {
		t.Errorf("box escapes the surface: %+v", bb)
	}
}

func TestOpticalIdentityKeepsInkBox(t *testing.T) {
	img, box := blockSurface(40, 40, 12, 14, 26, 28)
	_, boxes := Optical(img, []models.CharacterBox{box}, 0)
	bb := boxes[0]
	if bb.X0 != 12 || bb.Y0 != 14 || bb.X1 != 26 || bb.Y1 != 28 {
		t.Errorf("identity warp changed the ink box: %+v", bb)
	}
	if bb.Occluded || bb.Truncated {
		t.Errorf("identity warp should not flag the box: %+v", bb)
	}
}

func TestElasticBoxFollowsInk(t *testing.T) {
	img, box := blockSurface(60, 60, 20, 20, 40, 40)
	out, boxes := Elastic(img, []models.CharacterBox{box}, 3, 4, sample.New(5))
	bb := boxes[0]
	if bb.Occluded {
		t.Fatal("mild warp should not occlude the glyph")
	}
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			if out.NRGBAAt(x, y).A > 200 {
				if x < bb.X0 || x >= bb.X1 || y < bb.Y0 || y >= bb.Y1 {
					t.Fatalf("ink at (%d,%d) escapes box %+v", x, y, bb)
				}
			}
		}
	}
}

func TestWarpOccludesEmptyBox(t *testing.T) {
	img, box := blockSurface(40, 40, 10, 10, 20, 20)
	ghost := models.CharacterBox{Char: " ", X0: 30, Y0: 30, X1: 38, Y1: 38}
	_, boxes := Elastic(img, []models.CharacterBox{box, ghost}, 2, 3, sample.New(5))
	if !boxes[1].Occluded {
		t.Errorf("box with no ink should be occluded: %+v", boxes[1])
	}
	if boxes[1].Char != " " {
		t.Errorf("occluded box must keep its character: %+v", boxes[1])
	}
}

func TestGridDeterministicAndValid(t *testing.T) {
	img, box := blockSurface(60, 60, 20, 20, 40, 40)
	o1, b1 := Grid(img, []models.CharacterBox{box}, 4, 0.2, sample.New(13))
	o2, b2 := Grid(img, []models.CharacterBox{box}, 4, 0.2, sample.New(13))
	if b1[0] != b2[0] {
		t.Errorf("boxes differ across identical seeds")
	}
	for i := range o1.Pix {
		if o1.Pix[i] != o2.Pix[i] {
			t.Fatal("pixels differ across identical seeds")
		}
	}
	if !b1[0].Occluded && !b1[0].Valid() {
		t.Errorf("box should stay valid: %+v", b1[0])
	}
}

func TestApplyOrderAndManifest(t *testing.T) {
	img, box := blockSurface(40, 40, 10, 10, 30, 30)
	p := &models.Plan{
		RotationAngle:        10,
		PerspectiveMagnitude: 0.1,
		ElasticAlpha:         2,
		ElasticSigma:         3,
		GridSteps:            4,
		GridLimit:            0.1,
		OpticalLimit:         0.1,
	}
	_, boxes, applied := Apply(img, []models.CharacterBox{box}, p, sample.New(2))
	want := []string{"rotation", "perspective", "elastic", "grid_distortion", "optical_distortion"}
	if len(applied) != len(want) {
		t.Fatalf("applied = %v", applied)
	}
	for i := range want {
		if applied[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, applied[i], want[i])
		}
	}
	if len(boxes) != 1 {
		t.Fatalf("expected 1 box, got %d", len(boxes))
	}
}

func TestApplyNoopPlan(t *testing.T) {
	img, box := blockSurface(40, 40, 10, 10, 30, 30)
	out, boxes, applied := Apply(img, []models.CharacterBox{box}, &models.Plan{}, sample.New(2))
	if len(applied) != 0 {
		t.Errorf("empty plan should apply nothing: %v", applied)
	}
	if out != img || boxes[0] != box {
		t.Error("empty plan must pass surface and boxes through unchanged")
	}
}

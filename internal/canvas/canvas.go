// Package canvas sizes the output image, places the text surface on it, and
// fills the area behind the text with a solid color or a cropped background
// photo. Backgrounds are cropped, never resized, so their pixel density is
// preserved.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Placement strategies.
const (
	PlaceWeightedRandom = "weighted_random"
	PlaceUniformRandom  = "uniform_random"
	PlaceCenter         = "center"
)

// maxSizeMultiplier caps how much larger than the padded text the canvas may
// grow on each axis.
const maxSizeMultiplier = 5.0

// GenerateSize picks a canvas size for a text surface: at least the text
// plus minPadding on every side, at most maxMegapixels total, with each axis
// scaled by an independent random multiplier.
func GenerateSize(textW, textH, minPadding int, maxMegapixels float64, rng *sample.RNG) (int, int) {
	minW := textW + 2*minPadding
	minH := textH + 2*minPadding
	if minW < 1 {
		minW = 1
	}
	if minH < 1 {
		minH = 1
	}

	maxPixels := maxMegapixels * 1e6
	minArea := float64(minW) * float64(minH)

	maxMult := maxSizeMultiplier
	if minArea > 0 {
		maxMult = math.Min(maxSizeMultiplier, math.Sqrt(maxPixels/minArea))
	}
	if maxMult < 1 {
		maxMult = 1
	}

	w := int(float64(minW) * rng.Uniform(1, maxMult))
	h := int(float64(minH) * rng.Uniform(1, maxMult))
	if w < minW {
		w = minW
	}
	if h < minH {
		h = minH
	}

	// Independent multipliers can still overshoot the pixel cap; shrink
	// proportionally but never below the padded minimum.
	if float64(w)*float64(h) > maxPixels && maxPixels > 0 {
		scale := math.Sqrt(maxPixels / (float64(w) * float64(h)))
		w = int(math.Max(float64(minW), float64(w)*scale))
		h = int(math.Max(float64(minH), float64(h)*scale))
	}
	return w, h
}

// Place picks the top-left corner for the text surface on the canvas.
// weighted_random draws triangularly toward the centered position,
// uniform_random anywhere that fits, center exactly centered.
func Place(canvasW, canvasH, textW, textH int, strategy string, rng *sample.RNG) (int, int, error) {
	maxX := canvasW - textW
	maxY := canvasH - textH
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}

	switch strategy {
	case PlaceCenter:
		return maxX / 2, maxY / 2, nil
	case PlaceUniformRandom:
		return rng.IntBetween(0, maxX), rng.IntBetween(0, maxY), nil
	case PlaceWeightedRandom:
		x := 0
		if maxX > 0 {
			x = int(rng.Triangular(0, float64(maxX), float64(maxX)/2))
		}
		y := 0
		if maxY > 0 {
			y = int(rng.Triangular(0, float64(maxY), float64(maxY)/2))
		}
		return x, y, nil
	}
	return 0, 0, apperrors.NewConfigError("unknown placement strategy "+strategy, nil)
}

// Solid returns a canvas filled with one color.
func Solid(w, h int, c models.RGB) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	draw.Draw(img, img.Bounds(), fill, image.Point{}, draw.Src)
	return img
}

// Compose draws the text surface onto the canvas at (x, y) and rebases the
// character boxes into the canvas frame. Boxes that cross the canvas edge
// are clipped and flagged Truncated.
func Compose(canvas *image.NRGBA, text image.Image, x, y int, boxes []models.CharacterBox) []models.CharacterBox {
	tb := text.Bounds()
	draw.Draw(canvas, image.Rect(x, y, x+tb.Dx(), y+tb.Dy()), text, tb.Min, draw.Over)

	cb := canvas.Bounds()
	rebased := make([]models.CharacterBox, len(boxes))
	for i, bb := range boxes {
		moved := bb.Offset(x, y)
		if moved.Occluded {
			rebased[i] = moved
			continue
		}
		rebased[i] = clipToCanvas(moved, cb.Dx(), cb.Dy())
	}
	return rebased
}

func clipToCanvas(bb models.CharacterBox, w, h int) models.CharacterBox {
	cx0, cy0, cx1, cy1 := bb.X0, bb.Y0, bb.X1, bb.Y1
	if cx0 < 0 {
		cx0 = 0
	}
	if cy0 < 0 {
		cy0 = 0
	}
	if cx1 > w {
		cx1 = w
	}
	if cy1 > h {
		cy1 = h
	}
	if cx1 <= cx0 || cy1 <= cy0 {
		bb.Occluded = true
		return bb
	}
	if cx0 != bb.X0 || cy0 != bb.Y0 || cx1 != bb.X1 || cy1 != bb.Y1 {
		bb.Truncated = true
	}
	bb.X0, bb.Y0, bb.X1, bb.Y1 = cx0, cy0, cx1, cy1
	return bb
}

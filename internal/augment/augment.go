// Package augment applies geometric distortions to composed text surfaces
// and keeps the character boxes aligned with the moved pixels. Affine-like
// transforms (rotation, perspective) map box corners analytically; field
// warps (elastic, grid, optical) recompute boxes by remapping each glyph's
// ink mask through the same displacement field as the pixels.
package augment

import (
	"image"
	"image/color"
	"math"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Apply runs the augmentations a plan enables, in canonical order, and
// returns the transformed surface, the updated boxes, and the names of the
// augmentations that ran.
func Apply(img *image.NRGBA, boxes []models.CharacterBox, p *models.Plan, rng *sample.RNG) (*image.NRGBA, []models.CharacterBox, []string) {
	var applied []string

	if p.RotationAngle != 0 {
		img, boxes = Rotate(img, boxes, p.RotationAngle)
		applied = append(applied, "rotation")
	}
	if p.PerspectiveMagnitude > 0 {
		img, boxes = Perspective(img, boxes, p.PerspectiveMagnitude, rng)
		applied = append(applied, "perspective")
	}
	if p.ElasticAlpha > 0 && p.ElasticSigma > 0 {
		img, boxes = Elastic(img, boxes, p.ElasticAlpha, p.ElasticSigma, rng)
		applied = append(applied, "elastic")
	}
	if p.GridSteps > 1 && p.GridLimit > 0 {
		img, boxes = Grid(img, boxes, p.GridSteps, p.GridLimit, rng)
		applied = append(applied, "grid_distortion")
	}
	if p.OpticalLimit != 0 {
		img, boxes = Optical(img, boxes, p.OpticalLimit)
		applied = append(applied, "optical_distortion")
	}
	return img, boxes, applied
}

// invMap is an inverse mapping: for a destination pixel it names the source
// position the pixel is pulled from.
type invMap func(x, y float64) (sx, sy float64)

// warp resamples the surface through the inverse mapping with bilinear
// interpolation, then recomputes every box from its remapped ink mask.
// Boxes whose ink vanished are flagged Occluded and keep their old extent;
// boxes reaching outside the surface are clipped and flagged Truncated.
func warp(img *image.NRGBA, boxes []models.CharacterBox, fn invMap) (*image.NRGBA, []models.CharacterBox) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	// Track the new extent of each box while resampling: a destination
	// pixel belongs to box i when its source position lands on ink inside
	// the old box.
	type extent struct {
		x0, y0, x1, y1 int
		seen           bool
	}
	extents := make([]extent, len(boxes))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := fn(float64(x), float64(y))
			px := bilinear(img, sx, sy)
			out.SetNRGBA(x, y, px)
			if px.A == 0 {
				continue
			}
			isx, isy := int(math.Round(sx)), int(math.Round(sy))
			for i := range boxes {
				bb := &boxes[i]
				if isx < bb.X0 || isx >= bb.X1 || isy < bb.Y0 || isy >= bb.Y1 {
					continue
				}
				e := &extents[i]
				if !e.seen {
					*e = extent{x0: x, y0: y, x1: x + 1, y1: y + 1, seen: true}
					continue
				}
				if x < e.x0 {
					e.x0 = x
				}
				if y < e.y0 {
					e.y0 = y
				}
				if x+1 > e.x1 {
					e.x1 = x + 1
				}
				if y+1 > e.y1 {
					e.y1 = y + 1
				}
			}
		}
	}

	updated := make([]models.CharacterBox, len(boxes))
	for i, bb := range boxes {
		e := extents[i]
		if !e.seen {
			bb.Occluded = true
			updated[i] = bb
			continue
		}
		bb.X0, bb.Y0, bb.X1, bb.Y1 = e.x0, e.y0, e.x1, e.y1
		updated[i] = clipBox(bb, w, h)
	}
	return out, updated
}

// clipBox clamps a box to the surface and marks it Truncated when clamping
// cut anything off. A box fully outside keeps one clamped pixel of extent
// and is additionally flagged Occluded.
func clipBox(bb models.CharacterBox, w, h int) models.CharacterBox {
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

// bilinear samples the surface at a fractional position; anything outside
// is transparent.
func bilinear(img *image.NRGBA, x, y float64) color.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if x < -1 || y < -1 || x > float64(w) || y > float64(h) {
		return color.NRGBA{}
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	at := func(ix, iy int) color.NRGBA {
		if ix < 0 || iy < 0 || ix >= w || iy >= h {
			return color.NRGBA{}
		}
		return img.NRGBAAt(b.Min.X+ix, b.Min.Y+iy)
	}
	p00 := at(x0, y0)
	p10 := at(x0+1, y0)
	p01 := at(x0, y0+1)
	p11 := at(x0+1, y0+1)

	mix := func(a, b, c, d uint8) uint8 {
		top := float64(a)*(1-fx) + float64(b)*fx
		bot := float64(c)*(1-fx) + float64(d)*fx
		v := top*(1-fy) + bot*fy
		return uint8(v + 0.5)
	}
	return color.NRGBA{
		R: mix(p00.R, p10.R, p01.R, p11.R),
		G: mix(p00.G, p10.G, p01.G, p11.G),
		B: mix(p00.B, p10.B, p01.B, p11.B),
		A: mix(p00.A, p10.A, p01.A, p11.A),
	}
}

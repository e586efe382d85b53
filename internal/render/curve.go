package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"go-ocr-synth/pkg/models"
)

// shapeArc bends the baseline along a circular arc. The radius is derived
// from intensity so that full intensity bends the whole string over half the
// circle chord; the radius never drops below the text length, which keeps
// adjacent glyphs from colliding.
func shapeArc(face font.Face, glyphs []glyphInfo, opts Options) (*image.RGBA, []models.CharacterBox, error) {
	total := 0.0
	for _, g := range glyphs {
		total += g.advance
	}
	radius := math.Max(total/(2*opts.CurveIntensity), total)

	fn := func(s float64) (deflect, angle float64) {
		theta := s / radius
		deflect = radius * (1 - math.Cos(theta))
		angle = theta
		if opts.Concave {
			deflect = -deflect
			angle = -angle
		}
		return deflect, angle
	}
	return shapeCurved(face, glyphs, opts, fn)
}

// shapeSine rides the baseline on a sine wave. Amplitude scales with the
// glyph cell height and intensity; the frequency defaults to 1+intensity
// cycles across the string when the spec leaves it unset.
func shapeSine(face font.Face, glyphs []glyphInfo, opts Options) (*image.RGBA, []models.CharacterBox, error) {
	total := 0.0
	for _, g := range glyphs {
		total += g.advance
	}
	m := face.Metrics()
	cell := float64(m.Ascent.Ceil() + m.Descent.Ceil())

	amp := cell * opts.CurveIntensity * 1.5
	if opts.Concave {
		amp = -amp
	}
	freq := opts.SineFrequency
	if freq <= 0 {
		freq = 1 + opts.CurveIntensity
	}
	k := 2 * math.Pi * freq / total

	fn := func(s float64) (deflect, angle float64) {
		deflect = amp * math.Sin(k*s+opts.SinePhase)
		angle = math.Atan(amp * k * math.Cos(k*s+opts.SinePhase))
		return deflect, angle
	}
	return shapeCurved(face, glyphs, opts, fn)
}

// shapeCurved places each glyph on its own rotated tile along the curve
// described by fn: fn maps the arc-length position of a glyph center to a
// deflection off the straight baseline and a tangent angle. Bounding boxes
// are the axis-aligned hulls of the rotated ink boxes.
func shapeCurved(face font.Face, glyphs []glyphInfo, opts Options, fn func(s float64) (float64, float64)) (*image.RGBA, []models.CharacterBox, error) {
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	cell := float64(ascent + descent)
	vertical := isVertical(opts.Direction)

	total := 0.0
	centers := make([]float64, len(glyphs))
	deflects := make([]float64, len(glyphs))
	angles := make([]float64, len(glyphs))
	for i, g := range glyphs {
		centers[i] = total + g.advance/2
		d, a := fn(centers[i])
		// Mirrored writing axes need the mirrored tangent, or the
		// glyphs tilt against the curve they sit on.
		if opts.Direction == models.DirRightToLeft || opts.Direction == models.DirBottomToTop {
			a = -a
		}
		deflects[i] = d
		angles[i] = a
		total += g.advance
	}

	dmin, dmax := 0.0, 0.0
	for _, d := range deflects {
		dmin = math.Min(dmin, d)
		dmax = math.Max(dmax, d)
	}

	// Rotated tiles can stick out by up to half a glyph diagonal.
	maxHalf := 0.0
	for _, g := range glyphs {
		w := f26_6(g.ink.Max.X - g.ink.Min.X)
		h := f26_6(g.ink.Max.Y - g.ink.Min.Y)
		maxHalf = math.Max(maxHalf, math.Hypot(w, h)/2)
	}
	pad := surfaceMargin + int(math.Ceil(maxHalf))

	var dst *image.RGBA
	var baseAxis float64 // baseline (or column center) at zero deflection
	if vertical {
		width := int(math.Ceil(cell+dmax-dmin)) + 2*pad
		height := int(total) + 2*surfaceMargin
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		baseAxis = float64(pad) + cell/2 - dmin
	} else {
		width := int(total) + 2*surfaceMargin
		height := int(math.Ceil(cell+dmax-dmin)) + 2*pad
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		baseAxis = float64(pad+ascent) - dmin
	}
	bounds := dst.Bounds()

	boxes := make([]models.CharacterBox, 0, len(glyphs))
	for i, g := range glyphs {
		// Position of the glyph center along the writing axis.
		var along float64
		switch opts.Direction {
		case models.DirRightToLeft:
			along = float64(bounds.Dx()-surfaceMargin) - centers[i]
		case models.DirBottomToTop:
			along = float64(bounds.Dy()-surfaceMargin) - centers[i]
		default:
			along = surfaceMargin + centers[i]
		}

		inkW := f26_6(g.ink.Max.X - g.ink.Min.X)
		inkH := f26_6(g.ink.Max.Y - g.ink.Min.Y)
		blank := inkW <= 0 || inkH <= 0

		var cx, cy float64
		if vertical {
			cx = baseAxis + deflects[i]
			cy = along
		} else {
			// Keep the glyph's vertical offset from the baseline so
			// descenders still hang below the curve.
			cx = along
			cy = baseAxis + deflects[i] + f26_6(g.ink.Min.Y+g.ink.Max.Y)/2
		}

		if blank {
			// Whitespace: emit its advance cell on the curve, no ink.
			w, h := g.advance, cell
			if vertical {
				w, h = cell, g.advance
			}
			boxes = append(boxes, hullBox(g.ch, cx, cy, w, h, 0))
			continue
		}

		tile := glyphTile(face, g)
		rot := imaging.Rotate(tile, -angles[i]*180/math.Pi, color.Transparent)
		rb := rot.Bounds()
		x0 := int(math.Round(cx)) - rb.Dx()/2
		y0 := int(math.Round(cy)) - rb.Dy()/2
		draw.Draw(dst, image.Rect(x0, y0, x0+rb.Dx(), y0+rb.Dy()), rot, rb.Min, draw.Over)

		boxes = append(boxes, hullBox(g.ch, cx, cy, inkW, inkH, angles[i]))
	}
	return dst, boxes, nil
}

// glyphTile rasterizes a single glyph's ink box onto a tight transparent
// tile for rotation.
func glyphTile(face font.Face, g glyphInfo) *image.RGBA {
	w := (g.ink.Max.X - g.ink.Min.X).Ceil()
	h := (g.ink.Max.Y - g.ink.Min.Y).Ceil()
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	tile := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(color.NRGBA{R: g.color.R, G: g.color.G, B: g.color.B, A: 255}),
		Face: face,
		Dot: fixed.Point26_6{
			X: -g.ink.Min.X,
			Y: -g.ink.Min.Y,
		},
	}
	d.DrawString(string(g.ch))
	return tile
}

// hullBox returns the axis-aligned hull of a w×h box centered at (cx, cy)
// and rotated by angle radians.
func hullBox(ch rune, cx, cy, w, h, angle float64) models.CharacterBox {
	cos := math.Abs(math.Cos(angle))
	sin := math.Abs(math.Sin(angle))
	hw := w/2*cos + h/2*sin
	hh := w/2*sin + h/2*cos
	return models.CharacterBox{
		Char: string(ch),
		X0:   int(math.Floor(cx - hw)),
		Y0:   int(math.Floor(cy - hh)),
		X1:   int(math.Ceil(cx + hw)),
		Y1:   int(math.Ceil(cy + hh)),
	}
}

package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

const (
	// surfaceMargin pads every text surface so overhanging glyphs and
	// curve deflections stay inside it.
	surfaceMargin = 10
	// overlapK caps spacing reduction at 80% so glyphs never merge
	// completely.
	overlapK = 0.8
)

// Options carries the shaping parameters for one string.
type Options struct {
	Direction      string
	CurveType      string
	CurveIntensity float64
	Concave        bool
	SineFrequency  float64
	SinePhase      float64
	Overlap        float64
	// Colors holds one fill color per visual character; nil renders
	// black.
	Colors []models.RGB
}

type glyphInfo struct {
	ch      rune
	advance float64 // adjusted advance along the writing axis
	ink     fixed.Rectangle26_6
	color   models.RGB
}

// Shape renders one logical string in one direction with optional curvature
// and overlap, returning a transparent RGBA surface and one CharacterBox per
// visual character. LineIndex on the boxes is 0; multi-line composition
// assigns real indices.
func Shape(face font.Face, text string, opts Options, rng *sample.RNG) (*image.RGBA, []models.CharacterBox, error) {
	visual := VisualOrder(text, opts.Direction)
	runes := []rune(visual)
	if len(runes) == 0 {
		return emptySurface(), []models.CharacterBox{}, nil
	}

	glyphs, err := measure(face, runes, opts, rng)
	if err != nil {
		return nil, nil, err
	}

	switch opts.CurveType {
	case models.CurveArc:
		if opts.CurveIntensity > 0 {
			return shapeArc(face, glyphs, opts)
		}
	case models.CurveSine:
		if opts.CurveIntensity > 0 {
			return shapeSine(face, glyphs, opts)
		}
	}
	return shapeStraight(face, glyphs, opts)
}

func emptySurface() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

// measure resolves advance, ink box, and color for every visual character,
// applying overlap spacing with a small deterministic jitter.
func measure(face font.Face, runes []rune, opts Options, rng *sample.RNG) ([]glyphInfo, error) {
	vertical := isVertical(opts.Direction)
	m := face.Metrics()
	cell := float64(m.Ascent.Ceil() + m.Descent.Ceil())

	glyphs := make([]glyphInfo, len(runes))
	for i, ch := range runes {
		bounds, adv, ok := face.GlyphBounds(ch)
		if !ok {
			return nil, apperrors.NewGlyphMissError("", ch)
		}

		base := f26_6(adv)
		if vertical {
			base = cell
		}
		adjusted := base * (1 - overlapK*opts.Overlap)
		if opts.Overlap > 0 {
			adjusted += rng.Uniform(-0.1, 0.1) * opts.Overlap * base
		}
		if adjusted < 1 {
			adjusted = 1
		}

		g := glyphInfo{ch: ch, advance: adjusted, ink: bounds}
		if opts.Colors != nil && i < len(opts.Colors) {
			g.color = opts.Colors[i]
		}
		glyphs[i] = g
	}
	return glyphs, nil
}

// shapeStraight renders along a straight baseline for all four directions.
func shapeStraight(face font.Face, glyphs []glyphInfo, opts Options) (*image.RGBA, []models.CharacterBox, error) {
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()

	total := 0.0
	for _, g := range glyphs {
		total += g.advance
	}

	if isVertical(opts.Direction) {
		return shapeVertical(face, glyphs, opts, total, ascent, descent)
	}

	width := int(total) + 2*surfaceMargin
	height := ascent + descent + 2*surfaceMargin
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	baseY := surfaceMargin + ascent

	boxes := make([]models.CharacterBox, 0, len(glyphs))
	cursor := float64(surfaceMargin)
	rightward := opts.Direction != models.DirRightToLeft
	if !rightward {
		// Mirrored baseline: the first visual glyph sits at the right
		// edge and the pen advances leftward.
		cursor = float64(width-surfaceMargin) - glyphs[0].advance
	}

	for i, g := range glyphs {
		drawGlyph(dst, face, g.ch, cursor, float64(baseY), g.color)
		boxes = append(boxes, inkBoxAt(g, cursor, float64(baseY), ascent, descent))
		if i+1 < len(glyphs) {
			if rightward {
				cursor += g.advance
			} else {
				cursor -= glyphs[i+1].advance
			}
		}
	}
	return dst, boxes, nil
}

func shapeVertical(face font.Face, glyphs []glyphInfo, opts Options, total float64, ascent, descent int) (*image.RGBA, []models.CharacterBox, error) {
	maxInkW := 1
	for _, g := range glyphs {
		if w := (g.ink.Max.X - g.ink.Min.X).Ceil(); w > maxInkW {
			maxInkW = w
		}
	}
	width := maxInkW + 2*surfaceMargin
	height := int(total) + 2*surfaceMargin
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	centerX := float64(width) / 2

	boxes := make([]models.CharacterBox, 0, len(glyphs))
	cursor := float64(surfaceMargin)
	if opts.Direction == models.DirBottomToTop {
		cursor = float64(height-surfaceMargin) - glyphs[0].advance
	}

	for i, g := range glyphs {
		inkW := f26_6(g.ink.Max.X - g.ink.Min.X)
		// Center the ink horizontally; the pen origin compensates for
		// the glyph's own left side bearing.
		penX := centerX - inkW/2 - f26_6(g.ink.Min.X)
		baseY := cursor + float64(ascent)
		drawGlyph(dst, face, g.ch, penX, baseY, g.color)
		boxes = append(boxes, inkBoxAt(g, penX, baseY, ascent, descent))

		if i+1 < len(glyphs) {
			if opts.Direction == models.DirBottomToTop {
				cursor -= glyphs[i+1].advance
			} else {
				cursor += g.advance
			}
		}
	}
	return dst, boxes, nil
}

// drawGlyph rasterizes one character with its pen origin at (penX, baseY).
func drawGlyph(dst *image.RGBA, face font.Face, ch rune, penX, baseY float64, c models.RGB) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(penX), Y: toFixed(baseY)},
	}
	d.DrawString(string(ch))
}

// inkBoxAt converts the engine's ink box to surface coordinates. Characters
// with empty ink (spaces) fall back to their advance cell so every box keeps
// positive area.
func inkBoxAt(g glyphInfo, penX, baseY float64, ascent, descent int) models.CharacterBox {
	x0 := penX + f26_6(g.ink.Min.X)
	x1 := penX + f26_6(g.ink.Max.X)
	y0 := baseY + f26_6(g.ink.Min.Y)
	y1 := baseY + f26_6(g.ink.Max.Y)
	if x1 <= x0 || y1 <= y0 {
		x0 = penX
		x1 = penX + g.advance
		y0 = baseY - float64(ascent)
		y1 = baseY + float64(descent)
	}
	return models.CharacterBox{
		Char: string(g.ch),
		X0:   int(math.Floor(x0)),
		Y0:   int(math.Floor(y0)),
		X1:   int(math.Ceil(x1)),
		Y1:   int(math.Ceil(y1)),
	}
}

func isVertical(direction string) bool {
	return direction == models.DirTopToBottom || direction == models.DirBottomToTop
}

func f26_6(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

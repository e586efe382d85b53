// Package plan turns a scheduled task into a fully concrete Plan: every
// random decision for one image is made here, under an RNG derived from the
// per-image seed, so the executor can replay the image from the Plan alone.
package plan

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"go-ocr-synth/internal/canvas"
	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/layout"
	"go-ocr-synth/internal/render"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Seed derives the per-image seed from the master seed, the image index, and
// the spec name with FNV-1a. Identical inputs give identical seeds on every
// platform.
func Seed(masterSeed uint64, imageIndex int, specName string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], masterSeed)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(imageIndex))
	h.Write(buf[:])
	h.Write([]byte(specName))
	return h.Sum64()
}

// StreamSeed derives an independent named RNG stream from a plan seed. The
// planner and the executor both seed their stage RNGs through this, which is
// what makes re-execution reproduce the planner's measurements.
func StreamSeed(seed uint64, stream string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	h.Write([]byte(stream))
	return h.Sum64()
}

// Stage RNG stream names shared with the executor.
const (
	StreamPlan       = "plan"
	StreamShape      = "shape"
	StreamEffect     = "effect"
	StreamAugment    = "augment"
	StreamCanvas     = "canvas"
	StreamBackground = "background"
)

// Planner builds Plans. It needs the font source to measure text and,
// optionally, a background manager to pin a background image per plan.
type Planner struct {
	MasterSeed  uint64
	Fonts       render.FontSource
	Backgrounds *canvas.Manager
}

// Build produces the complete parameter vector for one task.
func (p *Planner) Build(task models.Task, spec *config.BatchSpecification) (*models.Plan, error) {
	seed := Seed(p.MasterSeed, task.ImageIndex, task.SpecName)
	rng := sample.New(StreamSeed(seed, StreamPlan))

	pl := &models.Plan{
		SpecName:   task.SpecName,
		ImageIndex: task.ImageIndex,
		Seed:       seed,
		Text:       task.Text,
		Direction:  spec.Direction,
		FontPath:   task.FontPath,
	}

	var err error
	if pl.FontSize, err = sampleInt(rng, spec.FontSize); err != nil {
		return nil, err
	}
	pl.NumLines = rng.IntBetween(spec.MinLines, spec.MaxLines)
	pl.LineBreakMode = spec.LineBreakMode
	if pl.LineSpacing, err = sampleRange(rng, spec.LineSpacing); err != nil {
		return nil, err
	}
	pl.TextAlignment = spec.TextAlignment

	if err := p.sampleCurve(rng, spec, pl); err != nil {
		return nil, err
	}
	if pl.OverlapIntensity, err = sampleRange(rng, spec.OverlapIntensity); err != nil {
		return nil, err
	}
	if err := p.sampleColors(rng, spec, pl); err != nil {
		return nil, err
	}
	if err := p.sampleEffects(rng, spec, pl); err != nil {
		return nil, err
	}
	if err := p.sampleAugment(rng, spec, pl); err != nil {
		return nil, err
	}
	if err := p.measureAndPlace(seed, spec, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (p *Planner) sampleCurve(rng *sample.RNG, spec *config.BatchSpecification, pl *models.Plan) error {
	pl.CurveType = spec.Curve.Type
	if pl.CurveType == "" {
		pl.CurveType = models.CurveNone
	}
	if pl.CurveType == models.CurveNone {
		return nil
	}
	var err error
	if pl.CurveIntensity, err = sampleRange(rng, spec.Curve.Intensity); err != nil {
		return err
	}
	pl.CurveConcave = rng.Float64() < spec.Curve.ConcaveProbability
	if pl.CurveType == models.CurveSine {
		if pl.SineFrequency, err = sampleRange(rng, spec.Curve.SineFrequency); err != nil {
			return err
		}
		if pl.SinePhase, err = sampleRange(rng, spec.Curve.SinePhase); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) sampleColors(rng *sample.RNG, spec *config.BatchSpecification, pl *models.Plan) error {
	pl.ColorMode = spec.ColorMode
	pl.ColorPalette = spec.ColorPalette
	n := len([]rune(pl.Text))
	pl.TextColors = render.TextColors(n, spec.ColorMode, spec.ColorPalette, spec.CustomColors, rng)

	if spec.BackgroundColor == "auto" || spec.BackgroundColor == "" {
		pl.BackgroundAuto = true
		pl.BackgroundColor = render.ContrastingBackground(render.DominantColor(pl.TextColors))
	} else {
		c, err := config.ParseColor(spec.BackgroundColor)
		if err != nil {
			return err
		}
		pl.BackgroundColor = c
	}

	if p.Backgrounds != nil && len(p.Backgrounds.Files()) > 0 {
		path, err := p.Backgrounds.Pick(spec.BackgroundWeight, rng.Float64())
		if err == nil {
			pl.BackgroundPath = path
		} else if !spec.SolidBackgroundFallback {
			return err
		}
	}
	return nil
}

func (p *Planner) sampleEffects(rng *sample.RNG, spec *config.BatchSpecification, pl *models.Plan) error {
	e := spec.Effects
	var err error
	if pl.InkBleedRadius, err = sampleRange(rng, e.InkBleed); err != nil {
		return err
	}

	pl.ShadowEnabled = e.Shadow.Probability > 0 && rng.Float64() < e.Shadow.Probability
	if pl.ShadowEnabled {
		if pl.ShadowOffsetX, err = sampleInt(rng, e.Shadow.OffsetX); err != nil {
			return err
		}
		if pl.ShadowOffsetY, err = sampleInt(rng, e.Shadow.OffsetY); err != nil {
			return err
		}
		if pl.ShadowRadius, err = sampleRange(rng, e.Shadow.Radius); err != nil {
			return err
		}
		pl.ShadowColor = e.Shadow.Color
	}

	if e.Relief.Type != "" && e.Relief.Type != "none" {
		pl.ReliefType = e.Relief.Type
		if pl.ReliefDepth, err = sampleRange(rng, e.Relief.Depth); err != nil {
			return err
		}
		// Light angles are configured in degrees.
		if pl.LightAzimuth, err = sampleRange(rng, e.Relief.LightAzimuth); err != nil {
			return err
		}
		if pl.LightElevation, err = sampleRange(rng, e.Relief.LightElevation); err != nil {
			return err
		}
	}

	if pl.NoiseDensity, err = sampleRange(rng, e.NoiseDensity); err != nil {
		return err
	}
	if pl.BlurRadius, err = sampleRange(rng, e.BlurRadius); err != nil {
		return err
	}
	if pl.Brightness, err = sampleRange(rng, e.Brightness); err != nil {
		return err
	}
	if pl.Contrast, err = sampleRange(rng, e.Contrast); err != nil {
		return err
	}

	if e.MorphologyOp != "" && e.MorphologyOp != "none" {
		pl.MorphologyOp = e.MorphologyOp
		if pl.MorphologyKernel, err = sampleInt(rng, e.MorphologyKernel); err != nil {
			return err
		}
		if pl.MorphologyKernel%2 == 0 {
			pl.MorphologyKernel++
		}
	}
	if pl.CutoutSize, err = sampleInt(rng, e.CutoutSize); err != nil {
		return err
	}
	return nil
}

func (p *Planner) sampleAugment(rng *sample.RNG, spec *config.BatchSpecification, pl *models.Plan) error {
	a := spec.Augment
	var err error
	if pl.RotationAngle, err = sampleRange(rng, a.Rotation); err != nil {
		return err
	}
	if pl.PerspectiveMagnitude, err = sampleRange(rng, a.Perspective); err != nil {
		return err
	}
	if pl.ElasticAlpha, err = sampleRange(rng, a.ElasticAlpha); err != nil {
		return err
	}
	if pl.ElasticSigma, err = sampleRange(rng, a.ElasticSigma); err != nil {
		return err
	}
	if pl.GridLimit, err = sampleRange(rng, a.GridLimit); err != nil {
		return err
	}
	if pl.GridLimit > 0 {
		if pl.GridSteps, err = sampleInt(rng, a.GridSteps); err != nil {
			return err
		}
	}
	if pl.OpticalLimit, err = sampleRange(rng, a.OpticalLimit); err != nil {
		return err
	}
	return nil
}

// measureAndPlace shapes the text once, using the same shape stream the
// executor will use, to learn the surface size; the canvas and placement are
// then sized against the rotation-expanded surface.
func (p *Planner) measureAndPlace(seed uint64, spec *config.BatchSpecification, pl *models.Plan) error {
	face, err := p.Fonts.Face(pl.FontPath, pl.FontSize)
	if err != nil {
		return err
	}
	lines, err := layout.BreakIntoLines(pl.Text, pl.NumLines, pl.LineBreakMode)
	if err != nil {
		return err
	}

	shapeRng := sample.New(StreamSeed(seed, StreamShape))
	surf, _, err := render.ShapeMultiline(face, lines, ShapeOptions(pl), LineColors(pl, lines), pl.LineSpacing, pl.TextAlignment, shapeRng)
	if err != nil {
		return err
	}
	textW := surf.Bounds().Dx()
	textH := surf.Bounds().Dy()
	augW, augH := rotatedDims(textW, textH, pl.RotationAngle)

	canvasRng := sample.New(StreamSeed(seed, StreamCanvas))
	pl.CanvasWidth, pl.CanvasHeight = canvas.GenerateSize(augW, augH, spec.Canvas.MinPadding, spec.Canvas.MaxMegapixels, canvasRng)
	pl.PlacementStrategy = spec.Canvas.Placement
	pl.PlacementX, pl.PlacementY, err = canvas.Place(pl.CanvasWidth, pl.CanvasHeight, augW, augH, pl.PlacementStrategy, canvasRng)
	return err
}

// ShapeOptions maps a plan to the shaper's options.
func ShapeOptions(pl *models.Plan) render.Options {
	return render.Options{
		Direction:      pl.Direction,
		CurveType:      pl.CurveType,
		CurveIntensity: pl.CurveIntensity,
		Concave:        pl.CurveConcave,
		SineFrequency:  pl.SineFrequency,
		SinePhase:      pl.SinePhase,
		Overlap:        pl.OverlapIntensity,
	}
}

// LineColors splits the plan's per-glyph colors across the broken lines in
// order.
func LineColors(pl *models.Plan, lines []string) [][]models.RGB {
	if len(pl.TextColors) == 0 {
		return nil
	}
	out := make([][]models.RGB, len(lines))
	pos := 0
	for i, line := range lines {
		n := len([]rune(line))
		if pos+n > len(pl.TextColors) {
			n = len(pl.TextColors) - pos
		}
		if n < 0 {
			n = 0
		}
		out[i] = pl.TextColors[pos : pos+n]
		pos += n
	}
	return out
}

// rotatedDims returns the size of a w x h surface after rotation by angle
// degrees with an expanding canvas.
func rotatedDims(w, h int, angle float64) (int, int) {
	if angle == 0 {
		return w, h
	}
	theta := angle * math.Pi / 180
	cos, sin := math.Abs(math.Cos(theta)), math.Abs(math.Sin(theta))
	rw := int(math.Ceil(float64(w)*cos + float64(h)*sin))
	rh := int(math.Ceil(float64(w)*sin + float64(h)*cos))
	return rw, rh
}

func sampleRange(rng *sample.RNG, pr config.ParamRange) (float64, error) {
	dist := pr.Distribution
	if dist == "" {
		dist = sample.DistUniform
	}
	return rng.Sample(pr.Min, pr.Max, dist)
}

func sampleInt(rng *sample.RNG, ir config.IntRange) (int, error) {
	dist := ir.Distribution
	if dist == "" {
		dist = sample.DistUniform
	}
	return rng.SampleInt(ir.Min, ir.Max, dist)
}

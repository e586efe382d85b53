// Package validate statically checks a batch configuration before any image
// is generated. All problems are collected into one report so a bad config
// surfaces every mistake in a single run instead of one per invocation.
package validate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/layout"
	"go-ocr-synth/internal/render"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Issue is one validation finding.
type Issue struct {
	Spec    string `json:"spec"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Spec == "" {
		return i.Field + ": " + i.Message
	}
	return i.Spec + "." + i.Field + ": " + i.Message
}

// Paths are the resource base directories resolved from CLI flags. Empty
// values skip the corresponding filesystem checks.
type Paths struct {
	FontDir       string
	BackgroundDir string
	CorpusDir     string
}

// Check validates the whole configuration and returns every issue found.
func Check(cfg *config.BatchConfig, paths Paths) []Issue {
	var issues []Issue
	add := func(spec, field, format string, args ...interface{}) {
		issues = append(issues, Issue{Spec: spec, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.TotalImages <= 0 {
		add("", "total_images", "must be positive, got %d", cfg.TotalImages)
	}
	if len(cfg.Specs) == 0 {
		add("", "batches", "at least one batch specification is required")
		return issues
	}

	sum := 0.0
	for i := range cfg.Specs {
		sum += cfg.Specs[i].Proportion
	}
	if math.Abs(sum-1.0) > 1e-3 {
		add("", "proportion", "proportions sum to %.4f, want 1.0", sum)
	}

	for i := range cfg.Specs {
		checkSpec(&cfg.Specs[i], paths, add)
	}
	return issues
}

func checkSpec(s *config.BatchSpecification, paths Paths, add func(spec, field, format string, args ...interface{})) {
	name := s.Name
	if name == "" {
		add("", "name", "batch specification needs a name")
		name = "(unnamed)"
	}

	switch s.Direction {
	case models.DirLeftToRight, models.DirRightToLeft, models.DirTopToBottom, models.DirBottomToTop:
	default:
		add(name, "text_direction", "unknown direction %q", s.Direction)
	}
	if !layout.ValidAlignment(s.TextAlignment, s.Direction) {
		add(name, "text_alignment", "%q is not valid for direction %q", s.TextAlignment, s.Direction)
	}

	checkIntRange(name, "font_size", s.FontSize, add)
	if s.FontSize.Min < 1 {
		add(name, "font_size", "minimum %d is not a usable point size", s.FontSize.Min)
	}
	if s.MinTextLength > s.MaxTextLength {
		add(name, "text_length", "min %d > max %d", s.MinTextLength, s.MaxTextLength)
	}
	if s.MinTextLength < 1 {
		add(name, "min_text_length", "must be at least 1, got %d", s.MinTextLength)
	}
	if s.MinLines > s.MaxLines {
		add(name, "lines", "min %d > max %d", s.MinLines, s.MaxLines)
	}
	if s.MinLines < 1 {
		add(name, "min_lines", "must be at least 1, got %d", s.MinLines)
	}
	if s.LineBreakMode != layout.BreakWord && s.LineBreakMode != layout.BreakCharacter {
		add(name, "line_break_mode", "unknown mode %q", s.LineBreakMode)
	}
	checkRange(name, "line_spacing", s.LineSpacing, add)
	checkRange(name, "overlap_intensity", s.OverlapIntensity, add)
	if s.OverlapIntensity.Min < 0 || s.OverlapIntensity.Max > 1 {
		add(name, "overlap_intensity", "must stay within [0,1]")
	}

	checkCurve(name, &s.Curve, add)
	checkColors(name, s, add)
	checkEffects(name, &s.Effects, add)
	checkAugment(name, &s.Augment, add)

	switch s.Canvas.Placement {
	case "weighted_random", "uniform_random", "center":
	default:
		add(name, "canvas.placement", "unknown strategy %q", s.Canvas.Placement)
	}
	if s.Canvas.MaxMegapixels <= 0 {
		add(name, "canvas.max_megapixels", "must be positive")
	}
	if s.Canvas.MinPadding < 0 {
		add(name, "canvas.min_padding", "must not be negative")
	}

	checkResources(name, s, paths, add)
}

func checkCurve(name string, c *config.CurveConfig, add func(spec, field, format string, args ...interface{})) {
	switch c.Type {
	case models.CurveNone, models.CurveArc, models.CurveSine, "":
	default:
		add(name, "curve.type", "unknown curve type %q", c.Type)
		return
	}
	if c.Type == models.CurveNone || c.Type == "" {
		if c.Intensity.Max != 0 || c.SineFrequency.Max != 0 || c.SinePhase.Max != 0 {
			add(name, "curve", "curve type none requires zero intensity, frequency, and phase ranges")
		}
		return
	}
	checkRange(name, "curve.intensity", c.Intensity, add)
	if c.Intensity.Min < 0 || c.Intensity.Max > 1 {
		add(name, "curve.intensity", "must stay within [0,1]")
	}
	if c.ConcaveProbability < 0 || c.ConcaveProbability > 1 {
		add(name, "curve.concave_probability", "must stay within [0,1]")
	}
	if c.Type == models.CurveSine {
		checkRange(name, "curve.sine_frequency", c.SineFrequency, add)
		checkRange(name, "curve.sine_phase", c.SinePhase, add)
	}
}

func checkColors(name string, s *config.BatchSpecification, add func(spec, field, format string, args ...interface{})) {
	switch s.ColorMode {
	case models.ColorUniform, models.ColorPerGlyph, models.ColorGradient, models.ColorRandom:
	default:
		add(name, "text_color_mode", "unknown mode %q", s.ColorMode)
	}
	if len(s.CustomColors) == 0 && !render.KnownPalette(s.ColorPalette) {
		add(name, "color_palette", "unknown palette %q and no custom_colors given", s.ColorPalette)
	}
	if s.ColorMode == models.ColorGradient {
		if n := paletteSize(s); n < 2 {
			add(name, "text_color_mode", "gradient needs at least two palette colors, have %d", n)
		}
	}
	if s.BackgroundColor != "auto" && s.BackgroundColor != "" {
		if _, err := config.ParseColor(s.BackgroundColor); err != nil {
			add(name, "background_color", "%v", err)
		}
	}
}

func paletteSize(s *config.BatchSpecification) int {
	if len(s.CustomColors) > 0 {
		return len(s.CustomColors)
	}
	return len(render.Palette(s.ColorPalette))
}

func checkEffects(name string, e *config.EffectConfig, add func(spec, field, format string, args ...interface{})) {
	checkRange(name, "effects.ink_bleed", e.InkBleed, add)
	checkRange(name, "effects.shadow.radius", e.Shadow.Radius, add)
	checkIntRange(name, "effects.shadow.offset_x", e.Shadow.OffsetX, add)
	checkIntRange(name, "effects.shadow.offset_y", e.Shadow.OffsetY, add)
	if e.Shadow.Probability < 0 || e.Shadow.Probability > 1 {
		add(name, "effects.shadow.probability", "must stay within [0,1]")
	}

	switch e.Relief.Type {
	case "", "none", "raised", "embossed", "engraved":
	default:
		add(name, "effects.relief.type", "unknown relief type %q", e.Relief.Type)
	}
	checkRange(name, "effects.relief.depth", e.Relief.Depth, add)
	checkRange(name, "effects.relief.light_azimuth", e.Relief.LightAzimuth, add)
	checkRange(name, "effects.relief.light_elevation", e.Relief.LightElevation, add)

	checkRange(name, "effects.noise_density", e.NoiseDensity, add)
	if e.NoiseDensity.Min < 0 || e.NoiseDensity.Max > 1 {
		add(name, "effects.noise_density", "must stay within [0,1]")
	}
	checkRange(name, "effects.blur_radius", e.BlurRadius, add)
	checkRange(name, "effects.brightness", e.Brightness, add)
	checkRange(name, "effects.contrast", e.Contrast, add)

	switch e.MorphologyOp {
	case "", "none", "erode", "dilate":
	default:
		add(name, "effects.morphology_op", "unknown operation %q", e.MorphologyOp)
	}
	checkIntRange(name, "effects.morphology_kernel", e.MorphologyKernel, add)
	checkIntRange(name, "effects.cutout_size", e.CutoutSize, add)
}

func checkAugment(name string, a *config.AugmentConfig, add func(spec, field, format string, args ...interface{})) {
	checkRange(name, "augmentations.rotation", a.Rotation, add)
	checkRange(name, "augmentations.perspective", a.Perspective, add)
	checkRange(name, "augmentations.elastic_alpha", a.ElasticAlpha, add)
	checkRange(name, "augmentations.elastic_sigma", a.ElasticSigma, add)
	checkIntRange(name, "augmentations.grid_steps", a.GridSteps, add)
	checkRange(name, "augmentations.grid_limit", a.GridLimit, add)
	checkRange(name, "augmentations.optical_limit", a.OpticalLimit, add)
}

func checkResources(name string, s *config.BatchSpecification, paths Paths, add func(spec, field, format string, args ...interface{})) {
	if paths.FontDir != "" {
		fonts, err := config.Glob(filepath.Join(paths.FontDir, s.FontPattern))
		if err != nil {
			add(name, "font_filter", "bad pattern: %v", err)
		} else if len(fonts) == 0 {
			add(name, "font_filter", "no fonts match %q under %s", s.FontPattern, paths.FontDir)
		}
	}
	if s.CorpusFile != "" {
		path := s.CorpusFile
		if !filepath.IsAbs(path) && paths.CorpusDir != "" {
			path = filepath.Join(paths.CorpusDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			add(name, "corpus_file", "%s does not exist", path)
		}
	}
	for _, dir := range s.BackgroundDirs {
		if !filepath.IsAbs(dir) && paths.BackgroundDir != "" {
			dir = filepath.Join(paths.BackgroundDir, dir)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			add(name, "background_dirs", "%s is not a directory", dir)
		}
	}
}

func checkRange(name, field string, r config.ParamRange, add func(spec, field, format string, args ...interface{})) {
	if r.Min > r.Max {
		add(name, field, "min %g > max %g", r.Min, r.Max)
	}
	if r.Distribution != "" && !sample.Known(r.Distribution) {
		add(name, field, "unknown distribution %q", r.Distribution)
	}
}

func checkIntRange(name, field string, r config.IntRange, add func(spec, field, format string, args ...interface{})) {
	if r.Min > r.Max {
		add(name, field, "min %d > max %d", r.Min, r.Max)
	}
	if r.Distribution != "" && !sample.Known(r.Distribution) {
		add(name, field, "unknown distribution %q", r.Distribution)
	}
}

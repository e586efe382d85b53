// Package config defines the typed configuration records for a generation
// run and loads them from YAML. Static correctness checks live in the
// validate package; this package only shapes and defaults the data.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"go-ocr-synth/pkg/models"
)

// ParamRange is a bounded sampling range with a named distribution. It is
// the universal {min, max, distribution} triple used by every continuous
// effect and augmentation parameter.
type ParamRange struct {
	Min          float64 `yaml:"min" json:"min"`
	Max          float64 `yaml:"max" json:"max"`
	Distribution string  `yaml:"distribution" json:"distribution"`
}

// Fixed returns a degenerate range pinned to a single value.
func Fixed(v float64) ParamRange {
	return ParamRange{Min: v, Max: v, Distribution: "uniform"}
}

// IntRange is a bounded integer sampling range.
type IntRange struct {
	Min          int    `yaml:"min" json:"min"`
	Max          int    `yaml:"max" json:"max"`
	Distribution string `yaml:"distribution" json:"distribution"`
}

// FixedInt returns a degenerate integer range pinned to a single value.
func FixedInt(v int) IntRange {
	return IntRange{Min: v, Max: v, Distribution: "uniform"}
}

// CurveConfig holds baseline curvature parameters. When Type is "none" the
// intensity, frequency, and phase ranges must be zero.
type CurveConfig struct {
	Type               string     `yaml:"type" json:"type"`
	Intensity          ParamRange `yaml:"intensity" json:"intensity"`
	SineFrequency      ParamRange `yaml:"sine_frequency" json:"sine_frequency"`
	SinePhase          ParamRange `yaml:"sine_phase" json:"sine_phase"`
	ConcaveProbability float64    `yaml:"concave_probability" json:"concave_probability"`
}

// ShadowConfig configures the drop/block shadow effect.
type ShadowConfig struct {
	Probability float64    `yaml:"probability" json:"probability"`
	OffsetX     IntRange   `yaml:"offset_x" json:"offset_x"`
	OffsetY     IntRange   `yaml:"offset_y" json:"offset_y"`
	Radius      ParamRange `yaml:"radius" json:"radius"`
	Color       models.RGB `yaml:"color" json:"color"`
}

// ReliefConfig configures the 3D text effect.
type ReliefConfig struct {
	Type           string     `yaml:"type" json:"type"` // none, raised, embossed, engraved
	Depth          ParamRange `yaml:"depth" json:"depth"`
	LightAzimuth   ParamRange `yaml:"light_azimuth" json:"light_azimuth"`
	LightElevation ParamRange `yaml:"light_elevation" json:"light_elevation"`
}

// EffectConfig groups the pixel-level effect parameters applied on the text
// surface before geometric augmentation.
type EffectConfig struct {
	InkBleed         ParamRange   `yaml:"ink_bleed" json:"ink_bleed"`
	Shadow           ShadowConfig `yaml:"shadow" json:"shadow"`
	Relief           ReliefConfig `yaml:"relief" json:"relief"`
	NoiseDensity     ParamRange   `yaml:"noise_density" json:"noise_density"`
	BlurRadius       ParamRange   `yaml:"blur_radius" json:"blur_radius"`
	Brightness       ParamRange   `yaml:"brightness" json:"brightness"`
	Contrast         ParamRange   `yaml:"contrast" json:"contrast"`
	MorphologyOp     string       `yaml:"morphology_op" json:"morphology_op"` // none, erode, dilate
	MorphologyKernel IntRange     `yaml:"morphology_kernel" json:"morphology_kernel"`
	CutoutSize       IntRange     `yaml:"cutout_size" json:"cutout_size"`
}

// AugmentConfig groups the geometric augmentation parameters that jointly
// transform pixels and bounding boxes.
type AugmentConfig struct {
	Rotation     ParamRange `yaml:"rotation" json:"rotation"`
	Perspective  ParamRange `yaml:"perspective" json:"perspective"`
	ElasticAlpha ParamRange `yaml:"elastic_alpha" json:"elastic_alpha"`
	ElasticSigma ParamRange `yaml:"elastic_sigma" json:"elastic_sigma"`
	GridSteps    IntRange   `yaml:"grid_steps" json:"grid_steps"`
	GridLimit    ParamRange `yaml:"grid_limit" json:"grid_limit"`
	OpticalLimit ParamRange `yaml:"optical_limit" json:"optical_limit"`
}

// CanvasConfig controls canvas sizing and text placement.
type CanvasConfig struct {
	MinPadding    int     `yaml:"min_padding" json:"min_padding"`
	MaxMegapixels float64 `yaml:"max_megapixels" json:"max_megapixels"`
	Placement     string  `yaml:"placement" json:"placement"` // weighted_random, uniform_random, center
}

// BatchSpecification is one generation profile. A run interleaves images
// across its specifications according to their proportions.
type BatchSpecification struct {
	Name       string  `yaml:"name" json:"name"`
	Proportion float64 `yaml:"proportion" json:"proportion"`

	Direction string `yaml:"text_direction" json:"text_direction"`

	CorpusFile    string             `yaml:"corpus_file" json:"corpus_file"`
	CorpusDir     string             `yaml:"corpus_dir" json:"corpus_dir"`
	CorpusPattern string             `yaml:"corpus_pattern" json:"corpus_pattern"`
	CorpusWeights map[string]float64 `yaml:"corpus_weights" json:"corpus_weights"`
	TextPattern   string             `yaml:"text_pattern" json:"text_pattern"`

	FontPattern string             `yaml:"font_filter" json:"font_filter"`
	FontWeights map[string]float64 `yaml:"font_weights" json:"font_weights"`
	FontSize    IntRange           `yaml:"font_size" json:"font_size"`

	MinTextLength int `yaml:"min_text_length" json:"min_text_length"`
	MaxTextLength int `yaml:"max_text_length" json:"max_text_length"`

	MinLines      int        `yaml:"min_lines" json:"min_lines"`
	MaxLines      int        `yaml:"max_lines" json:"max_lines"`
	LineBreakMode string     `yaml:"line_break_mode" json:"line_break_mode"` // word, character
	LineSpacing   ParamRange `yaml:"line_spacing" json:"line_spacing"`
	TextAlignment string     `yaml:"text_alignment" json:"text_alignment"`

	Curve            CurveConfig `yaml:"curve" json:"curve"`
	OverlapIntensity ParamRange  `yaml:"overlap_intensity" json:"overlap_intensity"`

	ColorMode       string       `yaml:"text_color_mode" json:"text_color_mode"`
	ColorPalette    string       `yaml:"color_palette" json:"color_palette"`
	CustomColors    []models.RGB `yaml:"custom_colors" json:"custom_colors"`
	BackgroundColor string       `yaml:"background_color" json:"background_color"` // "auto" or "r,g,b"

	BackgroundDirs          []string           `yaml:"background_dirs" json:"background_dirs"`
	BackgroundPattern       string             `yaml:"background_pattern" json:"background_pattern"`
	BackgroundWeights       map[string]float64 `yaml:"background_weights" json:"background_weights"`
	SolidBackgroundFallback bool               `yaml:"use_solid_background_fallback" json:"use_solid_background_fallback"`

	Effects EffectConfig  `yaml:"effects" json:"effects"`
	Augment AugmentConfig `yaml:"augmentations" json:"augmentations"`
	Canvas  CanvasConfig  `yaml:"canvas" json:"canvas"`
}

// BatchConfig is the complete configuration for one run.
type BatchConfig struct {
	TotalImages int                  `yaml:"total_images" json:"total_images"`
	Seed        *uint64              `yaml:"seed" json:"seed"`
	Specs       []BatchSpecification `yaml:"batches" json:"batches"`
}

// DefaultSpec returns a specification with the documented defaults; loaded
// YAML is unmarshalled over it so absent keys keep these values.
func DefaultSpec() BatchSpecification {
	return BatchSpecification{
		Proportion:              1.0,
		Direction:               models.DirLeftToRight,
		TextPattern:             "*.txt",
		FontPattern:             "*.{ttf,otf}",
		FontSize:                IntRange{Min: 24, Max: 48, Distribution: "uniform"},
		MinTextLength:           5,
		MaxTextLength:           25,
		MinLines:                1,
		MaxLines:                1,
		LineBreakMode:           "word",
		LineSpacing:             Fixed(1.2),
		TextAlignment:           "left",
		Curve:                   CurveConfig{Type: models.CurveNone, ConcaveProbability: 0.5},
		OverlapIntensity:        Fixed(0),
		ColorMode:               models.ColorUniform,
		ColorPalette:            "realistic_dark",
		BackgroundColor:         "auto",
		BackgroundPattern:       "*.{png,jpg,jpeg}",
		SolidBackgroundFallback: true,
		Effects: EffectConfig{
			Shadow: ShadowConfig{
				OffsetX: FixedInt(0),
				OffsetY: FixedInt(0),
				Color:   models.RGB{R: 64, G: 64, B: 64},
			},
			Relief: ReliefConfig{
				Type:           "none",
				Depth:          Fixed(0.5),
				LightAzimuth:   Fixed(135),
				LightElevation: Fixed(45),
			},
			Brightness:       Fixed(1.0),
			Contrast:         Fixed(1.0),
			MorphologyOp:     "none",
			MorphologyKernel: FixedInt(3),
		},
		Augment: AugmentConfig{
			GridSteps: FixedInt(5),
		},
		Canvas: CanvasConfig{
			MinPadding:    10,
			MaxMegapixels: 12.0,
			Placement:     "weighted_random",
		},
	}
}

// ParseColor parses an "r,g,b" string.
func ParseColor(s string) (models.RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return models.RGB{}, fmt.Errorf("color %q: want r,g,b", s)
	}
	var vals [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return models.RGB{}, fmt.Errorf("color %q: component %q out of range", s, p)
		}
		vals[i] = uint8(n)
	}
	return models.RGB{R: vals[0], G: vals[1], B: vals[2]}, nil
}

// FontWeight returns the configured weight for a font filename; patterns use
// glob syntax and unmatched fonts weigh 1.0.
func (s *BatchSpecification) FontWeight(name string) float64 {
	return patternWeight(s.FontWeights, name)
}

// BackgroundWeight returns the configured weight for a background path.
func (s *BatchSpecification) BackgroundWeight(path string) float64 {
	return patternWeight(s.BackgroundWeights, path)
}

// Package models defines the data records shared between the synthesis
// pipeline stages: the per-image Plan, character bounding boxes, and the
// label record written next to every generated image.
package models

// Text directions recognized by the renderer.
const (
	DirLeftToRight = "left_to_right"
	DirRightToLeft = "right_to_left"
	DirTopToBottom = "top_to_bottom"
	DirBottomToTop = "bottom_to_top"
)

// Curve types for the text baseline.
const (
	CurveNone = "none"
	CurveArc  = "arc"
	CurveSine = "sine"
)

// Color modes for glyph fill.
const (
	ColorUniform  = "uniform"
	ColorPerGlyph = "per_glyph"
	ColorGradient = "gradient"
	ColorRandom   = "random"
)

// RGB is an 8-bit color triple.
type RGB struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

// CharacterBox is an axis-aligned bounding box for one rendered character,
// expressed in the final image's pixel frame. Boxes are emitted in visual
// order. LineIndex is always present; single-line images use 0.
type CharacterBox struct {
	Char      string `json:"char"`
	X0        int    `json:"x0"`
	Y0        int    `json:"y0"`
	X1        int    `json:"x1"`
	Y1        int    `json:"y1"`
	LineIndex int    `json:"line_index"`
	Truncated bool   `json:"truncated,omitempty"`
	Occluded  bool   `json:"occluded,omitempty"`
}

// Valid reports whether the box has positive area.
func (b CharacterBox) Valid() bool {
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// Offset returns a copy of the box shifted by (dx, dy).
func (b CharacterBox) Offset(dx, dy int) CharacterBox {
	b.X0 += dx
	b.Y0 += dy
	b.X1 += dx
	b.Y1 += dy
	return b
}

// Plan is the fully concrete parameter vector for one image. It is produced
// by the planner, is pure data, and is the sole input to the executor. Every
// field is recorded in the label so the image can be re-executed from it.
type Plan struct {
	SpecName   string `json:"spec_name"`
	ImageIndex int    `json:"image_index"`
	Seed       uint64 `json:"seed"`

	Text      string `json:"text"`
	Direction string `json:"direction"`
	FontPath  string `json:"font_path"`
	FontSize  int    `json:"font_size"`

	NumLines      int     `json:"num_lines"`
	LineBreakMode string  `json:"line_break_mode"`
	LineSpacing   float64 `json:"line_spacing"`
	TextAlignment string  `json:"text_alignment"`

	CurveType      string  `json:"curve_type"`
	CurveIntensity float64 `json:"curve_intensity"`
	CurveConcave   bool    `json:"curve_concave"`
	SineFrequency  float64 `json:"sine_frequency"`
	SinePhase      float64 `json:"sine_phase"`

	OverlapIntensity float64 `json:"overlap_intensity"`

	ColorMode       string `json:"color_mode"`
	ColorPalette    string `json:"color_palette"`
	TextColors      []RGB  `json:"text_colors"`
	BackgroundColor RGB    `json:"background_color"`
	BackgroundAuto  bool   `json:"background_auto"`
	BackgroundPath  string `json:"background_path,omitempty"`

	InkBleedRadius   float64 `json:"ink_bleed_radius"`
	ShadowOffsetX    int     `json:"shadow_offset_x"`
	ShadowOffsetY    int     `json:"shadow_offset_y"`
	ShadowRadius     float64 `json:"shadow_radius"`
	ShadowColor      RGB     `json:"shadow_color"`
	ShadowEnabled    bool    `json:"shadow_enabled"`
	ReliefType       string  `json:"relief_type"`
	ReliefDepth      float64 `json:"relief_depth"`
	LightAzimuth     float64 `json:"light_azimuth"`
	LightElevation   float64 `json:"light_elevation"`
	NoiseDensity     float64 `json:"noise_density"`
	BlurRadius       float64 `json:"blur_radius"`
	Brightness       float64 `json:"brightness"`
	Contrast         float64 `json:"contrast"`
	MorphologyOp     string  `json:"morphology_op"`
	MorphologyKernel int     `json:"morphology_kernel"`
	CutoutSize       int     `json:"cutout_size"`

	RotationAngle        float64 `json:"rotation_angle"`
	PerspectiveMagnitude float64 `json:"perspective_magnitude"`
	ElasticAlpha         float64 `json:"elastic_alpha"`
	ElasticSigma         float64 `json:"elastic_sigma"`
	GridSteps            int     `json:"grid_steps"`
	GridLimit            float64 `json:"grid_limit"`
	OpticalLimit         float64 `json:"optical_limit"`

	CanvasWidth       int    `json:"canvas_width"`
	CanvasHeight      int    `json:"canvas_height"`
	PlacementX        int    `json:"placement_x"`
	PlacementY        int    `json:"placement_y"`
	PlacementStrategy string `json:"placement_strategy"`
}

// GenerationRecord is the label written alongside each image: the Plan plus
// everything the executor resolved while running it. The schema is
// additive-only across versions.
type GenerationRecord struct {
	SchemaVersion int    `json:"schema_version"`
	ImageFile     string `json:"image_file"`

	Plan

	Lines                []string       `json:"lines"`
	CanvasSize           [2]int         `json:"canvas_size"`
	TextPlacement        [2]int         `json:"text_placement"`
	AppliedAugmentations []string       `json:"applied_augmentations"`
	CharBBoxes           []CharacterBox `json:"bboxes"`
}

// Task is one scheduled unit of generation: a spec, a text segment, a font,
// and the stable image index that seeds the plan.
type Task struct {
	SpecName   string
	Text       string
	FontPath   string
	ImageIndex int
}

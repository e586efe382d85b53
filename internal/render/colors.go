package render

import (
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// Built-in palettes, keyed by the names accepted in batch specifications.
var palettes = map[string][]models.RGB{
	"realistic_dark": {
		{R: 0, G: 0, B: 0},
		{R: 25, G: 25, B: 112},
		{R: 139, G: 69, B: 19},
		{R: 47, G: 79, B: 79},
		{R: 0, G: 0, B: 128},
		{R: 85, G: 107, B: 47},
	},
	"realistic_light": {
		{R: 255, G: 255, B: 255},
		{R: 245, G: 245, B: 220},
		{R: 240, G: 248, B: 255},
		{R: 255, G: 250, B: 240},
		{R: 250, G: 250, B: 210},
	},
	"vibrant": {
		{R: 255, G: 0, B: 0},
		{R: 0, G: 255, B: 0},
		{R: 0, G: 0, B: 255},
		{R: 255, G: 165, B: 0},
		{R: 255, G: 0, B: 255},
		{R: 0, G: 255, B: 255},
		{R: 255, G: 255, B: 0},
		{R: 128, G: 0, B: 128},
	},
	"pastels": {
		{R: 255, G: 182, B: 193},
		{R: 173, G: 216, B: 230},
		{R: 221, G: 160, B: 221},
		{R: 255, G: 218, B: 185},
		{R: 216, G: 191, B: 216},
		{R: 152, G: 251, B: 152},
		{R: 255, G: 255, B: 224},
	},
}

// Palette returns the named palette; unknown names fall back to
// realistic_dark.
func Palette(name string) []models.RGB {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes["realistic_dark"]
}

// KnownPalette reports whether name is a built-in palette.
func KnownPalette(name string) bool {
	_, ok := palettes[name]
	return ok
}

// TextColors assigns one color per character according to the color mode.
// Uniform picks a single palette color; per_glyph draws independently per
// character; gradient interpolates linearly across glyph index between the
// palette's first two colors; random chooses uniform or per_glyph first.
func TextColors(n int, mode, paletteName string, custom []models.RGB, rng *sample.RNG) []models.RGB {
	palette := Palette(paletteName)
	if len(custom) > 0 {
		palette = custom
	}
	if n <= 0 {
		return nil
	}

	switch mode {
	case models.ColorPerGlyph:
		colors := make([]models.RGB, n)
		for i := range colors {
			colors[i] = palette[rng.Intn(len(palette))]
		}
		return colors

	case models.ColorGradient:
		if len(palette) < 2 {
			return uniformColors(n, palette[0])
		}
		start, end := palette[0], palette[1]
		colors := make([]models.RGB, n)
		for i := range colors {
			t := 0.0
			if n > 1 {
				t = float64(i) / float64(n-1)
			}
			colors[i] = lerpRGB(start, end, t)
		}
		return colors

	case models.ColorRandom:
		mode = models.ColorUniform
		if rng.Float64() < 0.5 {
			mode = models.ColorPerGlyph
		}
		return TextColors(n, mode, paletteName, custom, rng)
	}

	// Uniform and any unrecognized mode.
	return uniformColors(n, palette[rng.Intn(len(palette))])
}

func uniformColors(n int, c models.RGB) []models.RGB {
	colors := make([]models.RGB, n)
	for i := range colors {
		colors[i] = c
	}
	return colors
}

func lerpRGB(a, b models.RGB, t float64) models.RGB {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + t*(float64(y)-float64(x)))
	}
	return models.RGB{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B)}
}

// Luminance returns the Rec. 601 luma of a color in [0, 1].
func Luminance(c models.RGB) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255.0
}

// ContrastingBackground returns white for dark text and black for light
// text, maximizing luminance contrast against the dominant text color.
func ContrastingBackground(text models.RGB) models.RGB {
	if Luminance(text) < 0.5 {
		return models.RGB{R: 255, G: 255, B: 255}
	}
	return models.RGB{R: 0, G: 0, B: 0}
}

// DominantColor picks the most frequent color in the list (the first on
// ties), used to solve the auto background.
func DominantColor(colors []models.RGB) models.RGB {
	if len(colors) == 0 {
		return models.RGB{}
	}
	counts := map[models.RGB]int{}
	best := colors[0]
	bestCount := 0
	for _, c := range colors {
		counts[c]++
		if counts[c] > bestCount {
			best = c
			bestCount = counts[c]
		}
	}
	return best
}

package render

import (
	"testing"

	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

func inPalette(c models.RGB, palette []models.RGB) bool {
	for _, p := range palette {
		if p == c {
			return true
		}
	}
	return false
}

func TestTextColorsUniform(t *testing.T) {
	colors := TextColors(8, models.ColorUniform, "vibrant", nil, sample.New(3))
	if len(colors) != 8 {
		t.Fatalf("expected 8 colors, got %d", len(colors))
	}
	for _, c := range colors {
		if c != colors[0] {
			t.Errorf("uniform mode should repeat one color: %v vs %v", c, colors[0])
		}
	}
	if !inPalette(colors[0], Palette("vibrant")) {
		t.Errorf("color %v not in palette", colors[0])
	}
}

func TestTextColorsPerGlyph(t *testing.T) {
	palette := Palette("pastels")
	colors := TextColors(50, models.ColorPerGlyph, "pastels", nil, sample.New(3))
	distinct := map[models.RGB]bool{}
	for _, c := range colors {
		if !inPalette(c, palette) {
			t.Errorf("color %v not in palette", c)
		}
		distinct[c] = true
	}
	if len(distinct) < 2 {
		t.Error("per-glyph mode over 50 glyphs should draw more than one color")
	}
}

func TestTextColorsGradient(t *testing.T) {
	palette := Palette("vibrant")
	colors := TextColors(5, models.ColorGradient, "vibrant", nil, sample.New(3))
	if colors[0] != palette[0] {
		t.Errorf("gradient should start at palette[0]: %v", colors[0])
	}
	if colors[4] != palette[1] {
		t.Errorf("gradient should end at palette[1]: %v", colors[4])
	}
}

func TestTextColorsCustomPalette(t *testing.T) {
	custom := []models.RGB{{R: 1, G: 2, B: 3}}
	colors := TextColors(3, models.ColorUniform, "vibrant", custom, sample.New(3))
	for _, c := range colors {
		if c != custom[0] {
			t.Errorf("custom palette should win over the named one: %v", c)
		}
	}
}

func TestTextColorsDeterministic(t *testing.T) {
	a := TextColors(10, models.ColorRandom, "realistic_dark", nil, sample.New(42))
	b := TextColors(10, models.ColorRandom, "realistic_dark", nil, sample.New(42))
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("color %d differs across identical seeds", i)
		}
	}
}

func TestPaletteFallback(t *testing.T) {
	if KnownPalette("no_such_palette") {
		t.Error("unexpected palette")
	}
	got := Palette("no_such_palette")
	want := Palette("realistic_dark")
	if len(got) != len(want) || got[0] != want[0] {
		t.Error("unknown palette should fall back to realistic_dark")
	}
}

func TestContrastingBackground(t *testing.T) {
	white := models.RGB{R: 255, G: 255, B: 255}
	black := models.RGB{}
	if ContrastingBackground(black) != white {
		t.Error("dark text needs a white background")
	}
	if ContrastingBackground(white) != black {
		t.Error("light text needs a black background")
	}
}

func TestDominantColor(t *testing.T) {
	a := models.RGB{R: 10}
	b := models.RGB{R: 20}
	got := DominantColor([]models.RGB{a, b, b, a, b})
	if got != b {
		t.Errorf("dominant = %v, want %v", got, b)
	}
	// Ties keep the first seen.
	if got := DominantColor([]models.RGB{a, b}); got != a {
		t.Errorf("tie should keep first color, got %v", got)
	}
}

package executor

import (
	"encoding/json"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/plan"
	"go-ocr-synth/pkg/models"
)

type bitmapFonts struct{}

func (bitmapFonts) Face(string, int) (font.Face, error) { return basicfont.Face7x13, nil }
func (bitmapFonts) HasGlyph(string, rune) (bool, error) { return true, nil }

func buildPlan(t *testing.T, mutate func(*config.BatchSpecification)) *models.Plan {
	t.Helper()
	spec := config.DefaultSpec()
	spec.Name = "main"
	if mutate != nil {
		mutate(&spec)
	}
	p := &plan.Planner{MasterSeed: 42, Fonts: bitmapFonts{}}
	pl, err := p.Build(models.Task{
		SpecName:   "main",
		Text:       "quick brown fox",
		FontPath:   "fonts/test.ttf",
		ImageIndex: 3,
	}, &spec)
	if err != nil {
		t.Fatalf("plan build failed: %v", err)
	}
	return pl
}

func TestExecuteProducesRecord(t *testing.T) {
	pl := buildPlan(t, nil)
	ex := &Executor{Fonts: bitmapFonts{}}
	img, rec, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if img == nil || rec == nil {
		t.Fatal("missing output")
	}
	if rec.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d", rec.SchemaVersion)
	}
	if rec.CanvasSize[0] != img.Bounds().Dx() || rec.CanvasSize[1] != img.Bounds().Dy() {
		t.Errorf("canvas size %v does not match image %v", rec.CanvasSize, img.Bounds())
	}
	want := len([]rune(pl.Text))
	if len(rec.CharBBoxes) != want {
		t.Errorf("expected %d boxes, got %d", want, len(rec.CharBBoxes))
	}
	for i, b := range rec.CharBBoxes {
		if b.Occluded {
			continue
		}
		if !b.Valid() {
			t.Errorf("box %d has no area: %+v", i, b)
		}
		if b.X0 < 0 || b.Y0 < 0 || b.X1 > rec.CanvasSize[0] || b.Y1 > rec.CanvasSize[1] {
			t.Errorf("box %d escapes the canvas: %+v", i, b)
		}
	}
}

func TestExecuteByteIdentical(t *testing.T) {
	pl := buildPlan(t, func(s *config.BatchSpecification) {
		s.Effects.NoiseDensity = config.ParamRange{Min: 0.005, Max: 0.005, Distribution: "uniform"}
		s.Augment.Rotation = config.Fixed(7)
	})
	ex := &Executor{Fonts: bitmapFonts{}}

	img1, rec1, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	img2, rec2, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("re-execute failed: %v", err)
	}

	if len(img1.Pix) != len(img2.Pix) {
		t.Fatal("image sizes differ across executions")
	}
	for i := range img1.Pix {
		if img1.Pix[i] != img2.Pix[i] {
			t.Fatal("pixel data differs across executions of the same plan")
		}
	}

	j1, _ := json.Marshal(rec1)
	j2, _ := json.Marshal(rec2)
	if string(j1) != string(j2) {
		t.Error("label records differ across executions of the same plan")
	}
}

func TestExecuteSolidBackground(t *testing.T) {
	pl := buildPlan(t, nil)
	ex := &Executor{Fonts: bitmapFonts{}}
	img, _, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	// No background path: every corner shows the solid background color.
	c := pl.BackgroundColor
	px := img.NRGBAAt(0, 0)
	if px.R != c.R || px.G != c.G || px.B != c.B {
		t.Errorf("corner pixel %+v, want background %+v", px, c)
	}
}

func TestExecuteMultiline(t *testing.T) {
	pl := buildPlan(t, func(s *config.BatchSpecification) {
		s.MinLines, s.MaxLines = 2, 2
	})
	ex := &Executor{Fonts: bitmapFonts{}}
	_, rec, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(rec.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", rec.Lines)
	}
	sawSecond := false
	for _, b := range rec.CharBBoxes {
		if b.LineIndex == 1 {
			sawSecond = true
		}
		if b.LineIndex < 0 || b.LineIndex > 1 {
			t.Errorf("line index %d out of range", b.LineIndex)
		}
	}
	if !sawSecond {
		t.Error("no boxes on the second line")
	}
}

func TestExecuteAppliedManifest(t *testing.T) {
	pl := buildPlan(t, func(s *config.BatchSpecification) {
		s.Effects.BlurRadius = config.Fixed(0.8)
		s.Augment.Rotation = config.Fixed(5)
	})
	ex := &Executor{Fonts: bitmapFonts{}}
	_, rec, err := ex.Execute(pl)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	var sawBlur, sawRotation bool
	for _, name := range rec.AppliedAugmentations {
		switch name {
		case "gaussian_blur":
			sawBlur = true
		case "rotation":
			sawRotation = true
		}
	}
	if !sawBlur || !sawRotation {
		t.Errorf("manifest missing entries: %v", rec.AppliedAugmentations)
	}
}

package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-ocr-synth/internal/config"
	"go-ocr-synth/pkg/models"
)

func validConfig() *config.BatchConfig {
	spec := config.DefaultSpec()
	spec.Name = "main"
	return &config.BatchConfig{TotalImages: 10, Specs: []config.BatchSpecification{spec}}
}

func hasIssue(issues []Issue, field string) bool {
	for _, i := range issues {
		if i.Field == field {
			return true
		}
	}
	return false
}

func TestCheckAcceptsDefaults(t *testing.T) {
	issues := Check(validConfig(), Paths{})
	if len(issues) != 0 {
		t.Errorf("default config should validate cleanly, got %v", issues)
	}
}

func TestCheckCollectsEveryIssue(t *testing.T) {
	cfg := validConfig()
	cfg.TotalImages = 0
	cfg.Specs[0].FontSize = config.IntRange{Min: 40, Max: 20}
	cfg.Specs[0].MinLines = 3
	cfg.Specs[0].MaxLines = 1
	issues := Check(cfg, Paths{})

	// One bad config run reports all three problems at once.
	for _, field := range []string{"total_images", "font_size", "lines"} {
		if !hasIssue(issues, field) {
			t.Errorf("missing issue for %s in %v", field, issues)
		}
	}
}

func TestCheckProportionSum(t *testing.T) {
	a := config.DefaultSpec()
	a.Name = "a"
	a.Proportion = 0.5
	b := config.DefaultSpec()
	b.Name = "b"
	b.Proportion = 0.4
	cfg := &config.BatchConfig{TotalImages: 10, Specs: []config.BatchSpecification{a, b}}
	if !hasIssue(Check(cfg, Paths{}), "proportion") {
		t.Error("sum 0.9 should be rejected")
	}

	b.Proportion = 0.5001
	cfg.Specs = []config.BatchSpecification{a, b}
	if hasIssue(Check(cfg, Paths{}), "proportion") {
		t.Error("sum within tolerance should pass")
	}
}

func TestCheckUnknownDistribution(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].LineSpacing = config.ParamRange{Min: 1, Max: 2, Distribution: "zipf"}
	if !hasIssue(Check(cfg, Paths{}), "line_spacing") {
		t.Error("unknown distribution should be rejected")
	}
}

func TestCheckCurveNoneRequiresZeroRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].Curve.Type = models.CurveNone
	cfg.Specs[0].Curve.Intensity = config.ParamRange{Min: 0, Max: 0.5}
	if !hasIssue(Check(cfg, Paths{}), "curve") {
		t.Error("none curve with nonzero intensity should be rejected")
	}

	cfg.Specs[0].Curve.Type = models.CurveArc
	cfg.Specs[0].Curve.Intensity = config.ParamRange{Min: 0.1, Max: 0.5, Distribution: "uniform"}
	if hasIssue(Check(cfg, Paths{}), "curve") {
		t.Error("arc curve with intensity should pass")
	}
}

func TestCheckAlignmentMustMatchDirection(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].Direction = models.DirTopToBottom
	cfg.Specs[0].TextAlignment = "left"
	if !hasIssue(Check(cfg, Paths{}), "text_alignment") {
		t.Error("left alignment is invalid for vertical text")
	}
}

func TestCheckColorModes(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].ColorMode = "rgb_range"
	if !hasIssue(Check(cfg, Paths{}), "text_color_mode") {
		t.Error("legacy rgb_range mode should be rejected")
	}

	cfg = validConfig()
	cfg.Specs[0].ColorPalette = "nonexistent"
	if !hasIssue(Check(cfg, Paths{}), "color_palette") {
		t.Error("unknown palette without custom colors should be rejected")
	}
	cfg.Specs[0].CustomColors = []models.RGB{{R: 1}}
	if hasIssue(Check(cfg, Paths{}), "color_palette") {
		t.Error("custom colors make the palette name irrelevant")
	}

	cfg = validConfig()
	cfg.Specs[0].ColorMode = models.ColorGradient
	cfg.Specs[0].CustomColors = []models.RGB{{R: 1}}
	if !hasIssue(Check(cfg, Paths{}), "text_color_mode") {
		t.Error("gradient needs two colors")
	}
}

func TestCheckBackgroundColorParses(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].BackgroundColor = "300,0,0"
	if !hasIssue(Check(cfg, Paths{}), "background_color") {
		t.Error("out-of-range component should be rejected")
	}
	cfg.Specs[0].BackgroundColor = "auto"
	if hasIssue(Check(cfg, Paths{}), "background_color") {
		t.Error("auto is always valid")
	}
}

func TestCheckPlacementStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Specs[0].Canvas.Placement = "gravity"
	if !hasIssue(Check(cfg, Paths{}), "canvas.placement") {
		t.Error("unknown placement should be rejected")
	}
}

func TestCheckResourcePaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "words.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := validConfig()
	cfg.Specs[0].CorpusFile = "words.txt"
	cfg.Specs[0].BackgroundDirs = []string{"paper"}
	paths := Paths{FontDir: dir, BackgroundDir: dir, CorpusDir: dir}

	issues := Check(cfg, paths)
	if !hasIssue(issues, "font_filter") {
		t.Error("empty font dir should be reported")
	}
	if !hasIssue(issues, "background_dirs") {
		t.Error("missing background dir should be reported")
	}
	if hasIssue(issues, "corpus_file") {
		t.Errorf("existing corpus file should pass: %v", issues)
	}

	cfg.Specs[0].CorpusFile = "missing.txt"
	if !hasIssue(Check(cfg, paths), "corpus_file") {
		t.Error("missing corpus file should be reported")
	}
}

func TestIssueString(t *testing.T) {
	i := Issue{Spec: "main", Field: "font_size", Message: "min 40 > max 20"}
	if got := i.String(); !strings.Contains(got, "main.font_size") {
		t.Errorf("String() = %q", got)
	}
}

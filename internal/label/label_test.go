package label

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"go-ocr-synth/pkg/models"
)

func TestFilenames(t *testing.T) {
	if got := ImageFilename(7); got != "image_00007.png" {
		t.Errorf("image filename = %q", got)
	}
	if got := LabelFilename(12345); got != "image_12345.json" {
		t.Errorf("label filename = %q", got)
	}
}

func TestEncodeAlwaysEmitsKeys(t *testing.T) {
	rec := &models.GenerationRecord{SchemaVersion: 1, ImageFile: "image_00000.png"}
	data, err := Encode(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	// Curve keys are present even for straight text, boxes are an empty
	// array, never null.
	for _, key := range []string{
		"schema_version", "image_file", "curve_type", "curve_intensity",
		"sine_frequency", "sine_phase", "bboxes", "lines",
		"applied_augmentations", "canvas_size", "text_placement", "seed",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("key %q missing from label", key)
		}
	}
	if m["bboxes"] == nil {
		t.Error("bboxes must be [] not null")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &models.GenerationRecord{
		SchemaVersion: 1,
		ImageFile:     ImageFilename(3),
		Plan: models.Plan{
			ImageIndex: 3,
			SpecName:   "main",
			Seed:       12345,
			Text:       "hi",
			Direction:  models.DirLeftToRight,
		},
		Lines:      []string{"hi"},
		CanvasSize: [2]int{100, 50},
		CharBBoxes: []models.CharacterBox{{Char: "h", X0: 1, Y0: 2, X1: 3, Y1: 4}},
	}
	if err := Write(dir, rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := Read(filepath.Join(dir, LabelFilename(3)))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Seed != rec.Seed || got.Text != rec.Text || len(got.CharBBoxes) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.CharBBoxes[0] != rec.CharBBoxes[0] {
		t.Errorf("box mismatch: %+v", got.CharBBoxes[0])
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing label")
	}
}

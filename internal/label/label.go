// Package label writes the per-image JSON record. The schema is
// additive-only: every key is always present, with zero values where a
// feature was not used, so downstream parsers never branch on key presence.
package label

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/pkg/models"
)

// ImageFilename returns the image file name for an index.
func ImageFilename(index int) string {
	return fmt.Sprintf("image_%05d.png", index)
}

// LabelFilename returns the label file name for an index.
func LabelFilename(index int) string {
	return fmt.Sprintf("image_%05d.json", index)
}

// Encode renders the record as indented JSON. Boxes marshal to an empty
// array rather than null when no characters were rendered.
func Encode(rec *models.GenerationRecord) ([]byte, error) {
	if rec.CharBBoxes == nil {
		rec.CharBBoxes = []models.CharacterBox{}
	}
	if rec.Lines == nil {
		rec.Lines = []string{}
	}
	if rec.AppliedAugmentations == nil {
		rec.AppliedAugmentations = []string{}
	}
	if rec.TextColors == nil {
		rec.TextColors = []models.RGB{}
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, apperrors.NewIOError("encode label", err)
	}
	return append(data, '\n'), nil
}

// Write stores the record next to its image.
func Write(dir string, rec *models.GenerationRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, LabelFilename(rec.ImageIndex))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewIOError("write label "+path, err)
	}
	return nil
}

// Read loads a record back, used by resume verification and tests.
func Read(path string) (*models.GenerationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("read label "+path, err)
	}
	var rec models.GenerationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.NewIOError("decode label "+path, err)
	}
	return &rec, nil
}

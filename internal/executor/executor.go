// Package executor runs a Plan to pixels. It draws no randomness of its own:
// every stage RNG is derived from the plan seed, so executing the same Plan
// twice yields byte-identical images and labels.
package executor

import (
	"fmt"
	"image"

	"go-ocr-synth/internal/augment"
	"go-ocr-synth/internal/canvas"
	"go-ocr-synth/internal/effect"
	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/layout"
	"go-ocr-synth/internal/plan"
	"go-ocr-synth/internal/render"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// SchemaVersion of the emitted GenerationRecord.
const SchemaVersion = 1

// Executor turns Plans into images and label records.
type Executor struct {
	Fonts       render.FontSource
	Backgrounds *canvas.Manager // nil disables photo backgrounds
}

// Execute runs the pipeline for one plan: layout, shaping, effects,
// augmentation, placement. Rasterizer panics are recovered and classified.
func (e *Executor) Execute(pl *models.Plan) (img *image.NRGBA, rec *models.GenerationRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, rec = nil, nil
			err = apperrors.NewRenderPanicError(pl.FontPath, r)
		}
	}()

	face, err := e.Fonts.Face(pl.FontPath, pl.FontSize)
	if err != nil {
		return nil, nil, err
	}
	lines, err := layout.BreakIntoLines(pl.Text, pl.NumLines, pl.LineBreakMode)
	if err != nil {
		return nil, nil, err
	}

	shapeRng := sample.New(plan.StreamSeed(pl.Seed, plan.StreamShape))
	surf, boxes, err := render.ShapeMultiline(face, lines, plan.ShapeOptions(pl), plan.LineColors(pl, lines), pl.LineSpacing, pl.TextAlignment, shapeRng)
	if err != nil {
		return nil, nil, err
	}

	effRng := sample.New(plan.StreamSeed(pl.Seed, plan.StreamEffect))
	stage, applied := effect.Chain(surf, effect.FromPlan(pl), effRng)

	augRng := sample.New(plan.StreamSeed(pl.Seed, plan.StreamAugment))
	stage, boxes, augApplied := augment.Apply(stage, boxes, pl, augRng)
	applied = append(applied, augApplied...)

	img, placeX, placeY, err := e.place(pl, stage)
	if err != nil {
		return nil, nil, err
	}
	boxes = canvas.Compose(img, stage, placeX, placeY, boxes)

	if err := checkInvariants(pl, lines, boxes, img); err != nil {
		return nil, nil, err
	}

	rec = &models.GenerationRecord{
		SchemaVersion:        SchemaVersion,
		Plan:                 *pl,
		Lines:                lines,
		CanvasSize:           [2]int{img.Bounds().Dx(), img.Bounds().Dy()},
		TextPlacement:        [2]int{placeX, placeY},
		AppliedAugmentations: applied,
		CharBBoxes:           boxes,
	}
	return img, rec, nil
}

// place builds the canvas. The planned canvas can be smaller than the
// augmented surface when warps pushed pixels outward; the canvas then grows
// to fit and the planned placement is clamped, both deterministically.
func (e *Executor) place(pl *models.Plan, stage *image.NRGBA) (*image.NRGBA, int, int, error) {
	tw, th := stage.Bounds().Dx(), stage.Bounds().Dy()
	cw, ch := pl.CanvasWidth, pl.CanvasHeight
	if cw < tw {
		cw = tw
	}
	if ch < th {
		ch = th
	}
	x := clampInt(pl.PlacementX, 0, cw-tw)
	y := clampInt(pl.PlacementY, 0, ch-th)

	if pl.BackgroundPath != "" && e.Backgrounds != nil {
		bgRng := sample.New(plan.StreamSeed(pl.Seed, plan.StreamBackground))
		region, err := e.Backgrounds.Region(pl.BackgroundPath, cw, ch, tw, th, bgRng)
		if err == nil {
			return region, x, y, nil
		}
		if !apperrors.IsKind(err, apperrors.KindBackgroundTooSmall) &&
			!apperrors.IsKind(err, apperrors.KindResourceMissing) {
			return nil, 0, 0, err
		}
		// Fall through to the solid background.
	}
	return canvas.Solid(cw, ch, pl.BackgroundColor), x, y, nil
}

// checkInvariants verifies the output contract before the record leaves the
// executor: one box per character, and every non-occluded box valid and
// inside the canvas.
func checkInvariants(pl *models.Plan, lines []string, boxes []models.CharacterBox, img *image.NRGBA) error {
	want := 0
	for _, line := range lines {
		want += len([]rune(line))
	}
	if len(boxes) != want {
		return apperrors.NewInvariantError(
			fmt.Sprintf("image %d: %d boxes for %d characters", pl.ImageIndex, len(boxes), want))
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for i, b := range boxes {
		if b.Occluded {
			continue
		}
		if !b.Valid() {
			return apperrors.NewInvariantError(
				fmt.Sprintf("image %d: box %d has no area", pl.ImageIndex, i))
		}
		if b.X0 < 0 || b.Y0 < 0 || b.X1 > w || b.Y1 > h {
			return apperrors.NewInvariantError(
				fmt.Sprintf("image %d: box %d outside canvas", pl.ImageIndex, i))
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

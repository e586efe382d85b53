package render

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/layout"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// ShapeMultiline renders each line through Shape and composites the line
// surfaces according to spacing and alignment. Boxes come back in the final
// surface's frame with LineIndex set; within a line they keep the single-line
// visual order.
//
// lineColors optionally carries one color slice per line; nil falls back to
// opts.Colors for every line.
func ShapeMultiline(face font.Face, lines []string, opts Options, lineColors [][]models.RGB, spacing float64, alignment string, rng *sample.RNG) (*image.RGBA, []models.CharacterBox, error) {
	if len(lines) == 0 {
		return emptySurface(), []models.CharacterBox{}, nil
	}
	if !layout.ValidAlignment(alignment, opts.Direction) {
		return nil, nil, apperrors.NewConfigError("alignment "+alignment+" invalid for direction "+opts.Direction, nil)
	}

	surfaces := make([]*image.RGBA, len(lines))
	lineBoxes := make([][]models.CharacterBox, len(lines))
	for i, line := range lines {
		lineOpts := opts
		if lineColors != nil && i < len(lineColors) {
			lineOpts.Colors = lineColors[i]
		}
		surf, boxes, err := Shape(face, line, lineOpts, rng)
		if err != nil {
			return nil, nil, err
		}
		surfaces[i] = surf
		lineBoxes[i] = boxes
	}
	if len(lines) == 1 {
		return surfaces[0], lineBoxes[0], nil
	}

	m := layout.FaceMetrics(face)
	cell := m.Ascent + m.Descent

	offsets := make([][2]int, len(lines))
	maxW, maxH := 0, 0
	for _, s := range surfaces {
		if w := s.Bounds().Dx(); w > maxW {
			maxW = w
		}
		if h := s.Bounds().Dy(); h > maxH {
			maxH = h
		}
	}

	width, height := 0, 0
	if isVertical(opts.Direction) {
		step := int(float64(m.AvgAdvance) * spacing * 2)
		if step < 1 {
			step = 1
		}
		for i, s := range surfaces {
			y := 0
			switch alignment {
			case "center":
				y = (maxH - s.Bounds().Dy()) / 2
			case "bottom":
				y = maxH - s.Bounds().Dy()
			}
			offsets[i] = [2]int{i * step, y}
			if r := offsets[i][0] + s.Bounds().Dx(); r > width {
				width = r
			}
		}
		height = maxH
	} else {
		step := int(float64(cell) * spacing)
		if step < 1 {
			step = 1
		}
		for i, s := range surfaces {
			x := 0
			switch alignment {
			case "center":
				x = (maxW - s.Bounds().Dx()) / 2
			case "right":
				x = maxW - s.Bounds().Dx()
			}
			offsets[i] = [2]int{x, i * step}
			if b := offsets[i][1] + s.Bounds().Dy(); b > height {
				height = b
			}
		}
		width = maxW
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	var boxes []models.CharacterBox
	for i, s := range surfaces {
		dx, dy := offsets[i][0], offsets[i][1]
		sb := s.Bounds()
		draw.Draw(dst, image.Rect(dx, dy, dx+sb.Dx(), dy+sb.Dy()), s, sb.Min, draw.Over)
		for _, b := range lineBoxes[i] {
			nb := b.Offset(dx, dy)
			nb.LineIndex = i
			boxes = append(boxes, nb)
		}
	}
	if boxes == nil {
		boxes = []models.CharacterBox{}
	}
	return dst, boxes, nil
}

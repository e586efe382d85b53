// Package layout breaks text into lines and computes multi-line metrics and
// per-line offsets for all four writing directions.
package layout

import (
	"strings"

	"golang.org/x/image/font"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/pkg/models"
)

// Line break modes.
const (
	BreakWord      = "word"
	BreakCharacter = "character"
)

// BreakIntoLines splits text into numLines lines. Word mode respects
// whitespace boundaries; character mode distributes characters as evenly as
// possible with remainders on earlier lines. A single requested line returns
// the input unchanged; empty text returns one empty line.
func BreakIntoLines(text string, numLines int, mode string) ([]string, error) {
	if numLines <= 1 {
		return []string{text}, nil
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}, nil
	}
	// Shorter than the requested line count: one character per line,
	// padded with empties.
	if len(runes) <= numLines {
		lines := make([]string, numLines)
		for i, r := range runes {
			lines[i] = string(r)
		}
		return lines, nil
	}

	switch mode {
	case BreakWord:
		return breakByWords(text, numLines), nil
	case BreakCharacter:
		return breakByCharacters(runes, numLines), nil
	}
	return nil, apperrors.NewConfigError("unknown line break mode "+mode, nil)
}

func breakByWords(text string, numLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	targetPerLine := len([]rune(text)) / numLines

	var lines []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := len([]rune(word))
		spaceLen := 0
		if len(current) > 0 {
			spaceLen = 1
		}

		wouldExceed := currentLen+spaceLen+wordLen > targetPerLine
		notLastLine := len(lines) < numLines-1

		if wouldExceed && len(current) > 0 && notLastLine {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
			currentLen = wordLen
		} else {
			current = append(current, word)
			currentLen += spaceLen + wordLen
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	for len(lines) < numLines {
		lines = append(lines, "")
	}
	return lines[:numLines]
}

func breakByCharacters(runes []rune, numLines int) []string {
	perLine := len(runes) / numLines
	remainder := len(runes) % numLines

	lines := make([]string, 0, numLines)
	start := 0
	for i := 0; i < numLines; i++ {
		length := perLine
		if i < remainder {
			length++
		}
		lines = append(lines, string(runes[start:start+length]))
		start += length
	}
	return lines
}

// Metrics describes a face at the size the shaper will render with.
type Metrics struct {
	Ascent  int
	Descent int
	// AvgAdvance estimates one character cell for vertical layout.
	AvgAdvance int
}

// FaceMetrics measures a font face.
func FaceMetrics(face font.Face) Metrics {
	m := face.Metrics()
	ascent := m.Ascent.Ceil()
	descent := m.Descent.Ceil()
	avg := m.Height.Ceil() * 6 / 10
	if avg < 1 {
		avg = 1
	}
	return Metrics{Ascent: ascent, Descent: descent, AvgAdvance: avg}
}

func lineWidth(line string, face font.Face, overlap float64) int {
	w := 0.0
	for _, ch := range line {
		adv, ok := face.GlyphAdvance(ch)
		if !ok {
			continue
		}
		w += float64(adv.Ceil()) * (1 - overlap)
	}
	return int(w)
}

// MultilineDimensions computes the total (width, height) needed for the
// lines. For horizontal directions, height is cumulative with the spacing
// multiplier; for vertical directions, width is cumulative.
func MultilineDimensions(lines []string, face font.Face, spacing float64, direction string, overlap float64) (int, int) {
	empty := true
	for _, l := range lines {
		if l != "" {
			empty = false
			break
		}
	}
	if len(lines) == 0 || empty {
		return 0, 0
	}

	m := FaceMetrics(face)
	charHeight := m.Ascent + m.Descent

	if horizontal(direction) {
		lineHeight := int(float64(charHeight) * spacing)
		maxWidth := 0
		for _, line := range lines {
			if w := lineWidth(line, face, overlap); w > maxWidth {
				maxWidth = w
			}
		}
		return maxWidth, lineHeight * len(lines)
	}

	lineOffset := int(float64(m.AvgAdvance) * spacing * 2)
	maxHeight := 0
	for _, line := range lines {
		h := int(float64(len([]rune(line))*charHeight) * (1 - overlap))
		if h > maxHeight {
			maxHeight = h
		}
	}
	return lineOffset * len(lines), maxHeight
}

// LinePositions returns the (dx, dy) offset for each line. Alignment must be
// left/center/right for horizontal directions and top/center/bottom for
// vertical ones; anything else is a configuration error.
func LinePositions(lines []string, face font.Face, spacing float64, alignment, direction string) ([][2]int, error) {
	if !ValidAlignment(alignment, direction) {
		return nil, apperrors.NewConfigError("alignment "+alignment+" invalid for direction "+direction, nil)
	}

	m := FaceMetrics(face)
	charHeight := m.Ascent + m.Descent
	positions := make([][2]int, len(lines))

	if horizontal(direction) {
		lineHeight := int(float64(charHeight) * spacing)
		widths := make([]int, len(lines))
		maxWidth := 0
		for i, line := range lines {
			widths[i] = lineWidth(line, face, 0)
			if widths[i] > maxWidth {
				maxWidth = widths[i]
			}
		}
		for i := range lines {
			x := 0
			switch alignment {
			case "center":
				x = (maxWidth - widths[i]) / 2
			case "right":
				x = maxWidth - widths[i]
			}
			positions[i] = [2]int{x, i * lineHeight}
		}
		return positions, nil
	}

	lineOffset := int(float64(m.AvgAdvance) * spacing * 2)
	heights := make([]int, len(lines))
	maxHeight := 0
	for i, line := range lines {
		heights[i] = len([]rune(line)) * charHeight
		if heights[i] > maxHeight {
			maxHeight = heights[i]
		}
	}
	for i := range lines {
		y := 0
		switch alignment {
		case "center":
			y = (maxHeight - heights[i]) / 2
		case "bottom":
			y = maxHeight - heights[i]
		}
		positions[i] = [2]int{i * lineOffset, y}
	}
	return positions, nil
}

// ValidAlignment reports whether the alignment is usable for the direction.
func ValidAlignment(alignment, direction string) bool {
	if horizontal(direction) {
		return alignment == "left" || alignment == "center" || alignment == "right"
	}
	return alignment == "top" || alignment == "center" || alignment == "bottom"
}

func horizontal(direction string) bool {
	return direction == models.DirLeftToRight || direction == models.DirRightToLeft
}

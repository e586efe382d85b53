package render

import (
	"golang.org/x/text/unicode/bidi"

	"go-ocr-synth/pkg/models"
)

// VisualOrder reorders logical text into visual order for the given base
// direction. The visual sequence is read in the paragraph's own direction,
// so for RTL text index 0 is the rightmost glyph; the RTL kernel renders it
// first, starting at the right edge. LTR and vertical directions render in
// logical order. The function is pure.
func VisualOrder(text, direction string) string {
	if direction != models.DirRightToLeft {
		return text
	}
	var p bidi.Paragraph
	p.SetString(text, bidi.DefaultDirection(bidi.RightToLeft))
	ordering, err := p.Order()
	if err != nil {
		return text
	}
	// Left-to-right visual form first, then flip so the sequence starts
	// at the right edge. Pure RTL text round-trips to its logical order;
	// embedded LTR runs (digits, Latin) come out mirrored as a block.
	ltrVisual := make([]rune, 0, len(text))
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		s := run.String()
		if run.Direction() == bidi.RightToLeft {
			s = reverseRunes(s)
		}
		ltrVisual = append(ltrVisual, []rune(s)...)
	}
	return reverseRunes(string(ltrVisual))
}

func reverseRunes(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

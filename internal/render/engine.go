// Package render turns text strings into transparent RGBA surfaces with
// exact per-character bounding boxes. It supports four writing directions,
// optional curved baselines, glyph overlap, and per-glyph color.
package render

import (
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	apperrors "go-ocr-synth/internal/errors"
)

// FontSource opens font faces at a given point size. The shaper depends only
// on this interface plus font.Face, so tests can substitute bitmap faces.
type FontSource interface {
	// Face returns a face for the font file at the requested size. Faces
	// are not safe for concurrent use; callers obtain one per task.
	Face(path string, size int) (font.Face, error)
	// HasGlyph reports whether the font covers the rune.
	HasGlyph(path string, ch rune) (bool, error)
}

// OpenTypeSource is the production FontSource backed by the opentype
// rasterizer. Parsed fonts are cached per path; the parsed *sfnt.Font is
// read-only and shared, while each Face call builds a fresh face with its
// own scratch buffers.
type OpenTypeSource struct {
	mu    sync.Mutex
	fonts map[string]*sfnt.Font
	dpi   float64
}

// NewOpenTypeSource creates a source rendering at 72 DPI (point == pixel).
func NewOpenTypeSource() *OpenTypeSource {
	return &OpenTypeSource{fonts: make(map[string]*sfnt.Font), dpi: 72}
}

func (s *OpenTypeSource) parsed(path string) (*sfnt.Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fonts[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewResourceMissingError("font file "+path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, &apperrors.GenError{
			Kind:     apperrors.KindRenderPanic,
			Message:  "parse font",
			Resource: path,
			Cause:    err,
		}
	}
	s.fonts[path] = f
	return f, nil
}

// Face implements FontSource.
func (s *OpenTypeSource) Face(path string, size int) (font.Face, error) {
	f, err := s.parsed(path)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     s.dpi,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, &apperrors.GenError{
			Kind:     apperrors.KindRenderPanic,
			Message:  "build face",
			Resource: path,
			Cause:    err,
		}
	}
	return face, nil
}

// HasGlyph implements FontSource.
func (s *OpenTypeSource) HasGlyph(path string, ch rune) (bool, error) {
	f, err := s.parsed(path)
	if err != nil {
		return false, err
	}
	var buf sfnt.Buffer
	idx, err := f.GlyphIndex(&buf, ch)
	if err != nil {
		return false, nil
	}
	return idx != 0, nil
}

// CanRenderText reports whether the font covers every rune in text.
func CanRenderText(src FontSource, path, text string) (bool, error) {
	for _, ch := range text {
		if ch == ' ' {
			continue
		}
		ok, err := src.HasGlyph(path, ch)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

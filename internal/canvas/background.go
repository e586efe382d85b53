package canvas

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"go-ocr-synth/internal/config"
	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/health"
	"go-ocr-synth/internal/sample"
)

// Manager picks background images and crops canvas-sized regions out of
// them. Unusable backgrounds are penalized through the health tracker so
// repeat offenders drop out of the selection pool.
type Manager struct {
	files   []string
	tracker *health.Tracker
	open    func(path string) (image.Image, error)
}

// ManagerOption adjusts a Manager.
type ManagerOption func(*Manager)

// WithOpener substitutes the image loader, used by tests to avoid disk I/O.
func WithOpener(open func(path string) (image.Image, error)) ManagerOption {
	return func(m *Manager) { m.open = open }
}

// NewManager creates a Manager over the discovered background files.
func NewManager(files []string, tracker *health.Tracker, opts ...ManagerOption) *Manager {
	m := &Manager{
		files:   files,
		tracker: tracker,
		open: func(path string) (image.Image, error) {
			return imaging.Open(path)
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Discover lists background files under the directories matching the glob
// pattern.
func Discover(dirs []string, pattern string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		matches, err := config.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// Files returns the discovered background paths.
func (m *Manager) Files() []string { return m.files }

// Pick selects a healthy background, weighting by the supplied function
// (nil weights everything equally). The u draw comes from the per-image RNG
// so selection is deterministic.
func (m *Manager) Pick(weight func(string) float64, u float64) (string, error) {
	if len(m.files) == 0 {
		return "", apperrors.NewNoHealthyResourceError("background")
	}
	if weight == nil {
		weight = func(string) float64 { return 1 }
	}
	return m.tracker.Select(m.files, weight, u)
}

// Region crops a canvasW x canvasH region out of the background at a random
// offset. A background smaller than the canvas is a moderate failure; one
// smaller than the text itself is severe and penalized twice. Backgrounds
// are never resized.
func (m *Manager) Region(path string, canvasW, canvasH, textW, textH int, rng *sample.RNG) (*image.NRGBA, error) {
	img, err := m.open(path)
	if err != nil {
		e := apperrors.NewResourceMissingError("background "+path, err)
		m.tracker.RecordFailure(path, string(apperrors.KindResourceMissing))
		return nil, e
	}
	b := img.Bounds()
	bw, bh := b.Dx(), b.Dy()

	if bw < textW || bh < textH {
		e := apperrors.NewBackgroundTooSmallError(path,
			fmt.Sprintf("background %dx%d smaller than text %dx%d", bw, bh, textW, textH))
		// Severe: cannot even hold the text. Penalized twice.
		m.tracker.RecordFailure(path, string(apperrors.KindBackgroundTooSmall))
		m.tracker.RecordFailure(path, string(apperrors.KindBackgroundTooSmall))
		return nil, e
	}
	if bw < canvasW || bh < canvasH {
		e := apperrors.NewBackgroundTooSmallError(path,
			fmt.Sprintf("background %dx%d smaller than canvas %dx%d", bw, bh, canvasW, canvasH))
		m.tracker.RecordFailure(path, string(apperrors.KindBackgroundTooSmall))
		return nil, e
	}

	x := rng.IntBetween(0, bw-canvasW)
	y := rng.IntBetween(0, bh-canvasH)
	crop := imaging.Crop(img, image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+canvasW, b.Min.Y+y+canvasH))
	m.tracker.RecordSuccess(path)
	return crop, nil
}

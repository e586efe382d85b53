// Package corpus streams bounded text segments out of one or more corpus
// files. Readers hold a small sliding buffer so memory stays constant no
// matter how large the corpus is. Each worker owns its own Reader; segment
// randomness comes from the per-image RNG passed by the caller.
package corpus

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/sample"
)

const (
	// maxBufferedRunes bounds the sliding buffer (well under 64 KiB of
	// UTF-8 for any script).
	maxBufferedRunes = 16 * 1024
	readChunkBytes   = 4 * 1024
	extractRetries   = 5
)

// Reader extracts text segments from a weighted set of corpus files.
type Reader struct {
	files   []string
	weights []float64

	fileIdx int
	current *bufio.Reader
	closer  io.Closer
	// cycleReads counts files opened since the last successful buffer
	// fill; a full cycle with no new text means the corpus is exhausted.
	cycleOpens int

	buf []rune
}

// New creates a reader over an explicit file list with optional per-file
// weights (pattern-keyed, default 1.0).
func New(files []string, weights map[string]float64) (*Reader, error) {
	if len(files) == 0 {
		return nil, apperrors.NewResourceMissingError("no corpus files", nil)
	}
	r := &Reader{files: files}
	for _, f := range files {
		w := 1.0
		for pattern, pw := range weights {
			if ok, _ := filepath.Match(strings.ToLower(pattern), strings.ToLower(filepath.Base(f))); ok {
				w = pw
				break
			}
		}
		r.weights = append(r.weights, w)
	}
	return r, nil
}

// FromPattern creates a reader over all files matching a glob pattern.
func FromPattern(pattern string, weights map[string]float64) (*Reader, error) {
	files, err := config.Glob(pattern)
	if err != nil || len(files) == 0 {
		return nil, apperrors.NewResourceMissingError("corpus pattern "+pattern, err)
	}
	return New(files, weights)
}

// FromDirectory creates a reader over files in a directory matching pattern.
func FromDirectory(dir, pattern string, weights map[string]float64) (*Reader, error) {
	if pattern == "" {
		pattern = "*.txt"
	}
	return FromPattern(filepath.Join(dir, pattern), weights)
}

// FromSpec builds the reader a batch specification asks for: a single file,
// a directory, or a glob, in that order of precedence. Relative paths are
// resolved against baseDir.
func FromSpec(spec *config.BatchSpecification, baseDir string) (*Reader, error) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || baseDir == "" {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	switch {
	case spec.CorpusFile != "":
		return New([]string{resolve(spec.CorpusFile)}, spec.CorpusWeights)
	case spec.CorpusDir != "":
		return FromDirectory(resolve(spec.CorpusDir), spec.TextPattern, spec.CorpusWeights)
	case spec.CorpusPattern != "":
		return FromPattern(resolve(spec.CorpusPattern), spec.CorpusWeights)
	}
	return nil, apperrors.NewConfigError("spec "+spec.Name+" selects no corpus", nil)
}

// Files returns the resolved file list.
func (r *Reader) Files() []string {
	return r.files
}

// ExtractSegment returns a text segment whose rune length lies within
// [minLen, maxLen], with internal newlines collapsed to single spaces.
// The RNG decides the segment length; the cursor advances round-robin
// through the files.
func (r *Reader) ExtractSegment(rng *sample.RNG, minLen, maxLen int) (string, error) {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	for attempt := 0; attempt < extractRetries; attempt++ {
		want := rng.IntBetween(minLen, maxLen)
		if err := r.fill(rng, maxLen); err != nil {
			return "", err
		}
		if len(r.buf) < minLen {
			continue
		}
		if want > len(r.buf) {
			want = len(r.buf)
		}
		seg := strings.TrimSpace(string(r.buf[:want]))
		r.buf = r.buf[want:]
		if len([]rune(seg)) >= minLen {
			return seg, nil
		}
		// Trimming ate too much; slide forward and retry.
	}
	return "", apperrors.NewCorpusEmptyError("no text available after retries")
}

// fill tops the buffer up to at least need*2 runes (capped), reading from
// the current file and rotating to the next on EOF.
func (r *Reader) fill(rng *sample.RNG, need int) error {
	target := need * 2
	if target > maxBufferedRunes {
		target = maxBufferedRunes
	}

	for len(r.buf) < target {
		if r.current == nil {
			if err := r.openNext(rng); err != nil {
				if len(r.buf) > 0 {
					return nil
				}
				return err
			}
		}

		// Decode runewise so a multi-byte rune never splits across reads.
		var sb strings.Builder
		var err error
		for sb.Len() < readChunkBytes {
			var ch rune
			ch, _, err = r.current.ReadRune()
			if err != nil {
				break
			}
			sb.WriteRune(ch)
		}
		if sb.Len() > 0 {
			r.cycleOpens = 0
			r.append(sb.String())
		}
		if err != nil {
			r.closeCurrent()
			if err != io.EOF {
				return apperrors.NewIOError("read corpus", err)
			}
		}
	}
	return nil
}

// append normalizes whitespace (newlines become spaces, runs collapse) and
// pushes runes onto the buffer, dropping the oldest on overflow.
func (r *Reader) append(s string) {
	lastSpace := len(r.buf) > 0 && r.buf[len(r.buf)-1] == ' '
	for _, ch := range s {
		if unicode.IsSpace(ch) {
			if lastSpace {
				continue
			}
			ch = ' '
			lastSpace = true
		} else {
			lastSpace = false
		}
		r.buf = append(r.buf, ch)
	}
	if len(r.buf) > maxBufferedRunes {
		r.buf = r.buf[len(r.buf)-maxBufferedRunes:]
	}
}

// openNext opens the next source: a weighted draw when per-file weights are
// configured, plain round-robin otherwise.
func (r *Reader) openNext(rng *sample.RNG) error {
	if r.cycleOpens >= len(r.files) {
		r.cycleOpens = 0
		return apperrors.NewCorpusEmptyError("all corpus files exhausted")
	}
	idx := r.fileIdx % len(r.files)
	if r.weighted() {
		idx = r.pickWeighted(rng)
	}
	path := r.files[idx]
	r.fileIdx++
	r.cycleOpens++

	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewResourceMissingError("corpus file "+path, err)
	}
	r.current = bufio.NewReaderSize(f, readChunkBytes)
	r.closer = f
	return nil
}

func (r *Reader) weighted() bool {
	for _, w := range r.weights {
		if w != 1.0 {
			return true
		}
	}
	return false
}

func (r *Reader) pickWeighted(rng *sample.RNG) int {
	total := 0.0
	for _, w := range r.weights {
		total += w
	}
	if total <= 0 {
		return r.fileIdx % len(r.files)
	}
	target := rng.Float64() * total
	cumulative := 0.0
	for i, w := range r.weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(r.files) - 1
}

func (r *Reader) closeCurrent() {
	if r.closer != nil {
		r.closer.Close()
	}
	r.current = nil
	r.closer = nil
}

// Close releases the currently open file.
func (r *Reader) Close() error {
	r.closeCurrent()
	return nil
}

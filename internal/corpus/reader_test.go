package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/sample"
)

func writeCorpus(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	return path
}

func TestExtractSegmentBounds(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir, "a.txt", strings.Repeat("the quick brown fox jumps over the lazy dog ", 50))

	r, err := New([]string{path}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer r.Close()

	rng := sample.New(1)
	for i := 0; i < 50; i++ {
		seg, err := r.ExtractSegment(rng, 5, 20)
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		n := len([]rune(seg))
		if n < 5 || n > 20 {
			t.Errorf("segment length %d outside [5, 20]: %q", n, seg)
		}
	}
}

func TestExtractCollapsesNewlines(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir, "a.txt", "line one\nline two\r\nline three\n\n\nline four "+strings.Repeat("pad ", 100))

	r, _ := New([]string{path}, nil)
	defer r.Close()

	rng := sample.New(2)
	seg, err := r.ExtractSegment(rng, 20, 40)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.ContainsAny(seg, "\n\r") {
		t.Errorf("segment contains raw newline: %q", seg)
	}
	if strings.Contains(seg, "  ") {
		t.Errorf("segment contains collapsed-whitespace run: %q", seg)
	}
}

func TestExtractRotatesFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeCorpus(t, dir, "a.txt", "alpha alpha alpha alpha")
	b := writeCorpus(t, dir, "b.txt", "bravo bravo bravo bravo")

	r, _ := New([]string{a, b}, nil)
	defer r.Close()

	rng := sample.New(3)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seg, err := r.ExtractSegment(rng, 4, 8)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if strings.Contains(seg, "alpha") {
			seen["a"] = true
		}
		if strings.Contains(seg, "bravo") {
			seen["b"] = true
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("round-robin never reached both files: %v", seen)
	}
}

func TestEmptyCorpusError(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir, "empty.txt", "")

	r, _ := New([]string{path}, nil)
	defer r.Close()

	rng := sample.New(4)
	_, err := r.ExtractSegment(rng, 5, 10)
	if err == nil {
		t.Fatal("expected error from empty corpus")
	}
	kind := apperrors.KindOf(err)
	if kind != apperrors.KindCorpusEmpty {
		t.Errorf("error kind = %v, want corpus_empty", kind)
	}
}

func TestNewRequiresFiles(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for empty file list")
	}
}

func TestFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "one.txt", "some text here for reading purposes")
	writeCorpus(t, dir, "two.md", "should not match")

	r, err := FromDirectory(dir, "*.txt", nil)
	if err != nil {
		t.Fatalf("from directory: %v", err)
	}
	defer r.Close()
	if len(r.Files()) != 1 {
		t.Errorf("expected 1 matched file, got %d", len(r.Files()))
	}
}

func TestFromSpecPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := writeCorpus(t, dir, "direct.txt", "content")
	writeCorpus(t, dir, "other.txt", "content")

	spec := config.DefaultSpec()
	spec.Name = "s"
	spec.CorpusFile = file
	spec.CorpusDir = dir // file takes precedence

	r, err := FromSpec(&spec, "")
	if err != nil {
		t.Fatalf("from spec: %v", err)
	}
	defer r.Close()
	if len(r.Files()) != 1 || r.Files()[0] != file {
		t.Errorf("files = %v, want just %s", r.Files(), file)
	}

	none := config.DefaultSpec()
	none.Name = "empty"
	if _, err := FromSpec(&none, ""); err == nil {
		t.Error("expected error when spec selects no corpus")
	}
}

func TestExtractKeepsMultiByteRunesIntact(t *testing.T) {
	dir := t.TempDir()
	// Hebrew text sized so rune boundaries land mid-way through the read
	// chunk size many times over.
	path := writeCorpus(t, dir, "he.txt", strings.Repeat("שלום עולם ", 2000))

	r, _ := New([]string{path}, nil)
	defer r.Close()

	rng := sample.New(6)
	for i := 0; i < 200; i++ {
		seg, err := r.ExtractSegment(rng, 5, 20)
		if err != nil {
			t.Fatalf("extract %d: %v", i, err)
		}
		if !utf8.ValidString(seg) || strings.ContainsRune(seg, utf8.RuneError) {
			t.Fatalf("extract %d produced corrupted text: %q", i, seg)
		}
		for _, ch := range seg {
			if ch != ' ' && !unicode.Is(unicode.Hebrew, ch) {
				t.Fatalf("extract %d produced foreign rune %q in %q", i, ch, seg)
			}
		}
	}
}

func TestMemoryBounded(t *testing.T) {
	dir := t.TempDir()
	// 4 MB corpus; buffer must stay capped regardless.
	path := writeCorpus(t, dir, "big.txt", strings.Repeat("wordy content stream ", 200000))

	r, _ := New([]string{path}, nil)
	defer r.Close()

	rng := sample.New(5)
	for i := 0; i < 10; i++ {
		if _, err := r.ExtractSegment(rng, 10, 30); err != nil {
			t.Fatalf("extract: %v", err)
		}
		if len(r.buf) > maxBufferedRunes {
			t.Fatalf("buffer grew to %d runes, cap is %d", len(r.buf), maxBufferedRunes)
		}
	}
}

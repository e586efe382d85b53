package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	apperrors "go-ocr-synth/internal/errors"
)

// Load reads a batch configuration from a YAML file. Unknown keys are
// rejected only in strict mode. Defaults are applied per specification
// before unmarshalling so absent keys keep their documented values.
func Load(path string, strict bool) (*BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewResourceMissingError("config file "+path, err)
	}
	return Parse(data, strict)
}

// Parse decodes a batch configuration from YAML bytes.
func Parse(data []byte, strict bool) (*BatchConfig, error) {
	// First pass pulls out the raw spec nodes so each can be decoded over
	// a fresh default specification.
	var raw struct {
		TotalImages int         `yaml:"total_images"`
		Seed        *uint64     `yaml:"seed"`
		Batches     []yaml.Node `yaml:"batches"`
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(strict)
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.NewConfigError("parse config", err)
	}

	cfg := &BatchConfig{
		TotalImages: raw.TotalImages,
		Seed:        raw.Seed,
	}
	if cfg.TotalImages == 0 {
		cfg.TotalImages = 100
	}

	for i := range raw.Batches {
		spec := DefaultSpec()
		if err := raw.Batches[i].Decode(&spec); err != nil {
			return nil, apperrors.NewConfigError("parse batch specification", err)
		}
		cfg.Specs = append(cfg.Specs, spec)
	}
	return cfg, nil
}

// patternWeight resolves a weight map keyed by glob pattern against a name.
// Patterns support brace alternation (e.g. "*.{ttf,otf}").
func patternWeight(weights map[string]float64, name string) float64 {
	base := strings.ToLower(filepath.Base(name))
	for pattern, w := range weights {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), base); ok {
			return w
		}
	}
	return 1.0
}

// MatchPattern reports whether a filename matches a comma-separated list of
// glob patterns, case-insensitively.
func MatchPattern(patterns, name string) bool {
	base := strings.ToLower(filepath.Base(name))
	for _, pattern := range strings.Split(patterns, ",") {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Glob expands a pattern with brace-alternation support, returning matches
// sorted by the filesystem walk order.
func Glob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern)
}

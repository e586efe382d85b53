package scheduler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"go-ocr-synth/internal/config"
	apperrors "go-ocr-synth/internal/errors"
)

// CheckpointFile is the checkpoint's name inside the output directory.
const CheckpointFile = ".generation_checkpoint"

// Checkpoint records which image indices finished, bound to the exact
// configuration that produced them.
type Checkpoint struct {
	ConfigHash string `json:"config_hash"`
	Total      int    `json:"total"`
	Completed  []int  `json:"completed"`
}

// ConfigHash fingerprints a batch configuration for resume validation.
func ConfigHash(cfg *config.BatchConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CompletedSet returns the completed indices as a set.
func (c *Checkpoint) CompletedSet() map[int]bool {
	set := make(map[int]bool, len(c.Completed))
	for _, idx := range c.Completed {
		set[idx] = true
	}
	return set
}

// Save writes the checkpoint atomically: a temp file in the same directory
// is renamed over the old checkpoint, so a crash mid-write never leaves a
// torn file.
func (c *Checkpoint) Save(dir string) error {
	sort.Ints(c.Completed)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return apperrors.NewIOError("encode checkpoint", err)
	}

	tmp, err := os.CreateTemp(dir, CheckpointFile+".tmp-*")
	if err != nil {
		return apperrors.NewIOError("create checkpoint temp", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewIOError("write checkpoint", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewIOError("close checkpoint", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, CheckpointFile)); err != nil {
		os.Remove(tmpName)
		return apperrors.NewIOError("rename checkpoint", err)
	}
	return nil
}

// LoadCheckpoint reads the checkpoint if one exists; a missing file is not
// an error, it just means a fresh run.
func LoadCheckpoint(dir string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(dir, CheckpointFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.NewIOError("read checkpoint", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperrors.NewIOError("decode checkpoint", err)
	}
	return &c, nil
}

// Package health tracks per-resource reliability for fonts and background
// images. Scores steer weighted selection away from resources that keep
// failing; exponential-backoff cooldowns take them out of rotation entirely.
package health

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/logger"
)

const (
	maxScore         = 100.0
	successIncrement = 1.0
	failureDecrement = 10.0
)

// Record is the health state for a single resource.
type Record struct {
	ResourceID          string             `json:"resource_id"`
	Score               float64            `json:"score"`
	SuccessCount        int                `json:"success_count"`
	FailureCount        int                `json:"failure_count"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	CooldownUntil       time.Time          `json:"cooldown_until"`
	LastErrorKind       string             `json:"last_error_kind,omitempty"`
	FailureReasons      map[string]int     `json:"failure_reasons,omitempty"`
}

// Tracker maintains a mutex-guarded health table. It is shared across
// workers; selection takes a consistent snapshot under the lock.
type Tracker struct {
	mu           sync.Mutex
	records      map[string]*Record
	threshold    float64
	baseCooldown time.Duration
	maxCooldown  time.Duration
	now          func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithThreshold overrides the minimum score for a resource to stay eligible.
func WithThreshold(t float64) Option {
	return func(tr *Tracker) { tr.threshold = t }
}

// WithCooldown overrides the base and maximum cooldown durations.
func WithCooldown(base, max time.Duration) Option {
	return func(tr *Tracker) { tr.baseCooldown = base; tr.maxCooldown = max }
}

// WithClock injects a clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(tr *Tracker) { tr.now = now }
}

// NewTracker creates a tracker with the default threshold (50) and a
// 5-minute base cooldown capped at one hour.
func NewTracker(opts ...Option) *Tracker {
	tr := &Tracker{
		records:      make(map[string]*Record),
		threshold:    50.0,
		baseCooldown: 5 * time.Minute,
		maxCooldown:  time.Hour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

func (tr *Tracker) getOrCreate(id string) *Record {
	rec, ok := tr.records[id]
	if !ok {
		rec = &Record{ResourceID: id, Score: maxScore, FailureReasons: map[string]int{}}
		tr.records[id] = rec
	}
	return rec
}

// RecordSuccess bumps the score by one (capped at 100), resets the failure
// streak, and clears any cooldown.
func (tr *Tracker) RecordSuccess(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	rec := tr.getOrCreate(id)
	rec.SuccessCount++
	rec.ConsecutiveFailures = 0
	rec.CooldownUntil = time.Time{}
	if rec.Score = rec.Score + successIncrement; rec.Score > maxScore {
		rec.Score = maxScore
	}
}

// RecordFailure drops the score by ten (floored at 0), extends the failure
// streak, and applies an exponential-backoff cooldown.
func (tr *Tracker) RecordFailure(id string, kind string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	rec := tr.getOrCreate(id)
	rec.FailureCount++
	rec.ConsecutiveFailures++
	rec.LastErrorKind = kind
	if rec.FailureReasons == nil {
		rec.FailureReasons = map[string]int{}
	}
	rec.FailureReasons[kind]++
	if rec.Score = rec.Score - failureDecrement; rec.Score < 0 {
		rec.Score = 0
	}

	cooldown := tr.baseCooldown << (rec.ConsecutiveFailures - 1)
	if cooldown > tr.maxCooldown || cooldown <= 0 {
		cooldown = tr.maxCooldown
	}
	rec.CooldownUntil = tr.now().Add(cooldown)

	logger.WithFields(logrus.Fields{
		"resource":             id,
		"kind":                 kind,
		"score":                rec.Score,
		"consecutive_failures": rec.ConsecutiveFailures,
		"cooldown":             cooldown.String(),
	}).Debug("resource failure recorded")
}

// Score returns the current score for a resource (100 if never seen).
func (tr *Tracker) Score(id string) float64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.getOrCreate(id).Score
}

// Eligible reports whether a resource currently passes the health filter.
func (tr *Tracker) Eligible(id string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	rec := tr.getOrCreate(id)
	return rec.Score >= tr.threshold && !tr.now().Before(rec.CooldownUntil)
}

// Select draws one resource from candidates with probability proportional to
// weight(candidate) x score, restricted to eligible resources. The random
// value in [0, 1) comes from the caller so selection stays deterministic
// under the per-image RNG.
func (tr *Tracker) Select(candidates []string, weight func(string) float64, u float64) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := tr.now()
	eligible := make([]string, 0, len(candidates))
	weights := make([]float64, 0, len(candidates))
	total := 0.0
	for _, id := range candidates {
		rec := tr.getOrCreate(id)
		if rec.Score < tr.threshold || now.Before(rec.CooldownUntil) {
			continue
		}
		w := rec.Score
		if weight != nil {
			w *= weight(id)
		}
		if w <= 0 {
			continue
		}
		eligible = append(eligible, id)
		weights = append(weights, w)
		total += w
	}

	if len(eligible) == 0 {
		return "", apperrors.NewNoHealthyResourceError("no eligible resource among candidates")
	}

	target := u * total
	cumulative := 0.0
	for i, id := range eligible {
		cumulative += weights[i]
		if target < cumulative {
			return id, nil
		}
	}
	return eligible[len(eligible)-1], nil
}

// snapshotFile is the serialized form of the health table.
type snapshotFile struct {
	SavedAt time.Time          `json:"saved_at"`
	Records map[string]*Record `json:"records"`
}

// Snapshot serializes the table.
func (tr *Tracker) Snapshot() ([]byte, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return json.MarshalIndent(snapshotFile{SavedAt: tr.now(), Records: tr.records}, "", "  ")
}

// Restore rehydrates the table from a snapshot, replacing current state.
func (tr *Tracker) Restore(data []byte) error {
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return apperrors.NewIOError("decode health snapshot", err)
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.records = snap.Records
	if tr.records == nil {
		tr.records = make(map[string]*Record)
	}
	return nil
}

// SaveFile writes the snapshot to disk.
func (tr *Tracker) SaveFile(path string) error {
	data, err := tr.Snapshot()
	if err != nil {
		return apperrors.NewIOError("encode health snapshot", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewIOError("write health snapshot "+path, err)
	}
	return nil
}

// LoadFile restores the snapshot from disk; a missing file is not an error.
func (tr *Tracker) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.NewIOError("read health snapshot "+path, err)
	}
	return tr.Restore(data)
}

// Summary aggregates the table for the end-of-run report.
type Summary struct {
	TotalResources int     `json:"total_resources"`
	Healthy        int     `json:"healthy"`
	InCooldown     int     `json:"in_cooldown"`
	AverageScore   float64 `json:"average_score"`
	TotalSuccesses int     `json:"total_successes"`
	TotalFailures  int     `json:"total_failures"`
}

// Summarize computes aggregate statistics over all tracked resources.
func (tr *Tracker) Summarize() Summary {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	s := Summary{TotalResources: len(tr.records)}
	now := tr.now()
	sum := 0.0
	for _, rec := range tr.records {
		sum += rec.Score
		if now.Before(rec.CooldownUntil) {
			s.InCooldown++
		} else if rec.Score >= tr.threshold {
			s.Healthy++
		}
		s.TotalSuccesses += rec.SuccessCount
		s.TotalFailures += rec.FailureCount
	}
	if len(tr.records) > 0 {
		s.AverageScore = sum / float64(len(tr.records))
	}
	return s
}

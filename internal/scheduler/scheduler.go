// Package scheduler drives a generation run: it allocates image quotas
// across batch specs, streams tasks in deterministic index order, fans them
// out to generation workers, writes results through an I/O pool, and
// checkpoints progress after every chunk so interrupted runs can resume.
package scheduler

import (
	"context"
	"image"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"go-ocr-synth/internal/canvas"
	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/corpus"
	apperrors "go-ocr-synth/internal/errors"
	"go-ocr-synth/internal/executor"
	"go-ocr-synth/internal/health"
	"go-ocr-synth/internal/label"
	"go-ocr-synth/internal/logger"
	"go-ocr-synth/internal/plan"
	"go-ocr-synth/internal/render"
	"go-ocr-synth/internal/sample"
	"go-ocr-synth/pkg/models"
)

// State file names written next to the images.
const (
	FontHealthFile = "font_health.state"
	BGScoresFile   = "background_scores.state"
)

// Options configures a run.
type Options struct {
	OutputDir     string
	FontDir       string
	BackgroundDir string
	CorpusDir     string
	GenWorkers    int
	IOWorkers     int
	ChunkSize     int
	IOBatchSize   int
	RetryBudget   int
	Resume        bool
	PersistHealth bool
	MasterSeed    uint64
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		GenWorkers:  runtime.NumCPU(),
		IOWorkers:   2,
		ChunkSize:   100,
		IOBatchSize: 16,
		RetryBudget: 3,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.GenWorkers <= 0 {
		o.GenWorkers = d.GenWorkers
	}
	if o.IOWorkers <= 0 {
		o.IOWorkers = d.IOWorkers
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.IOBatchSize <= 0 {
		o.IOBatchSize = d.IOBatchSize
	}
	if o.RetryBudget <= 0 {
		o.RetryBudget = d.RetryBudget
	}
	return o
}

// Resources holds everything discovered before a run: fonts, corpora, and
// backgrounds per spec, plus the health trackers shared across specs.
type Resources struct {
	Fonts       render.FontSource
	SpecFonts   map[string][]string
	Corpora     map[string]*corpus.Reader
	Backgrounds map[string]*canvas.Manager
	FontHealth  *health.Tracker
	BGHealth    *health.Tracker
}

// DiscoverResources resolves every spec's globs against the base
// directories and fails fast when a spec has no fonts or no corpus.
func DiscoverResources(cfg *config.BatchConfig, opts Options) (*Resources, error) {
	res := &Resources{
		Fonts:       render.NewOpenTypeSource(),
		SpecFonts:   map[string][]string{},
		Corpora:     map[string]*corpus.Reader{},
		Backgrounds: map[string]*canvas.Manager{},
		FontHealth:  health.NewTracker(),
		BGHealth:    health.NewTracker(),
	}

	for i := range cfg.Specs {
		spec := &cfg.Specs[i]
		fonts, err := config.Glob(filepath.Join(opts.FontDir, spec.FontPattern))
		if err != nil {
			return nil, err
		}
		if len(fonts) == 0 {
			return nil, apperrors.NewResourceMissingError(
				"no fonts match "+spec.FontPattern+" for spec "+spec.Name, nil)
		}
		res.SpecFonts[spec.Name] = fonts

		reader, err := corpus.FromSpec(spec, opts.CorpusDir)
		if err != nil {
			return nil, err
		}
		res.Corpora[spec.Name] = reader

		if len(spec.BackgroundDirs) > 0 {
			dirs := make([]string, len(spec.BackgroundDirs))
			for j, d := range spec.BackgroundDirs {
				if !filepath.IsAbs(d) && opts.BackgroundDir != "" {
					d = filepath.Join(opts.BackgroundDir, d)
				}
				dirs[j] = d
			}
			files, err := canvas.Discover(dirs, spec.BackgroundPattern)
			if err != nil {
				return nil, err
			}
			res.Backgrounds[spec.Name] = canvas.NewManager(files, res.BGHealth)
		}
	}
	return res, nil
}

// Summary is the end-of-run report.
type Summary struct {
	Requested   int
	Generated   int
	Skipped     int
	PerSpec     map[string]int
	SkipReasons map[string]int
	Cancelled   bool
	FontHealth  health.Summary
}

// Scheduler runs one batch configuration to completion.
type Scheduler struct {
	cfg  *config.BatchConfig
	opts Options
	res  *Resources
}

// New assembles a scheduler over pre-discovered resources.
func New(cfg *config.BatchConfig, opts Options, res *Resources) *Scheduler {
	return &Scheduler{cfg: cfg, opts: opts.normalized(), res: res}
}

type chunkTask struct {
	task models.Task
	spec *config.BatchSpecification
}

type chunkResult struct {
	index    int
	img      *image.NRGBA
	rec      *models.GenerationRecord
	skipKind string
}

// Run generates all images. It returns the summary even on cancellation so
// callers can report partial progress.
func (s *Scheduler) Run(ctx context.Context) (*Summary, error) {
	hash := ConfigHash(s.cfg)
	completed := map[int]bool{}
	if s.opts.Resume {
		cp, err := LoadCheckpoint(s.opts.OutputDir)
		if err != nil {
			return nil, err
		}
		if cp != nil {
			if cp.ConfigHash != hash {
				logger.WithFields(logrus.Fields{
					"checkpoint_hash": cp.ConfigHash,
					"config_hash":     hash,
				}).Warn("checkpoint was written by a different configuration; resuming anyway")
			}
			completed = cp.CompletedSet()
			logger.WithField("completed", len(completed)).Info("resuming run")
		}
	}
	if s.opts.PersistHealth {
		if err := s.res.FontHealth.LoadFile(filepath.Join(s.opts.OutputDir, FontHealthFile)); err != nil {
			logger.WithError(err).Warn("could not load font health state")
		}
		if err := s.res.BGHealth.LoadFile(filepath.Join(s.opts.OutputDir, BGScoresFile)); err != nil {
			logger.WithError(err).Warn("could not load background score state")
		}
	}

	proportions := make([]float64, len(s.cfg.Specs))
	for i := range s.cfg.Specs {
		proportions[i] = s.cfg.Specs[i].Proportion
	}
	order := Interleave(Allocate(s.cfg.TotalImages, proportions))

	summary := &Summary{
		Requested:   s.cfg.TotalImages,
		PerSpec:     map[string]int{},
		SkipReasons: map[string]int{},
	}
	cp := &Checkpoint{ConfigHash: hash, Total: s.cfg.TotalImages}
	for idx := range completed {
		cp.Completed = append(cp.Completed, idx)
	}

	for start := 0; start < len(order); start += s.opts.ChunkSize {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		end := start + s.opts.ChunkSize
		if end > len(order) {
			end = len(order)
		}

		tasks := s.buildChunk(order, start, end, completed, summary)
		results := s.runChunk(ctx, tasks)
		written, writeErr := s.writeResults(results, summary)

		for _, idx := range written {
			completed[idx] = true
			cp.Completed = append(cp.Completed, idx)
		}
		if writeErr != nil {
			// Exhausted write retries are fatal; flush what did complete.
			if err := cp.Save(s.opts.OutputDir); err != nil {
				logger.WithError(err).Error("could not save checkpoint while aborting")
			}
			return summary, writeErr
		}
		if err := cp.Save(s.opts.OutputDir); err != nil {
			return summary, err
		}
		if s.opts.PersistHealth {
			s.persistHealth()
		}
	}

	if ctx.Err() != nil {
		summary.Cancelled = true
	}
	summary.FontHealth = s.res.FontHealth.Summarize()
	s.logSummary(summary)
	return summary, nil
}

// buildChunk extracts corpus text and selects a font for every pending index
// in [start, end). This runs on the coordinating goroutine because corpus
// readers are sequential.
func (s *Scheduler) buildChunk(order []int, start, end int, completed map[int]bool, summary *Summary) []chunkTask {
	var tasks []chunkTask
	for i := start; i < end; i++ {
		if completed[i] {
			continue
		}
		spec := &s.cfg.Specs[order[i]]
		rng := sample.New(plan.StreamSeed(plan.Seed(s.opts.MasterSeed, i, spec.Name), "task"))

		text, err := s.res.Corpora[spec.Name].ExtractSegment(rng, spec.MinTextLength, spec.MaxTextLength)
		if err != nil {
			s.skip(summary, spec, apperrors.KindOf(err), i, err)
			continue
		}
		fontPath, err := s.selectFont(spec, rng.Float64())
		if err != nil {
			s.skip(summary, spec, apperrors.KindOf(err), i, err)
			continue
		}
		tasks = append(tasks, chunkTask{
			task: models.Task{SpecName: spec.Name, Text: text, FontPath: fontPath, ImageIndex: i},
			spec: spec,
		})
	}
	return tasks
}

func (s *Scheduler) selectFont(spec *config.BatchSpecification, u float64) (string, error) {
	return s.res.FontHealth.Select(s.res.SpecFonts[spec.Name], func(path string) float64 {
		return spec.FontWeight(filepath.Base(path))
	}, u)
}

// runChunk fans the chunk out to the generation workers and collects the
// results by slot, preserving index order.
func (s *Scheduler) runChunk(ctx context.Context, tasks []chunkTask) []chunkResult {
	results := make([]chunkResult, len(tasks))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.opts.GenWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				results[slot] = s.generate(ctx, tasks[slot])
			}
		}()
	}
	for slot := range tasks {
		if ctx.Err() != nil {
			results[slot] = chunkResult{index: tasks[slot].task.ImageIndex, skipKind: "cancelled"}
			continue
		}
		jobs <- slot
	}
	close(jobs)
	wg.Wait()
	return results
}

// generate plans and executes one task, retrying with a fresh font on
// retryable failures up to the budget.
func (s *Scheduler) generate(ctx context.Context, ct chunkTask) chunkResult {
	task := ct.task
	retryRng := sample.New(plan.StreamSeed(plan.Seed(s.opts.MasterSeed, task.ImageIndex, task.SpecName), "retry"))

	var lastKind apperrors.ErrorKind
	for attempt := 0; attempt <= s.opts.RetryBudget; attempt++ {
		if ctx.Err() != nil {
			return chunkResult{index: task.ImageIndex, skipKind: "cancelled"}
		}

		planner := &plan.Planner{
			MasterSeed:  s.opts.MasterSeed,
			Fonts:       s.res.Fonts,
			Backgrounds: s.res.Backgrounds[task.SpecName],
		}
		exec := &executor.Executor{
			Fonts:       s.res.Fonts,
			Backgrounds: s.res.Backgrounds[task.SpecName],
		}

		pl, err := planner.Build(task, ct.spec)
		if err == nil {
			var img *image.NRGBA
			var rec *models.GenerationRecord
			img, rec, err = exec.Execute(pl)
			if err == nil {
				s.res.FontHealth.RecordSuccess(task.FontPath)
				return chunkResult{index: task.ImageIndex, img: img, rec: rec}
			}
		}

		lastKind = apperrors.KindOf(err)
		logger.WithFields(logrus.Fields{
			"image_index": task.ImageIndex,
			"spec":        task.SpecName,
			"font":        task.FontPath,
			"kind":        string(lastKind),
			"attempt":     attempt,
		}).WithError(err).Warn("generation attempt failed")

		if lastKind == apperrors.KindGlyphMiss || lastKind == apperrors.KindRenderPanic {
			s.res.FontHealth.RecordFailure(task.FontPath, string(lastKind))
		}
		if !apperrors.Retryable(lastKind) {
			break
		}
		next, selErr := s.selectFont(ct.spec, retryRng.Float64())
		if selErr != nil {
			lastKind = apperrors.KindOf(selErr)
			break
		}
		task.FontPath = next
	}
	return chunkResult{index: task.ImageIndex, skipKind: string(lastKind)}
}

// writeResults pushes successful results through the I/O pool in batches and
// returns the indices that were fully written. A write that exhausts its
// retry budget aborts the run, so the error comes back alongside whatever
// made it to disk first.
func (s *Scheduler) writeResults(results []chunkResult, summary *Summary) ([]int, error) {
	var batches [][]chunkResult
	var batch []chunkResult
	for _, r := range results {
		if r.rec == nil {
			if r.skipKind != "" {
				summary.Skipped++
				summary.SkipReasons[r.skipKind]++
			}
			continue
		}
		batch = append(batch, r)
		if len(batch) >= s.opts.IOBatchSize {
			batches = append(batches, batch)
			batch = nil
		}
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}

	var mu sync.Mutex
	var written []int
	var writeErr error
	jobs := make(chan []chunkResult)
	var wg sync.WaitGroup
	for w := 0; w < s.opts.IOWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				for _, r := range b {
					if err := s.writeOne(r); err != nil {
						logger.WithField("image_index", r.index).WithError(err).Error("write failed after retries")
						mu.Lock()
						if writeErr == nil {
							writeErr = err
						}
						mu.Unlock()
						continue
					}
					mu.Lock()
					written = append(written, r.index)
					summary.Generated++
					summary.PerSpec[r.rec.SpecName]++
					mu.Unlock()
				}
			}
		}()
	}
	for _, b := range batches {
		jobs <- b
	}
	close(jobs)
	wg.Wait()
	return written, writeErr
}

// writeOne saves the image and its label, retrying I/O failures with the same
// budget generation gets before declaring them fatal.
func (s *Scheduler) writeOne(r chunkResult) error {
	r.rec.ImageFile = label.ImageFilename(r.index)
	imgPath := filepath.Join(s.opts.OutputDir, r.rec.ImageFile)

	var err error
	for attempt := 0; attempt <= s.opts.RetryBudget; attempt++ {
		if err = imaging.Save(r.img, imgPath); err == nil {
			if err = label.Write(s.opts.OutputDir, r.rec); err == nil {
				return nil
			}
		}
		logger.WithFields(logrus.Fields{
			"image_index": r.index,
			"attempt":     attempt,
		}).WithError(err).Warn("write attempt failed")
	}
	return apperrors.NewIOError("write result "+imgPath, err)
}

func (s *Scheduler) skip(summary *Summary, spec *config.BatchSpecification, kind apperrors.ErrorKind, idx int, err error) {
	summary.Skipped++
	summary.SkipReasons[string(kind)]++
	logger.WithFields(logrus.Fields{
		"image_index": idx,
		"spec":        spec.Name,
		"kind":        string(kind),
	}).WithError(err).Warn("task skipped")
}

func (s *Scheduler) persistHealth() {
	if err := s.res.FontHealth.SaveFile(filepath.Join(s.opts.OutputDir, FontHealthFile)); err != nil {
		logger.WithError(err).Warn("could not persist font health")
	}
	if err := s.res.BGHealth.SaveFile(filepath.Join(s.opts.OutputDir, BGScoresFile)); err != nil {
		logger.WithError(err).Warn("could not persist background scores")
	}
}

func (s *Scheduler) logSummary(summary *Summary) {
	logger.WithFields(logrus.Fields{
		"requested": summary.Requested,
		"generated": summary.Generated,
		"skipped":   summary.Skipped,
		"per_spec":  summary.PerSpec,
		"reasons":   summary.SkipReasons,
		"cancelled": summary.Cancelled,
	}).Info("generation run finished")
}

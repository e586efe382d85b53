// Command ocrsynth generates synthetic text images with character-level
// bounding box labels from a YAML batch configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-ocr-synth/internal/config"
	"go-ocr-synth/internal/logger"
	"go-ocr-synth/internal/scheduler"
	"go-ocr-synth/internal/validate"
)

// Exit codes.
const (
	exitOK         = 0
	exitUnexpected = 1
	exitInvalid    = 2
	exitPartial    = 3
	exitCancelled  = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath    = flag.String("config", "", "path to the YAML batch configuration (required)")
		outputDir     = flag.String("output-dir", "output", "directory for images, labels, and run state")
		fontDir       = flag.String("font-dir", "fonts", "base directory for font globs")
		backgroundDir = flag.String("background-dir", "backgrounds", "base directory for background globs")
		corpusDir     = flag.String("corpus-dir", "corpora", "base directory for corpus files")
		genWorkers    = flag.Int("generation-workers", 0, "generation workers (0 = number of CPUs)")
		ioWorkers     = flag.Int("io-workers", 0, "image/label writer workers (0 = default)")
		chunkSize     = flag.Int("chunk-size", 0, "images per checkpointed chunk (0 = default)")
		ioBatchSize   = flag.Int("io-batch-size", 0, "results per write batch (0 = default)")
		resume        = flag.Bool("resume", false, "skip images already recorded in the checkpoint")
		persistHealth = flag.Bool("persist-health", false, "load and save font/background health state across runs")
		strict        = flag.Bool("strict", false, "reject unknown configuration keys")
		logLevel      = flag.String("log-level", "info", "debug, info, warn, or error")
		seedOverride  = flag.Uint64("seed-override", 0, "override the configured master seed (0 = use config)")
	)
	flag.Parse()
	logger.SetLevel(*logLevel)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "ocrsynth: -config is required")
		flag.Usage()
		return exitInvalid
	}

	cfg, err := config.Load(*configPath, *strict)
	if err != nil {
		logger.WithError(err).Error("could not load configuration")
		return exitInvalid
	}

	issues := validate.Check(cfg, validate.Paths{
		FontDir:       *fontDir,
		BackgroundDir: *backgroundDir,
		CorpusDir:     *corpusDir,
	})
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, "ocrsynth: "+issue.String())
		}
		logger.WithField("issues", len(issues)).Error("configuration is invalid")
		return exitInvalid
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.WithError(err).Error("could not create output directory")
		return exitUnexpected
	}

	seed := uint64(time.Now().UnixNano())
	switch {
	case *seedOverride != 0:
		seed = *seedOverride
	case cfg.Seed != nil:
		seed = *cfg.Seed
	}

	opts := scheduler.DefaultOptions()
	opts.OutputDir = *outputDir
	opts.FontDir = *fontDir
	opts.BackgroundDir = *backgroundDir
	opts.CorpusDir = *corpusDir
	opts.Resume = *resume
	opts.PersistHealth = *persistHealth
	opts.MasterSeed = seed
	if *genWorkers > 0 {
		opts.GenWorkers = *genWorkers
	}
	if *ioWorkers > 0 {
		opts.IOWorkers = *ioWorkers
	}
	if *chunkSize > 0 {
		opts.ChunkSize = *chunkSize
	}
	if *ioBatchSize > 0 {
		opts.IOBatchSize = *ioBatchSize
	}

	res, err := scheduler.DiscoverResources(cfg, opts)
	if err != nil {
		logger.WithError(err).Error("resource discovery failed")
		return exitInvalid
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"total_images": cfg.TotalImages,
		"batches":      len(cfg.Specs),
		"seed":         seed,
		"workers":      opts.GenWorkers,
	}).Info("starting generation run")

	summary, err := scheduler.New(cfg, opts, res).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("run failed")
		return exitUnexpected
	}
	switch {
	case summary.Cancelled:
		return exitCancelled
	case summary.Skipped > 0:
		return exitPartial
	}
	return exitOK
}

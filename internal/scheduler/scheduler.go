package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webpmill/internal/workers"
	"webpmill/pkg/magick"
	"webpmill/pkg/paths"
	"webpmill/pkg/probe"
	"webpmill/pkg/stats"
	"webpmill/pkg/utils"
)

// Prober classifies one source file. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, sourcePath string) probe.Classification
}

// Converter converts one source file to WebP. *magick.Converter satisfies it.
type Converter interface {
	Convert(ctx context.Context, req magick.Request) (*magick.Result, error)
}

// Options configure a conversion run.
type Options struct {
	InputRoot  string
	OutputRoot string
	Quality    int
	Lossless   bool

	// AppendName controls collision handling: true renames colliding
	// destinations with a " (N)" suffix, false skips them.
	AppendName bool

	// Concurrency is the ceiling on tasks probing or converting at once.
	Concurrency int

	// Extensions is the discovery allow-list, lowercase with leading dots.
	Extensions []string
}

// Task pairs one discovered source file with the run's conversion
// parameters. Immutable once created; exactly one exists per discovered file.
type Task struct {
	SourcePath      string
	DestinationPath string // mirrored candidate, before collision resolution
	Quality         int
	Lossless        bool
}

// Scheduler discovers candidate files and runs one conversion task per file
// under a bounded worker pool, folding every outcome into a run report.
type Scheduler struct {
	opts      Options
	prober    Prober
	converter Converter
	logger    *zap.Logger
}

// New creates a scheduler. The concurrency ceiling travels with opts, so
// concurrent runs with different ceilings never interfere.
func New(opts Options, prober Prober, converter Converter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		opts:      opts,
		prober:    prober,
		converter: converter,
		logger:    logger,
	}
}

// Run executes one conversion run: discovery, bounded fan-out, aggregation.
// The returned error covers fatal preconditions and cancellation only;
// per-file failures never abort sibling tasks and surface in the report.
func (s *Scheduler) Run(ctx context.Context) (*stats.RunReport, error) {
	runID := uuid.NewString()

	s.logger.Info("Starting conversion run",
		zap.String("run_id", runID),
		zap.String("input_root", s.opts.InputRoot),
		zap.String("output_root", s.opts.OutputRoot),
		zap.Int("quality", s.opts.Quality),
		zap.Bool("lossless", s.opts.Lossless),
		zap.Bool("append_name", s.opts.AppendName),
		zap.Int("concurrency", s.opts.Concurrency))

	if !utils.DirExists(s.opts.InputRoot) {
		return nil, fmt.Errorf("input root does not exist: %s", s.opts.InputRoot)
	}
	if err := utils.EnsureDir(s.opts.OutputRoot); err != nil {
		return nil, utils.WrapErrorf(err, "failed to create output root %s", s.opts.OutputRoot)
	}

	files, err := Discover(s.opts.InputRoot, s.opts.Extensions, s.logger)
	if err != nil {
		return nil, err
	}

	collector := stats.NewCollector()
	mirror := paths.NewMirror(s.opts.InputRoot, s.opts.OutputRoot, ".webp")
	resolver := paths.NewResolver(s.opts.AppendName)

	poolConfig := workers.DefaultPoolConfig()
	poolConfig.Workers = s.opts.Concurrency

	pool := workers.NewPool(ctx, poolConfig, s.logger)
	if err := pool.Start(); err != nil {
		return nil, utils.WrapError(err, "failed to start worker pool")
	}

	for _, file := range files {
		candidate, mirrorErr := mirror.DestinationFor(file)
		if mirrorErr != nil {
			collector.Record(stats.Outcome{
				SourcePath: file,
				Status:     stats.StatusFailed,
				Reason:     mirrorErr.Error(),
			})
			s.logger.Error("Failed to prepare destination",
				zap.String("file", file),
				zap.Error(mirrorErr))
			continue
		}

		task := &Task{
			SourcePath:      file,
			DestinationPath: candidate,
			Quality:         s.opts.Quality,
			Lossless:        s.opts.Lossless,
		}

		submitErr := pool.Submit(&workers.Task{
			ID: task.SourcePath,
			Process: func(taskCtx context.Context) {
				s.processTask(taskCtx, task, resolver, collector)
			},
		})
		if submitErr != nil {
			// Submission only fails once the run is cancelled.
			break
		}
	}

	pool.Drain()

	report := collector.GetReport(runID)

	s.logger.Info("Conversion run complete",
		zap.String("run_id", runID),
		zap.Int64("total", report.TotalTasks),
		zap.Int64("succeeded", report.Succeeded),
		zap.Int64("skipped", report.Skipped),
		zap.Int64("failed", report.Failed),
		zap.Int64("unrecognized", report.Unrecognized),
		zap.String("elapsed", report.ElapsedTime))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, fmt.Errorf("run cancelled: %w", ctxErr)
	}

	return report, nil
}

// processTask runs the per-file pipeline: resolve destination, probe, convert.
// Every exit path records exactly one outcome.
func (s *Scheduler) processTask(ctx context.Context, task *Task, resolver *paths.Resolver, collector *stats.Collector) {
	logger := s.logger.With(zap.String("file", task.SourcePath))

	// --- Resolve destination ---

	destination, ok := resolver.Resolve(task.DestinationPath)
	if !ok {
		collector.Record(stats.Outcome{
			SourcePath: task.SourcePath,
			Status:     stats.StatusSkipped,
			OutputPath: task.DestinationPath,
			Reason:     "destination already exists",
		})
		logger.Info("Skipping, destination already exists",
			zap.String("destination", task.DestinationPath))
		return
	}

	// --- Probe ---

	classification := s.prober.Probe(ctx, task.SourcePath)
	switch classification.Category {
	case probe.ProbeFailed:
		collector.Record(stats.Outcome{
			SourcePath: task.SourcePath,
			Status:     stats.StatusFailed,
			Reason:     classification.Reason,
		})
		logger.Warn("Probe failed", zap.String("reason", classification.Reason))
		return

	case probe.Unrecognized:
		collector.Record(stats.Outcome{
			SourcePath: task.SourcePath,
			Status:     stats.StatusUnrecognized,
			Codec:      classification.Codec,
		})
		logger.Warn("Unrecognized codec", zap.String("codec", classification.Codec))
		return
	}

	// --- Convert ---

	logger.Info("Converting",
		zap.String("destination", destination),
		zap.String("codec", classification.Codec),
		zap.Int("quality", task.Quality))

	result, err := s.converter.Convert(ctx, magick.Request{
		SourcePath:   task.SourcePath,
		OutputPath:   destination,
		Quality:      task.Quality,
		Lossless:     task.Lossless,
		AnimatedApng: classification.Category == probe.RecognizedAnimatedApng,
	})
	if err != nil {
		collector.Record(stats.Outcome{
			SourcePath: task.SourcePath,
			Status:     stats.StatusFailed,
			Reason:     err.Error(),
		})
		logger.Warn("Conversion failed", zap.Error(err))
		return
	}

	collector.Record(stats.Outcome{
		SourcePath: task.SourcePath,
		Status:     stats.StatusSucceeded,
		OutputPath: destination,
		SourceSize: result.SourceSize,
		OutputSize: result.OutputSize,
		Duration:   result.Duration,
	})
	logger.Info("Converted",
		zap.String("destination", destination),
		zap.Int64("source_size", result.SourceSize),
		zap.Int64("output_size", result.OutputSize),
		zap.Duration("duration", result.Duration))
}

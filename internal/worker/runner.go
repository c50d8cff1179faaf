package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/pixelforge/internal/domain"
	"github.com/dunamismax/pixelforge/internal/id"
	"github.com/dunamismax/pixelforge/internal/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	runStatusSucceeded = "succeeded"
	runStatusFailed    = "failed"
)

type directoryProcessor interface {
	ProcessDirectory(ctx context.Context, sourceDir, outputDir string, versions []domain.Version) (domain.DirectoryResult, error)
}

// Job is one directory conversion request.
type Job struct {
	SourceDir string
	OutputDir string
	Versions  []domain.Version
	// MetricsFile, when set, receives the registry after the run.
	MetricsFile string
}

// Summary describes a finished run.
type Summary struct {
	RunID         string        `json:"run_id"`
	Images        int           `json:"images"`
	Variants      int           `json:"variants"`
	OutputBytes   int64         `json:"output_bytes"`
	PixelsWritten int64         `json:"pixels_written"`
	Duration      time.Duration `json:"duration"`
}

// Runner executes directory jobs with logging, tracing and metrics around the pipeline.
type Runner struct {
	logger    *zap.Logger
	processor directoryProcessor
	metrics   *metrics
	tracer    trace.Tracer
}

func NewRunner(logger *zap.Logger, processor directoryProcessor) (*Runner, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		logger:    logger,
		processor: processor,
		metrics:   newMetrics(),
		tracer:    otel.Tracer("pixelforge/worker"),
	}, nil
}

func (r *Runner) Run(ctx context.Context, job Job) (domain.DirectoryResult, Summary, error) {
	startedAt := time.Now()
	outcome := runStatusFailed
	summary := Summary{RunID: id.New()}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	ctx, span := r.tracer.Start(ctx, "worker.run", trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.String("run.source", job.SourceDir),
		attribute.String("run.output", job.OutputDir),
		attribute.Int("run.versions", len(job.Versions)),
	))
	defer span.End()

	r.metrics.activeRuns.Inc()
	defer func() {
		r.metrics.activeRuns.Dec()
		r.metrics.runDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		r.metrics.runsTotal.WithLabelValues(outcome).Inc()
		r.flushMetrics(logger, job.MetricsFile)
	}()

	logger.Info("starting run",
		zap.String("source", job.SourceDir),
		zap.String("output", job.OutputDir),
		zap.Ints("versions", heights(job.Versions)),
		zap.String("engine", pipeline.EngineName),
	)

	result, err := r.processor.ProcessDirectory(ctx, job.SourceDir, job.OutputDir, job.Versions)
	summary.Duration = time.Since(startedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		logger.Error("run failed", zap.Error(err), zap.Duration("duration", summary.Duration))
		return nil, summary, fmt.Errorf("run %s: %w", summary.RunID, err)
	}

	r.measure(ctx, logger, job.OutputDir, result, &summary)
	r.recordSummary(summary)

	outcome = runStatusSucceeded
	span.SetAttributes(
		attribute.Int("run.images", summary.Images),
		attribute.Int("run.variants", summary.Variants),
	)
	span.SetStatus(codes.Ok, "processed")
	logger.Info("run complete",
		zap.Int("images", summary.Images),
		zap.Int("variants", summary.Variants),
		zap.Int64("output_bytes", summary.OutputBytes),
		zap.Duration("duration", summary.Duration),
	)
	return result, summary, nil
}

// measure sizes every derived file. A file that cannot be read is logged and skipped.
func (r *Runner) measure(ctx context.Context, logger *zap.Logger, outputDir string, result domain.DirectoryResult, summary *Summary) {
	for source, variants := range result {
		summary.Images++
		for key, name := range variants {
			summary.Variants++

			info, err := pipeline.Sniff(ctx, filepath.Join(outputDir, name))
			if err != nil {
				logger.Warn("measure output failed",
					zap.String("source", source),
					zap.String("variant", key),
					zap.Error(err),
				)
				continue
			}
			summary.OutputBytes += info.SizeBytes
			summary.PixelsWritten += int64(info.Width) * int64(info.Height)
		}
	}
}

func (r *Runner) recordSummary(summary Summary) {
	r.metrics.imagesProcessedTotal.Add(float64(summary.Images))
	r.metrics.variantsWrittenTotal.Add(float64(summary.Variants))
	r.metrics.bytesWrittenTotal.Add(float64(summary.OutputBytes))
	r.metrics.pixelsWrittenTotal.Add(float64(summary.PixelsWritten))
}

func (r *Runner) flushMetrics(logger *zap.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := r.metrics.writeTextfile(path); err != nil {
		logger.Warn("metrics flush failed", zap.String("path", path), zap.Error(err))
	}
}

func heights(versions []domain.Version) []int {
	out := make([]int, len(versions))
	for i, v := range versions {
		out[i] = v.Height
	}
	return out
}

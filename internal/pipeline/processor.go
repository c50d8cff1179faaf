package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dunamismax/pixelforge/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Processor turns source images into their named, resized and optimized derivatives.
type Processor struct {
	engine    Engine
	optimizer Optimizer
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewProcessor builds a Processor on the engine selected at build time. A
// nil optimizer disables optimization; a nil logger discards logs.
func NewProcessor(optimizer Optimizer, logger *zap.Logger) (*Processor, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	if optimizer == nil {
		optimizer = NopOptimizer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		engine:    engine,
		optimizer: optimizer,
		logger:    logger,
		tracer:    otel.Tracer("pixelforge/pipeline"),
	}, nil
}

// Probe sniffs a source image with the processor's engine.
func (p *Processor) Probe(ctx context.Context, path string) (domain.ImageInfo, error) {
	return p.engine.Probe(ctx, path)
}

type variantOutput struct {
	key  string
	name string
	path string
}

// ProcessFile writes the original plus one derivative per requested version
// of path into outputDir, optimizes exactly those files, and returns the
// derived base names keyed by variant. Any failure aborts the job; files
// already written are left in place.
func (p *Processor) ProcessFile(ctx context.Context, path, outputDir string, versions []domain.Version) (domain.ProcessingResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process_file", trace.WithAttributes(
		attribute.String("image.source", path),
		attribute.Int("image.versions", len(versions)),
	))
	defer span.End()

	result, err := p.processFile(ctx, path, outputDir, versions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process file failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "processed")
	return result, nil
}

func (p *Processor) processFile(ctx context.Context, path, outputDir string, versions []domain.Version) (domain.ProcessingResult, error) {
	if err := ValidateFile(path); err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	if err := ValidateOutputDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	for i, v := range versions {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validate stage: versions[%d]: %w", i, err)
		}
	}

	info, err := p.engine.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("sniff stage: %w", err)
	}
	if _, err := OutputFormat(path); err != nil {
		return nil, fmt.Errorf("sniff stage: %w", err)
	}

	tasks := variantTasks(versions)
	outputs := make([]variantOutput, len(tasks))

	var g errgroup.Group
	for i, version := range tasks {
		i, version := i, version
		g.Go(func() error {
			out, err := p.renderVariant(ctx, info, outputDir, version)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	written := make([]string, len(outputs))
	result := make(domain.ProcessingResult, len(outputs))
	for i, out := range outputs {
		written[i] = out.path
		result[out.key] = out.name
	}

	if err := p.optimizer.Optimize(ctx, written); err != nil {
		return nil, fmt.Errorf("optimize stage: %w", err)
	}

	p.logger.Info("processed image",
		zap.String("source", path),
		zap.String("format", string(info.Format)),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("variants", len(result)),
	)
	return result, nil
}

// variantTasks returns the original (nil) followed by one task per distinct
// height. Repeated heights map to the same file, so rendering them once is
// indistinguishable from overwriting.
func variantTasks(versions []domain.Version) []*domain.Version {
	tasks := make([]*domain.Version, 0, len(versions)+1)
	tasks = append(tasks, nil)

	seen := make(map[int]struct{}, len(versions))
	for _, v := range versions {
		v := v
		if _, ok := seen[v.Height]; ok {
			continue
		}
		seen[v.Height] = struct{}{}
		tasks = append(tasks, &v)
	}
	return tasks
}

func (p *Processor) renderVariant(ctx context.Context, info domain.ImageInfo, outputDir string, version *domain.Version) (variantOutput, error) {
	key := domain.VariantKey(version)

	name := DeriveFilename(info.Path, info.Width, info.Height, version)
	dst := filepath.Join(outputDir, name)
	plan := PlanVariant(info, version)

	ctx, span := p.tracer.Start(ctx, "pipeline.render_variant", trace.WithAttributes(
		attribute.String("variant.key", key),
		attribute.String("variant.output", name),
		attribute.Bool("variant.resize", plan.Resize),
	))
	defer span.End()

	if err := p.engine.Render(ctx, info, plan, dst); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return variantOutput{}, fmt.Errorf("render stage variant=%s: %w", key, err)
	}

	p.logger.Debug("wrote variant",
		zap.String("variant", key),
		zap.String("output", name),
		zap.Bool("resized", plan.Resize),
	)
	return variantOutput{key: key, name: name, path: dst}, nil
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunamismax/pixelforge/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".png":  {},
}

// SupportedExtension reports whether name carries one of the accepted image
// extensions, compared case-insensitively. A name that is only an extension,
// like ".png", has none.
func SupportedExtension(name string) bool {
	ext := filepath.Ext(name)
	if ext == filepath.Base(name) {
		return false
	}
	_, ok := supportedExtensions[strings.ToLower(ext)]
	return ok
}

// ProcessDirectory runs ProcessFile for every image directly inside
// sourceDir, all at once. It returns the results keyed by source file name,
// or the first error with no partial results.
func (p *Processor) ProcessDirectory(ctx context.Context, sourceDir, outputDir string, versions []domain.Version) (domain.DirectoryResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process_directory", trace.WithAttributes(
		attribute.String("directory.source", sourceDir),
		attribute.String("directory.output", outputDir),
	))
	defer span.End()

	result, err := p.processDirectory(ctx, sourceDir, outputDir, versions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "process directory failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("directory.images", len(result)))
	span.SetStatus(codes.Ok, "processed")
	return result, nil
}

func (p *Processor) processDirectory(ctx context.Context, sourceDir, outputDir string, versions []domain.Version) (domain.DirectoryResult, error) {
	if err := ValidateSourceDirectory(sourceDir); err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	if err := ValidateOutputDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}

	names, err := listImages(sourceDir)
	if err != nil {
		return nil, err
	}
	p.logger.Info("processing directory",
		zap.String("source", sourceDir),
		zap.String("output", outputDir),
		zap.Int("images", len(names)),
		zap.Int("versions", len(versions)),
	)

	results := make([]domain.ProcessingResult, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			r, err := p.ProcessFile(ctx, filepath.Join(sourceDir, name), outputDir, versions)
			if err != nil {
				return fmt.Errorf("process %s: %w", name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(domain.DirectoryResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

// listImages returns the names of entries directly inside dir whose
// extension is supported. Entry kind is not checked here; a directory named
// like an image fails later in ValidateFile.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read directory %s: %w", ErrIO, dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if SupportedExtension(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dunamismax/pixelforge/internal/domain"
)

const (
	// Requests at or above LargeVariantHeight only shrink sources of at least LargeVariantMinKB.
	LargeVariantHeight = 400
	LargeVariantMinKB  = 70.0

	outputQuality = 82

	unsharpSigma     = 0.25
	unsharpAmount    = 8.0
	unsharpThreshold = 0.065

	// triangle filter window, in source pixels either side of the sample
	triangleSupport = 2.0
)

// Engine decodes, post-processes and re-encodes images. Implementations are
// stateless and safe for concurrent use.
type Engine interface {
	Probe(ctx context.Context, path string) (domain.ImageInfo, error)
	Render(ctx context.Context, src domain.ImageInfo, plan RenderPlan, dst string) error
}

// OutputFormat is the encoding for a file written at path. It follows the
// extension, not the source content, so a PNG named .jpg becomes a JPEG.
func OutputFormat(path string) (domain.Format, error) {
	ext := filepath.Ext(path)
	format, ok := domain.FormatForExtension(ext)
	if !ok {
		return "", fmt.Errorf("%w: no encoder for extension %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// RenderPlan says whether a variant is scaled, and to which height.
type RenderPlan struct {
	TargetHeight int
	Resize       bool
}

// PlanVariant decides the resize for one variant of src. The original is
// never resized. A version is resized when it is smaller than
// LargeVariantHeight, or when the source file weighs at least
// LargeVariantMinKB.
func PlanVariant(src domain.ImageInfo, version *domain.Version) RenderPlan {
	if version == nil {
		return RenderPlan{}
	}
	return RenderPlan{
		TargetHeight: version.Height,
		Resize:       shouldResize(version.Height, src.SizeKB()),
	}
}

func shouldResize(height int, sizeKB float64) bool {
	return height < LargeVariantHeight || sizeKB >= LargeVariantMinKB
}

// scaledWidth keeps the aspect ratio of srcW x srcH at the given height.
func scaledWidth(srcW, srcH, height int) int {
	if srcH <= 0 {
		return 1
	}
	w := int(float64(srcW)*float64(height)/float64(srcH) + 0.5)
	return max(1, w)
}

//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/pixelforge/internal/domain"
)

type govipsEngine struct{}

// Probe trusts libvips' own reading of the file instead of magic bytes.
func (govipsEngine) Probe(ctx context.Context, path string) (domain.ImageInfo, error) {
	select {
	case <-ctx.Done():
		return domain.ImageInfo{}, ctx.Err()
	default:
	}

	stat, err := os.Stat(path)
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	info := domain.ImageInfo{Path: path, SizeBytes: stat.Size()}

	img, err := vips.NewImageFromFile(path)
	if err != nil {
		return info, fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, path, err)
	}
	defer img.Close()

	info.Width, info.Height = img.Width(), img.Height()
	switch t := img.Format(); t {
	case vips.ImageTypeGIF:
		info.Format = domain.FormatGIF
	case vips.ImageTypePNG:
		info.Format = domain.FormatPNG
	case vips.ImageTypeJPEG:
		info.Format = domain.FormatJPEG
	default:
		info.Format = domain.Format(vips.ImageTypes[t])
		return info, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, path, info.Format)
	}
	return info, nil
}

func (govipsEngine) Render(ctx context.Context, src domain.ImageInfo, plan RenderPlan, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	format, err := OutputFormat(dst)
	if err != nil {
		return err
	}

	img, err := vips.NewImageFromFile(src.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, src.Path, err)
	}
	defer img.Close()

	if err := img.ToColorSpace(vips.InterpretationSRGB); err != nil {
		return fmt.Errorf("convert to srgb: %w", err)
	}

	if plan.Resize && img.Height() > 0 && plan.TargetHeight != img.Height() {
		scale := float64(plan.TargetHeight) / float64(img.Height())
		if err := img.Resize(scale, vips.KernelLinear); err != nil {
			return fmt.Errorf("resize image: %w", err)
		}
	}

	// libvips thresholds sharpening in L* units, 0..100.
	if err := img.Sharpen(unsharpSigma, unsharpThreshold*100, unsharpAmount); err != nil {
		return fmt.Errorf("sharpen image: %w", err)
	}

	data, err := exportGovipsImage(img, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w: write %s: %w", ErrEncode, ErrIO, dst, err)
	}
	return nil
}

func exportGovipsImage(img *vips.ImageRef, format domain.Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch format {
	case domain.FormatJPEG:
		params := vips.NewJpegExportParams()
		params.Quality = outputQuality
		params.Interlace = false
		params.StripMetadata = true
		data, _, err = img.ExportJpeg(params)
	case domain.FormatPNG:
		params := vips.NewPngExportParams()
		params.Compression = 9
		params.Interlace = false
		params.StripMetadata = true
		data, _, err = img.ExportPng(params)
	case domain.FormatGIF:
		params := vips.NewGifExportParams()
		params.StripMetadata = true
		data, _, err = img.ExportGIF(params)
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, format, err)
	}
	return data, nil
}

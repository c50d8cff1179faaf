package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/pixelforge/internal/domain"
	"golang.org/x/image/draw"
)

type stdEngine struct{}

var triangleKernel = &draw.Kernel{
	Support: triangleSupport,
	At: func(t float64) float64 {
		if t < triangleSupport {
			return 1 - t/triangleSupport
		}
		return 0
	},
}

func (stdEngine) Probe(ctx context.Context, path string) (domain.ImageInfo, error) {
	return Sniff(ctx, path)
}

func (stdEngine) Render(ctx context.Context, src domain.ImageInfo, plan RenderPlan, dst string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	format, err := OutputFormat(dst)
	if err != nil {
		return err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, src.Path, err)
	}
	decoded, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, src.Path, err)
	}

	// NRGBA 8-bit is the sRGB working space; embedded profiles do not survive decoding.
	img := imaging.Clone(decoded)
	if plan.Resize {
		img = resizeToHeight(img, plan.TargetHeight)
	}
	img = unsharpMask(img, unsharpSigma, unsharpAmount, unsharpThreshold)

	data, err := encodeImage(img, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w: write %s: %w", ErrEncode, ErrIO, dst, err)
	}
	return nil
}

func resizeToHeight(src *image.NRGBA, height int) *image.NRGBA {
	b := src.Bounds()
	if height <= 0 || height == b.Dy() {
		return src
	}

	dst := image.NewNRGBA(image.Rect(0, 0, scaledWidth(b.Dx(), b.Dy(), height), height))
	triangleKernel.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// unsharpMask sharpens colour channels by amount times the difference from a
// Gaussian blur, skipping pixels whose difference is under threshold (a
// fraction of full scale). Alpha is copied unchanged.
func unsharpMask(src *image.NRGBA, sigma, amount, threshold float64) *image.NRGBA {
	blurred := imaging.Blur(src, sigma)
	out := image.NewNRGBA(src.Bounds())
	limit := threshold * 255

	for i, orig := range src.Pix {
		if i%4 == 3 {
			out.Pix[i] = orig
			continue
		}
		diff := float64(orig) - float64(blurred.Pix[i])
		if math.Abs(2*diff) < limit {
			out.Pix[i] = orig
			continue
		}
		out.Pix[i] = clampUint8(float64(orig) + diff*amount)
	}
	return out
}

func encodeImage(img image.Image, format domain.Format) ([]byte, error) {
	var buf bytes.Buffer

	var err error
	switch format {
	case domain.FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(outputQuality))
	case domain.FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case domain.FormatGIF:
		err = imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(256))
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, format, err)
	}
	return buf.Bytes(), nil
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

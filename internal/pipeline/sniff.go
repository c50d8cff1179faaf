package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/dunamismax/pixelforge/internal/domain"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const sniffHeaderLen = 32

var signatures = []struct {
	format domain.Format
	match  func(h []byte) bool
}{
	{domain.FormatGIF, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a"))
	}},
	{domain.FormatPNG, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("\x89PNG\r\n\x1a\n"))
	}},
	{domain.FormatJPEG, func(h []byte) bool {
		return bytes.HasPrefix(h, []byte{0xFF, 0xD8, 0xFF})
	}},
	{"BMP", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("BM"))
	}},
	{"TIFF", func(h []byte) bool {
		return bytes.HasPrefix(h, []byte("II*\x00")) || bytes.HasPrefix(h, []byte("MM\x00*"))
	}},
	{"WEBP", func(h []byte) bool {
		return len(h) >= 12 && bytes.Equal(h[:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WEBP"))
	}},
}

// classify maps a leading byte chunk to a format tag, or "" when nothing matches.
func classify(header []byte) domain.Format {
	for _, sig := range signatures {
		if sig.match(header) {
			return sig.format
		}
	}
	return ""
}

// Sniff determines the real format and pixel size of the file at path from
// its content, ignoring the extension. Formats other than GIF, PNG and JPEG
// fail with ErrUnsupportedFormat; when the format is still recognisable the
// returned info carries its tag and dimensions.
func Sniff(ctx context.Context, path string) (domain.ImageInfo, error) {
	select {
	case <-ctx.Done():
		return domain.ImageInfo{}, ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}

	header := make([]byte, sniffHeaderLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return domain.ImageInfo{}, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	header = header[:n]

	info := domain.ImageInfo{
		Path:      path,
		Format:    classify(header),
		SizeBytes: stat.Size(),
	}
	if info.Format == "" {
		return info, fmt.Errorf("%w: %s: unrecognized content", ErrUnsupportedFormat, path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return info, fmt.Errorf("%w: seek %s: %w", ErrIO, path, err)
	}
	cfg, _, cfgErr := image.DecodeConfig(f)
	if cfgErr == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	if !info.Format.Supported() {
		return info, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, path, info.Format)
	}
	if cfgErr != nil {
		return info, fmt.Errorf("%w: %s: %w", ErrDecode, path, cfgErr)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("%w: %s reports %dx%d", ErrDecode, path, info.Width, info.Height)
	}
	return info, nil
}

package pipeline

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dunamismax/pixelforge/internal/domain"
)

// DeriveFilename returns the output base name for one variant of sourcePath:
//
//	{base}_aspR_{ratio}_w{width}_h{height}_e{variantHeight}{ext}
//
// width and height are the source image's native dimensions. The variant
// height is empty for the original.
func DeriveFilename(sourcePath string, width, height int, version *domain.Version) string {
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(filepath.Base(sourcePath), ext)

	variant := ""
	if version != nil {
		variant = strconv.Itoa(version.Height)
	}

	var b strings.Builder
	b.Grow(len(base) + len(ext) + 40)
	b.WriteString(base)
	b.WriteString("_aspR_")
	b.WriteString(formatAspectRatio(width, height))
	b.WriteString("_w")
	b.WriteString(strconv.Itoa(width))
	b.WriteString("_h")
	b.WriteString(strconv.Itoa(height))
	b.WriteString("_e")
	b.WriteString(variant)
	b.WriteString(ext)
	return b.String()
}

// formatAspectRatio rounds width/height half away from zero to three
// decimals and prints the shortest form that keeps one fractional digit.
func formatAspectRatio(width, height int) string {
	if height == 0 {
		return "0.0"
	}

	ratio := math.Round(float64(width)/float64(height)*1000) / 1000
	s := strconv.FormatFloat(ratio, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

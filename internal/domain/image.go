package domain

import "strings"

type Format string

const (
	FormatGIF  Format = "GIF"
	FormatPNG  Format = "PNG"
	FormatJPEG Format = "JPEG"
)

// Extension returns the canonical three-letter extension without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatGIF:
		return "gif"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	default:
		return strings.ToLower(string(f))
	}
}

// FormatForExtension maps a file extension, with or without the leading dot
// and in any case, to the format written under that name. ok is false for
// extensions outside JPEG, PNG and GIF.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "gif":
		return FormatGIF, true
	default:
		return "", false
	}
}

func (f Format) Supported() bool {
	switch f {
	case FormatGIF, FormatPNG, FormatJPEG:
		return true
	default:
		return false
	}
}

// ImageInfo is what a sniff learns about a source image.
type ImageInfo struct {
	Path      string `json:"path"`
	Format    Format `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// SizeKB reports the file size in decimal kilobytes.
func (i ImageInfo) SizeKB() float64 {
	return float64(i.SizeBytes) / 1000
}

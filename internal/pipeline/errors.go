package pipeline

import "errors"

var (
	ErrInvalidPath       = errors.New("path is not absolute")
	ErrNotFound          = errors.New("path does not exist")
	ErrIO                = errors.New("filesystem operation failed")
	ErrNotAFile          = errors.New("path is not a regular file")
	ErrNotADirectory     = errors.New("path is not a directory")
	ErrBadName           = errors.New("file name has no usable extension or base name")
	ErrUnsupportedFormat = errors.New("unsupported image format; only jpeg, png and gif are allowed")
	ErrDecode            = errors.New("decode image")
	ErrEncode            = errors.New("encode image")
	ErrOptimize          = errors.New("optimize output")
)

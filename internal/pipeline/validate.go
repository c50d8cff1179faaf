package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFile checks that path is an absolute path to a regular file with a
// non-empty base name and an extension of at least one character.
func ValidateFile(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: image path %q", ErrInvalidPath, path)
	}

	info, err := lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	ext := filepath.Ext(path)
	if len([]rune(ext)) < 2 {
		return fmt.Errorf("%w: %s has no extension", ErrBadName, path)
	}
	if strings.TrimSuffix(filepath.Base(path), ext) == "" {
		return fmt.Errorf("%w: %s has an empty base name", ErrBadName, path)
	}
	return nil
}

// ValidateOutputDirectory checks that path is an absolute path to an existing
// directory. It never creates the directory.
func ValidateOutputDirectory(path string) error {
	return validateDirectory("output directory", path)
}

func ValidateSourceDirectory(path string) error {
	return validateDirectory("source directory", path)
}

func validateDirectory(role, path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s %q", ErrInvalidPath, role, path)
	}

	info, err := lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s %s", ErrNotADirectory, role, path)
	}
	return nil
}

func lstat(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if err == nil {
		return info, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrIO, err)
}

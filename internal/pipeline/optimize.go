package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Optimizer recompresses already written output files in place.
type Optimizer interface {
	Optimize(ctx context.Context, files []string) error
}

type NopOptimizer struct{}

func (NopOptimizer) Optimize(context.Context, []string) error { return nil }

// ToolPaths overrides where the external compressors live. Empty fields are
// looked up on PATH.
type ToolPaths struct {
	Gifsicle string
	Jpegtran string
	Pngquant string
}

// pngquant exit codes that leave the input untouched.
const (
	pngquantExitTooLarge     = 98
	pngquantExitQualityUnmet = 99
)

// ToolOptimizer runs gifsicle, jpegtran and pngquant over output files:
// lossless interlaced GIF with a 256-colour cap, progressive lossless JPEG,
// lossy PNG quantisation at quality 85-100 without metadata.
type ToolOptimizer struct {
	tools  ToolPaths
	logger *zap.Logger
}

func NewToolOptimizer(paths ToolPaths, logger *zap.Logger) (*ToolOptimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		resolved ToolPaths
		err      error
	)
	if resolved.Gifsicle, err = FindTool(paths.Gifsicle, "gifsicle"); err != nil {
		return nil, err
	}
	if resolved.Jpegtran, err = FindTool(paths.Jpegtran, "jpegtran"); err != nil {
		return nil, err
	}
	if resolved.Pngquant, err = FindTool(paths.Pngquant, "pngquant"); err != nil {
		return nil, err
	}

	return &ToolOptimizer{tools: resolved, logger: logger}, nil
}

// FindTool resolves an executable: the explicit path when given, PATH otherwise.
func FindTool(custom, name string) (string, error) {
	if custom = strings.TrimSpace(custom); custom != "" {
		abs, err := filepath.Abs(custom)
		if err != nil {
			return "", fmt.Errorf("resolve %s path: %w", name, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("%s not found at %s: %w", name, abs, err)
		}
		if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			return "", fmt.Errorf("%s at %s is not executable", name, abs)
		}
		return abs, nil
	}

	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", name, err)
	}
	return found, nil
}

func (o *ToolOptimizer) Optimize(ctx context.Context, files []string) error {
	for _, file := range files {
		var err error
		switch strings.ToLower(filepath.Ext(file)) {
		case ".gif":
			err = o.run(ctx, o.tools.Gifsicle, nil, "--batch", "--interlace", "--colors", "256", "-O2", file)
		case ".jpg", ".jpeg":
			err = o.jpegtran(ctx, file)
		case ".png":
			err = o.run(ctx, o.tools.Pngquant, []int{pngquantExitTooLarge, pngquantExitQualityUnmet},
				"--quality", "85-100", "--strip", "--force", "--skip-if-larger", "--ext", ".png", "--", file)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrOptimize, file, err)
		}
		o.logger.Debug("optimized output", zap.String("file", file))
	}
	return nil
}

// jpegtran cannot read and write the same path, so it goes through a sibling temp file.
func (o *ToolOptimizer) jpegtran(ctx context.Context, file string) error {
	ext := filepath.Ext(file)
	tmp := strings.TrimSuffix(file, ext) + ".optimizing" + ext
	if err := o.run(ctx, o.tools.Jpegtran, nil, "-copy", "none", "-optimize", "-progressive", "-outfile", tmp, file); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, file); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replace %s: %w", ErrIO, file, err)
	}
	return nil
}

func (o *ToolOptimizer) run(ctx context.Context, tool string, okCodes []int, args ...string) error {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		for _, code := range okCodes {
			if exitErr.ExitCode() == code {
				return nil
			}
		}
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", filepath.Base(tool), err, msg)
	}
	return fmt.Errorf("%s failed: %w", filepath.Base(tool), err)
}

package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/pixelforge/internal/config"
	"github.com/dunamismax/pixelforge/internal/domain"
	"github.com/dunamismax/pixelforge/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootConvertsDirectory(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writePNG(t, filepath.Join(inDir, "tile.png"), 60, 30)

	out, err := execute(t,
		"--in", inDir,
		"--out", outDir,
		"--versions", "20,10",
		"--optimize=false",
		"--log-level", "error",
	)
	require.NoError(t, err)

	var result domain.DirectoryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, domain.DirectoryResult{
		"tile.png": {
			domain.VariantKeyOriginal: "tile_aspR_2.0_w60_h30_e.png",
			"20":                      "tile_aspR_2.0_w60_h30_e20.png",
			"10":                      "tile_aspR_2.0_w60_h30_e10.png",
		},
	}, result)

	for _, name := range result["tile.png"] {
		require.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestRootReadsConfigFile(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writePNG(t, filepath.Join(inDir, "a.png"), 10, 10)

	metricsFile := filepath.Join(t.TempDir(), "run.prom")
	configFile := filepath.Join(t.TempDir(), "pixelforge.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(
		"in: "+inDir+"\n"+
			"out: "+outDir+"\n"+
			"versions: [5]\n"+
			"optimize: false\n"+
			"metrics_file: "+metricsFile+"\n"+
			"log:\n  level: error\n"), 0o644))

	out, err := execute(t, "--config", configFile)
	require.NoError(t, err)

	var result domain.DirectoryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result["a.png"], 2)
	require.Equal(t, "a_aspR_1.0_w10_h10_e5.png", result["a.png"]["5"])
	require.FileExists(t, metricsFile)
}

func TestRootRequiresDirectories(t *testing.T) {
	_, err := execute(t, "--optimize=false")
	require.ErrorContains(t, err, "--in")
}

func TestRootRejectsInvalidVersions(t *testing.T) {
	_, err := execute(t, "--in", t.TempDir(), "--out", t.TempDir(), "--versions", "100,0", "--optimize=false")
	require.ErrorContains(t, err, "versions[1]")
}

func TestRootFailsOnMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := execute(t, "--in", missing, "--out", t.TempDir(), "--optimize=false", "--log-level", "error")
	require.Error(t, err)
}

func TestInspectPrintsImageInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	writePNG(t, path, 32, 16)

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	require.Contains(t, out, "format: PNG")
	require.Contains(t, out, "width:  32")
	require.Contains(t, out, "height: 16")
}

func TestInspectRejectsUnknownContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not pixels"), 0o644))

	_, err := execute(t, "inspect", path)
	require.Error(t, err)
}

func TestNamePrintsDerivedFilename(t *testing.T) {
	out, err := execute(t, "name", "/photos/jovin.png", "--width", "200", "--height", "100", "--version", "80")
	require.NoError(t, err)
	require.Equal(t, "jovin_aspR_2.0_w200_h100_e80.png\n", out)

	out, err = execute(t, "name", "/photos/jovin.png", "--width", "200", "--height", "100")
	require.NoError(t, err)
	require.Equal(t, "jovin_aspR_2.0_w200_h100_e.png\n", out)
}

func TestNameRejectsNonPositiveVersion(t *testing.T) {
	_, err := execute(t, "name", "/photos/jovin.png", "--width", "200", "--height", "100", "--version", "0")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "pixelforge dev")
}

func writeTool(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestNewOptimizerUsesConfiguredTools(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		Optimize: true,
		Tools: config.ToolsConfig{
			Gifsicle: writeTool(t, dir, "gifsicle"),
			Jpegtran: writeTool(t, dir, "jpegtran"),
			Pngquant: writeTool(t, dir, "pngquant"),
		},
	}

	optimizer, err := newOptimizer(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &pipeline.ToolOptimizer{}, optimizer)

	cfg.Tools.Pngquant = filepath.Join(dir, "missing")
	_, err = newOptimizer(cfg, nil)
	require.ErrorContains(t, err, "pngquant")

	cfg.Optimize = false
	optimizer, err = newOptimizer(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, pipeline.NopOptimizer{}, optimizer)
}

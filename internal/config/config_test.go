package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	require.Equal(t, []int{400, 200, 80}, cfg.Versions)
	require.True(t, cfg.Optimize)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, 100, cfg.Log.MaxSizeMB)
	require.Empty(t, cfg.Log.File)
	require.Equal(t, "none", cfg.Trace.Exporter)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixelforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
in: /srv/images
out: /srv/derived
versions: [120, 60]
optimize: false
tools:
  pngquant: /opt/bin/pngquant
log:
  level: debug
  format: json
metrics_file: /tmp/pixelforge.prom
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	require.Equal(t, "/srv/images", cfg.SourceDir)
	require.Equal(t, "/srv/derived", cfg.OutputDir)
	require.Equal(t, []int{120, 60}, cfg.Versions)
	require.False(t, cfg.Optimize)
	require.Equal(t, "/opt/bin/pngquant", cfg.Tools.Pngquant)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "/tmp/pixelforge.prom", cfg.MetricsFile)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	base := Config{SourceDir: "/in", OutputDir: "/out", Versions: []int{80}}
	require.NoError(t, base.Validate())

	noIn := base
	noIn.SourceDir = ""
	require.ErrorContains(t, noIn.Validate(), "--in")

	noOut := base
	noOut.OutputDir = " "
	require.ErrorContains(t, noOut.Validate(), "--out")

	badVersion := base
	badVersion.Versions = []int{80, -1}
	require.ErrorContains(t, badVersion.Validate(), "versions[1]")

	badFormat := base
	badFormat.Log.Format = "xml"
	require.Error(t, badFormat.Validate())

	badExporter := base
	badExporter.Trace.Exporter = "otlp"
	require.Error(t, badExporter.Validate())
}

func TestResolvePaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	cfg := Config{SourceDir: "images", OutputDir: "/abs/out"}
	require.NoError(t, cfg.ResolvePaths())
	require.Equal(t, filepath.Join(wd, "images"), cfg.SourceDir)
	require.Equal(t, "/abs/out", cfg.OutputDir)
}

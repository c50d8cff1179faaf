package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	SourceDir   string      `mapstructure:"in"`
	OutputDir   string      `mapstructure:"out"`
	Versions    []int       `mapstructure:"versions"`
	Optimize    bool        `mapstructure:"optimize"`
	Tools       ToolsConfig `mapstructure:"tools"`
	Log         LogConfig   `mapstructure:"log"`
	Trace       TraceConfig `mapstructure:"trace"`
	MetricsFile string      `mapstructure:"metrics_file"`
}

// ToolsConfig holds explicit paths to the optimizer binaries; empty means PATH lookup.
type ToolsConfig struct {
	Gifsicle string `mapstructure:"gifsicle"`
	Jpegtran string `mapstructure:"jpegtran"`
	Pngquant string `mapstructure:"pngquant"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type TraceConfig struct {
	Exporter string `mapstructure:"exporter"`
}

var DefaultVersions = []int{400, 200, 80}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("versions", DefaultVersions)
	v.SetDefault("optimize", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("trace.exporter", "none")
}

// Load reads the optional YAML file at path into v and decodes the merged
// flags, file values and defaults. Environment variables are not consulted.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ResolvePaths makes the source and output directories absolute relative to the working directory.
func (c *Config) ResolvePaths() error {
	for _, p := range []*string{&c.SourceDir, &c.OutputDir} {
		if strings.TrimSpace(*p) == "" || filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return errors.New("source directory (--in) is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory (--out) is required")
	}
	for i, h := range c.Versions {
		if h <= 0 {
			return fmt.Errorf("versions[%d] must be > 0, got %d", i, h)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	switch strings.ToLower(c.Trace.Exporter) {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Trace.Exporter)
	}
	return nil
}

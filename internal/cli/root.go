// Package cli wires the pixelforge commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dunamismax/pixelforge/internal/config"
	"github.com/dunamismax/pixelforge/internal/domain"
	"github.com/dunamismax/pixelforge/internal/pipeline"
	"github.com/dunamismax/pixelforge/internal/telemetry"
	"github.com/dunamismax/pixelforge/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version is set at build time.
var Version = "dev"

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"in":             "in",
	"out":            "out",
	"versions":       "versions",
	"optimize":       "optimize",
	"gifsicle":       "tools.gifsicle",
	"jpegtran":       "tools.jpegtran",
	"pngquant":       "tools.pngquant",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
	"trace-exporter": "trace.exporter",
	"metrics-file":   "metrics_file",
}

func NewRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "pixelforge",
		Short: "Generate resized, sharpened and optimized image variants",
		Long: `pixelforge converts every JPEG, PNG and GIF in a directory into a set of
height-bounded variants plus a re-encoded original, then compresses them
with gifsicle, jpegtran and pngquant.

Examples:
  # Default variants (400, 200, 80)
  pixelforge --in ./photos --out ./derived

  # Custom heights without the external optimizers
  pixelforge --in ./photos --out ./derived --versions 600,120 --optimize=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, v, configFile)
		},
	}

	flags := rootCmd.Flags()
	flags.String("in", "", "Source directory with images")
	flags.String("out", "", "Output directory for derived files")
	flags.IntSlice("versions", config.DefaultVersions, "Variant heights in pixels")
	flags.Bool("optimize", true, "Run gifsicle, jpegtran and pngquant over the outputs")
	flags.String("gifsicle", "", "Path to gifsicle (default: PATH lookup)")
	flags.String("jpegtran", "", "Path to jpegtran (default: PATH lookup)")
	flags.String("pngquant", "", "Path to pngquant (default: PATH lookup)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", telemetry.LogFormatConsole, "Log format: console or json")
	flags.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	flags.String("trace-exporter", telemetry.ExporterNone, "Trace exporter: none or stdout")
	flags.String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	flags.StringVar(&configFile, "config", "", "Optional YAML config file")

	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newNameCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Execute runs the root command and reports failures on stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pixelforge: %v\n", err)
		return 1
	}
	return 0
}

func runConvert(cmd *cobra.Command, v *viper.Viper, configFile string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	if err := cfg.ResolvePaths(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	versions, err := domain.ParseVersions(cfg.Versions)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(telemetry.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(telemetry.TraceConfig{
		ServiceName: "pixelforge",
		Exporter:    cfg.Trace.Exporter,
		Output:      cmd.ErrOrStderr(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	if err := pipeline.Startup(); err != nil {
		return fmt.Errorf("start image engine: %w", err)
	}
	defer pipeline.Shutdown()

	optimizer, err := newOptimizer(cfg, logger)
	if err != nil {
		return err
	}
	processor, err := pipeline.NewProcessor(optimizer, logger)
	if err != nil {
		return err
	}
	runner, err := worker.NewRunner(logger, processor)
	if err != nil {
		return err
	}

	result, _, err := runner.Run(ctx, worker.Job{
		SourceDir:   cfg.SourceDir,
		OutputDir:   cfg.OutputDir,
		Versions:    versions,
		MetricsFile: cfg.MetricsFile,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newOptimizer(cfg config.Config, logger *zap.Logger) (pipeline.Optimizer, error) {
	if !cfg.Optimize {
		return pipeline.NopOptimizer{}, nil
	}
	optimizer, err := pipeline.NewToolOptimizer(pipeline.ToolPaths{
		Gifsicle: cfg.Tools.Gifsicle,
		Jpegtran: cfg.Tools.Jpegtran,
		Pngquant: cfg.Tools.Pngquant,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	return optimizer, nil
}

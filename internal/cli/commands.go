package cli

import (
	"fmt"
	"path/filepath"

	"github.com/dunamismax/pixelforge/internal/domain"
	"github.com/dunamismax/pixelforge/internal/pipeline"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the detected format, dimensions and size of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := pipeline.ValidateFile(path); err != nil {
				return err
			}

			info, err := pipeline.Sniff(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format: %s\n", info.Format)
			fmt.Fprintf(out, "width:  %d\n", info.Width)
			fmt.Fprintf(out, "height: %d\n", info.Height)
			fmt.Fprintf(out, "size:   %.3f KB\n", info.SizeKB())
			return nil
		},
	}
}

func newNameCmd() *cobra.Command {
	var width, height, variant int

	cmd := &cobra.Command{
		Use:   "name FILE",
		Short: "Print the output file name derived for a source image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version *domain.Version
			if cmd.Flags().Changed("version") {
				version = &domain.Version{Height: variant}
				if err := version.Validate(); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), pipeline.DeriveFilename(args[0], width, height, version))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Source width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Source height in pixels")
	cmd.Flags().IntVar(&variant, "version", 0, "Variant height; omit for the original")
	_ = cmd.MarkFlagRequired("width")
	_ = cmd.MarkFlagRequired("height")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pixelforge %s (engine: %s)\n", Version, pipeline.EngineName)
		},
	}
}

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/config"
	"github.com/chazu/mate/internal/studio"
	"github.com/chazu/mate/pkg/export"
)

func newGraphCmd() *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Draw the attachment graph as DOT or SVG",
		Long:  `Draw parts, assemblies and joints of a script with Graphviz. Without --output the graph is written to standard output.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := resolveFormat(format, output, config.FormatDOT, config.FormatDOT, config.FormatSVG)
			if err != nil {
				return err
			}
			_, result, err := evaluate(cmd, args[0], studio.WithoutMeshes())
			if err != nil {
				return err
			}

			data := []byte(export.ToDOT(result.Design))
			if f == config.FormatSVG {
				if data, err = export.RenderSVG(cmd.Context(), string(data)); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %s graph", f)
			printFile(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot or svg")
	return cmd
}

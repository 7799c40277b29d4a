package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/config"
	"github.com/chazu/mate/pkg/export"
	"github.com/chazu/mate/pkg/kernel"
)

func newExportCmd() *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write placed meshes as STL or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			fallback := cfg.Output.Format
			if fallback != config.FormatJSON {
				fallback = config.FormatSTL
			}
			f, err := resolveFormat(format, output, fallback, config.FormatSTL, config.FormatJSON)
			if err != nil {
				return err
			}

			app, result, err := evaluate(cmd, args[0])
			if err != nil {
				return err
			}
			if app.Kernel() == nil {
				return errors.New("export needs a geometry kernel; choose sdfx or manifold")
			}

			meshes := make([]*kernel.Mesh, len(result.Meshes))
			for i, m := range result.Meshes {
				meshes[i] = &kernel.Mesh{
					Vertices: m.Vertices,
					Normals:  m.Normals,
					Indices:  m.Indices,
					PartName: m.PartName,
					Assembly: m.Assembly,
				}
			}

			if output == "" {
				output = defaultOutput(cfg.Output.Dir, args[0], f)
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer file.Close()

			switch f {
			case config.FormatJSON:
				err = export.WriteJSON(file, meshes, result.Colors())
			default:
				err = export.WriteSTL(file, meshes)
			}
			if err != nil {
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(meshes) == 0 {
				printInfo(out, "no part carries a shape")
			}
			printSuccess(out, "Exported %d meshes", len(meshes))
			printFile(out, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dir>/<script>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: stl or json")
	return cmd
}

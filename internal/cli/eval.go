package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/studio"
)

func newEvalCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate a script and print part placements",
		Long:  `Evaluate a mate script and print where every part ends up. Use "-" to read the script from standard input.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := evaluate(cmd, args[0], studio.WithoutMeshes())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printPlacements(out, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printPlacements(w io.Writer, result studio.EvalResult) {
	fmt.Fprintln(w, StyleTitle.Render("Parts"))
	for _, p := range result.Placements {
		m := p.Matrix
		value := fmt.Sprintf("at (%.4g, %.4g, %.4g), %d steps", m[12], m[13], m[14], p.Steps)
		if p.Assembly != "" {
			value += " in " + p.Assembly
		}
		printKeyValue(w, p.Part, value)
	}

	if result.Design == nil {
		return
	}
	for _, a := range result.Design.Assemblies() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render("Assembly "+a.Name()))
		for _, j := range a.Joints() {
			printDetail(w, "%s %s.%s %s %s.%s", j.Kind, j.Child, j.ChildAnchor, iconArrow, j.Parent, j.ParentAnchor)
		}
	}
}

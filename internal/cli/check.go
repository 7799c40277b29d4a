package cli

import (
	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/studio"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file...]",
		Short: "Evaluate and validate scripts without meshing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var failed error
			for _, path := range args {
				_, result, err := evaluate(cmd, path, studio.WithoutMeshes())
				if err != nil {
					if failed == nil {
						failed = err
					}
					continue
				}
				joints := 0
				for _, a := range result.Design.Assemblies() {
					joints += len(a.Joints())
				}
				printSuccess(out, "%s", path)
				printDetail(out, "%d parts, %d assemblies, %d joints, %d warnings",
					result.Design.PartCount(), len(result.Design.Assemblies()), joints, len(result.Warnings))
			}
			return failed
		},
	}
}

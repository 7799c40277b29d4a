// Package cli implements the mate command-line interface.
//
// # Commands
//
//   - eval: evaluate a script and print the resulting placements
//   - export: write meshes as binary STL or JSON
//   - graph: draw the attachment structure as DOT or SVG
//   - check: validate a script without meshing it
//
// All commands support --verbose (-v) for debug-level logging and
// --config (-c) to load a TOML or YAML settings file. Loggers and settings
// travel through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/config"
)

var (
	version = "dev" // semantic version (e.g., "v1.2.3")
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version. The
// main package calls it with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	verbose bool
	config  string
	kernel  string
	strict  bool
}

// Execute runs the mate CLI and returns an error if any command fails.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "mate",
		Short:         "mate assembles parts by mating their anchors",
		Long:          `mate evaluates Lisp scripts that define parts with named anchor frames and assemble them by mating anchors, then exports the placed geometry.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if flags.verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(cmd.ErrOrStderr(), level)

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger.Debug("configuration", "kernel", cfg.Kernel, "align", cfg.Align, "strict", cfg.Strict, "timeout", cfg.Timeout)

			ctx := withLogger(cmd.Context(), logger)
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("mate %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "settings file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&flags.kernel, "kernel", "", "geometry kernel: sdfx, manifold or none")
	root.PersistentFlags().BoolVar(&flags.strict, "strict", false, "reject ambiguous anchor names in assemblies")

	root.AddCommand(newEvalCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newCheckCmd())

	return root
}

// loadConfig reads the settings file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command, flags rootFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.config != "" {
		var err error
		if cfg, err = config.Load(flags.config); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("kernel") {
		cfg.Kernel = flags.kernel
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = flags.strict
	}
	return cfg, cfg.Validate()
}

// readSource reads a script, with "-" meaning standard input.
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

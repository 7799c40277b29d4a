package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/mate/internal/studio"
)

// evaluate runs a script through a studio built from the command's
// settings and reports errors and warnings on stderr. It fails when the
// script produced any error.
func evaluate(cmd *cobra.Command, path string, opts ...studio.Option) (*studio.App, studio.EvalResult, error) {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)

	source, err := readSource(cmd, path)
	if err != nil {
		return nil, studio.EvalResult{}, err
	}
	app, err := studio.FromConfig(cfg, logger, opts...)
	if err != nil {
		return nil, studio.EvalResult{}, err
	}

	prog := newProgress(logger)
	result := app.Evaluate(source)

	stderr := cmd.ErrOrStderr()
	for _, w := range result.Warnings {
		printWarning(stderr, "%s", describe(path, w))
	}
	if !result.OK() {
		for _, e := range result.Errors {
			printError(stderr, "%s", describe(path, e))
		}
		return app, result, fmt.Errorf("%s: %d error(s)", path, len(result.Errors))
	}
	prog.done("evaluated", "file", path, "parts", len(result.Placements), "meshes", len(result.Meshes))
	return app, result, nil
}

func describe(path string, e studio.EvalErrorData) string {
	var b strings.Builder
	b.WriteString(path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	if e.Subject != "" {
		b.WriteString(e.Subject + ": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// resolveFormat picks the output format from the flag, then the output
// file extension, then the fallback.
func resolveFormat(flag, output, fallback string, allowed ...string) (string, error) {
	format := flag
	if format == "" && output != "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	if format == "" || (flag == "" && !slices.Contains(allowed, format)) {
		format = fallback
	}
	if !slices.Contains(allowed, format) {
		return "", fmt.Errorf("unsupported format %q (want %s)", format, strings.Join(allowed, ", "))
	}
	return format, nil
}

// defaultOutput derives an output path from the script name.
func defaultOutput(dir, script, format string) string {
	base := filepath.Base(script)
	if script == "-" {
		base = "mate"
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"."+format)
}

// Package config loads mate settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/mate/pkg/align"
)

// Supported export formats.
const (
	FormatSTL  = "stl"
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
)

// Supported geometry kernels.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
	KernelNone     = "none"
)

// ErrUnsupportedFormat is returned for configuration files that are
// neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config holds settings shared by all commands.
type Config struct {
	Kernel    string   `toml:"kernel" yaml:"kernel"`
	MeshCells int      `toml:"mesh_cells" yaml:"mesh_cells"`
	Align     string   `toml:"align" yaml:"align"`
	Strict    bool     `toml:"strict_anchors" yaml:"strict_anchors"`
	Timeout   Duration `toml:"timeout" yaml:"timeout"`
	Output    Output   `toml:"output" yaml:"output"`
}

// Output holds export defaults.
type Output struct {
	Format string `toml:"format" yaml:"format"`
	Dir    string `toml:"dir" yaml:"dir"`
}

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler, which toml uses.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Kernel:    KernelSdfx,
		MeshCells: 200,
		Align:     align.MethodSVD.String(),
		Timeout:   Duration{5 * time.Second},
		Output: Output{
			Format: FormatSTL,
			Dir:    ".",
		},
	}
}

// Load reads path over the defaults. The format follows the file
// extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: %s: %w %q", path, ErrUnsupportedFormat, ext)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	switch c.Kernel {
	case KernelSdfx, KernelManifold, KernelNone:
	default:
		errs = append(errs, fmt.Errorf("unknown kernel %q", c.Kernel))
	}
	if c.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("mesh_cells must be positive, got %d", c.MeshCells))
	}
	if _, err := c.Method(); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	switch c.Output.Format {
	case FormatSTL, FormatJSON, FormatSVG, FormatDOT:
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	return errors.Join(errs...)
}

// Method returns the configured alignment method.
func (c Config) Method() (align.Method, error) {
	return align.ParseMethod(c.Align)
}

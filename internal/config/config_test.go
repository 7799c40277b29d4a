package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/mate/pkg/align"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %s, want 5s", cfg.Timeout)
	}
	m, err := cfg.Method()
	if err != nil || m != align.MethodSVD {
		t.Errorf("method = %v, %v; want svd", m, err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "mate.toml", `
kernel = "none"
mesh_cells = 64
align = "quaternion"
strict_anchors = true
timeout = "250ms"

[output]
format = "json"
dir = "out"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kernel != KernelNone || cfg.MeshCells != 64 || !cfg.Strict {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("timeout = %s, want 250ms", cfg.Timeout)
	}
	if cfg.Output.Format != FormatJSON || cfg.Output.Dir != "out" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if m, _ := cfg.Method(); m != align.MethodQuaternion {
		t.Errorf("method = %v, want quaternion", m)
	}
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "mate.yml", `
align: basis
timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Align != "basis" || cfg.Timeout.Duration != 2*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.Kernel != KernelSdfx || cfg.MeshCells != 200 || cfg.Output.Format != FormatSTL {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown extension", "mate.ini", "kernel=sdfx", "unsupported config format"},
		{"bad toml", "mate.toml", "kernel = ", "parse"},
		{"bad duration", "mate.yaml", "timeout: soon", "invalid duration"},
		{"unknown kernel", "mate.toml", `kernel = "cgal"`, `unknown kernel "cgal"`},
		{"bad method", "mate.yaml", "align: lsq", "lsq"},
		{"bad format", "mate.toml", "[output]\nformat = \"obj\"", `unknown output format "obj"`},
		{"non-positive cells", "mate.toml", "mesh_cells = 0", "mesh_cells must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Kernel = "x"
	cfg.MeshCells = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"unknown kernel", "mesh_cells"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

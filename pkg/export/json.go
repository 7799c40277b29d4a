package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/mate/pkg/kernel"
)

// MeshFile is the JSON document written by WriteJSON.
type MeshFile struct {
	Meshes []*kernel.Mesh     `json:"meshes"`
	Colors map[string]string `json:"colors,omitempty"`
}

// WriteJSON writes meshes and their part colors as indented JSON.
func WriteJSON(w io.Writer, meshes []*kernel.Mesh, colors map[string]string) error {
	if meshes == nil {
		meshes = []*kernel.Mesh{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(MeshFile{Meshes: meshes, Colors: colors}); err != nil {
		return fmt.Errorf("export: encode JSON: %w", err)
	}
	return nil
}

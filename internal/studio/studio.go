// Package studio is the evaluation facade used by the command line: it
// turns mate source into a design, validates it and meshes every part.
// Results are JSON friendly so they can be handed to a viewer as is.
package studio

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/chazu/mate/internal/config"
	"github.com/chazu/mate/pkg/align"
	"github.com/chazu/mate/pkg/design"
	"github.com/chazu/mate/pkg/engine"
	"github.com/chazu/mate/pkg/kernel"
	"github.com/chazu/mate/pkg/kernel/manifold"
	"github.com/chazu/mate/pkg/kernel/sdfx"
	"github.com/chazu/mate/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates mate sources with one engine and one kernel.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	logger   *log.Logger
	noMeshes bool
}

// MeshData is the JSON-serializable mesh format handed to viewers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Assembly string    `json:"assembly,omitempty"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Placement is the world pose of one part, column-major.
type Placement struct {
	Part      string      `json:"part"`
	Assembly  string      `json:"assembly,omitempty"`
	Matrix    [16]float64 `json:"matrix"`
	Steps     int         `json:"steps"`
	AnchorSet []string    `json:"anchors"`
}

// EvalResult is the full result of one evaluation. Design is nil unless
// evaluation succeeded.
type EvalResult struct {
	Meshes     []MeshData      `json:"meshes"`
	Placements []Placement     `json:"placements"`
	Errors     []EvalErrorData `json:"errors"`
	Warnings   []EvalErrorData `json:"warnings"`
	Design     *design.Design  `json:"-"`
}

// OK reports whether the evaluation produced no errors.
func (r EvalResult) OK() bool { return len(r.Errors) == 0 }

// Option configures an App.
type Option func(*App)

// WithKernel replaces the default sdfx kernel. A nil kernel evaluates
// scripts without geometry and skips meshing.
func WithKernel(k kernel.Kernel) Option {
	return func(a *App) { a.kernel = k }
}

// WithLogger sets the logger used for the evaluation pipeline.
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithoutMeshes keeps the kernel for shape building but skips
// tessellation.
func WithoutMeshes() Option {
	return func(a *App) { a.noMeshes = true }
}

// NewApp creates a new App. Engine options are applied after the App's
// own kernel and logger are handed to the engine.
func NewApp(opts []Option, engineOpts ...engine.Option) *App {
	a := &App{
		kernel: sdfx.New(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	eopts := append([]engine.Option{engine.WithKernel(a.kernel), engine.WithLogger(a.logger)}, engineOpts...)
	a.engine = engine.NewEngine(eopts...)
	return a
}

// FromConfig builds an App from loaded settings.
func FromConfig(cfg config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	k, err := KernelFor(cfg.Kernel, cfg.MeshCells)
	if err != nil {
		return nil, err
	}
	method, err := cfg.Method()
	if err != nil {
		return nil, err
	}
	return NewApp(
		append([]Option{WithKernel(k), WithLogger(logger)}, opts...),
		engine.WithStrategy(align.SinglePair{Solver: align.Solver{Method: method}}),
		engine.WithStrictAnchors(cfg.Strict),
		engine.WithTimeout(cfg.Timeout.Duration),
	), nil
}

// KernelFor returns the geometry kernel called name. "none" yields a nil
// kernel.
func KernelFor(name string, meshCells int) (kernel.Kernel, error) {
	switch name {
	case config.KernelSdfx, "":
		return sdfx.New(sdfx.WithMeshCells(meshCells)), nil
	case config.KernelManifold:
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("studio: kernel %q: %w", name, err)
		}
		return k, nil
	case config.KernelNone:
		return nil, nil
	}
	return nil, fmt.Errorf("studio: unknown kernel %q", name)
}

// Kernel returns the App's geometry kernel, which may be nil.
func (a *App) Kernel() kernel.Kernel { return a.kernel }

// Evaluate takes Lisp source and returns meshes, placements and findings.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:     []MeshData{},
		Placements: []Placement{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a design.
	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.logger.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the result format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	if d.PartCount() == 0 && len(d.Assemblies()) == 0 {
		result.Design = d
		return result
	}

	// Step 3: Validate. Blocking findings stop before meshing.
	vr := design.ValidateAll(d)
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Subject: w.Subject, Message: w.Message})
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Subject: e.Subject, Message: e.Message})
		}
		return result
	}
	result.Design = d

	// Step 4: Record placements.
	colors := make(map[string]string)
	for i, p := range d.Parts() {
		pl := Placement{
			Part:      p.Name(),
			Matrix:    p.CombinedTransform(),
			Steps:     p.Len(),
			AnchorSet: p.AnchorNames(),
		}
		if owner := d.Owner(p); owner != nil {
			pl.Assembly = owner.Name()
		}
		result.Placements = append(result.Placements, pl)
		colors[p.Name()] = a.colorOf(d, p.Name(), pl.Assembly, i)
	}

	if a.kernel == nil || a.noMeshes {
		return result
	}

	// Step 5: Tessellate the design into triangle meshes.
	meshes, err := tessellate.Tessellate(d, a.kernel)
	if err != nil {
		a.logger.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Assembly: m.Assembly,
			Color:    colors[m.PartName],
		})
	}
	a.logger.Debug("evaluated", "parts", d.PartCount(), "meshes", len(result.Meshes), "warnings", len(result.Warnings))
	return result
}

// Colors returns the color of every part, as Evaluate assigns them.
func (r EvalResult) Colors() map[string]string {
	out := make(map[string]string, len(r.Meshes))
	for _, m := range r.Meshes {
		out[m.PartName] = m.Color
	}
	return out
}

// colorOf prefers the part's own color, then its assembly's, then the
// palette entry for the part's index.
func (a *App) colorOf(d *design.Design, partName, asmName string, i int) string {
	if c, ok := d.Color(partName); ok {
		return c
	}
	if asmName != "" {
		if c, ok := d.Color(asmName); ok {
			return c
		}
	}
	return colorPalette[i%len(colorPalette)]
}

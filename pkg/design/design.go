package design

import (
	"errors"
	"fmt"

	"github.com/chazu/mate/pkg/assembly"
	"github.com/chazu/mate/pkg/part"
)

// ErrDuplicateName is returned when a part or assembly name is registered
// twice.
var ErrDuplicateName = errors.New("duplicate name")

// SourceRef points at the script form that defined an entity.
type SourceRef struct {
	Line int    `json:"line,omitempty"`
	Form string `json:"form,omitempty"`
}

// Design is the result of one evaluation. It is rebuilt from scratch on
// every evaluation and not mutated afterwards.
type Design struct {
	parts      []*part.AnchorablePart
	assemblies []*assembly.Assembly
	names      map[string]SourceRef
	partIndex  map[string]int
	asmIndex   map[string]int
	colors     map[string]string
}

// New creates an empty design.
func New() *Design {
	return &Design{
		names:     make(map[string]SourceRef),
		partIndex: make(map[string]int),
		asmIndex:  make(map[string]int),
		colors:    make(map[string]string),
	}
}

// AddPart registers a part. Part and assembly names share one namespace.
func (d *Design) AddPart(p *part.AnchorablePart, src SourceRef) error {
	if err := d.claim(p.Name(), src); err != nil {
		return err
	}
	d.partIndex[p.Name()] = len(d.parts)
	d.parts = append(d.parts, p)
	return nil
}

// AddAssembly registers an assembly.
func (d *Design) AddAssembly(a *assembly.Assembly, src SourceRef) error {
	if err := d.claim(a.Name(), src); err != nil {
		return err
	}
	d.asmIndex[a.Name()] = len(d.assemblies)
	d.assemblies = append(d.assemblies, a)
	return nil
}

func (d *Design) claim(name string, src SourceRef) error {
	if prev, ok := d.names[name]; ok {
		if prev.Line > 0 {
			return fmt.Errorf("design: %q already defined at line %d: %w", name, prev.Line, ErrDuplicateName)
		}
		return fmt.Errorf("design: %q: %w", name, ErrDuplicateName)
	}
	d.names[name] = src
	return nil
}

// Part returns the part with the given name, or nil.
func (d *Design) Part(name string) *part.AnchorablePart {
	i, ok := d.partIndex[name]
	if !ok {
		return nil
	}
	return d.parts[i]
}

// Assembly returns the assembly with the given name, or nil.
func (d *Design) Assembly(name string) *assembly.Assembly {
	i, ok := d.asmIndex[name]
	if !ok {
		return nil
	}
	return d.assemblies[i]
}

// Parts returns all parts in definition order.
func (d *Design) Parts() []*part.AnchorablePart {
	return append([]*part.AnchorablePart(nil), d.parts...)
}

// Assemblies returns all assemblies in definition order.
func (d *Design) Assemblies() []*assembly.Assembly {
	return append([]*assembly.Assembly(nil), d.assemblies...)
}

// Source returns where name was defined.
func (d *Design) Source(name string) (SourceRef, bool) {
	src, ok := d.names[name]
	return src, ok
}

// Owner returns the first assembly, in definition order, that has p as a
// member, or nil.
func (d *Design) Owner(p *part.AnchorablePart) *assembly.Assembly {
	for _, a := range d.assemblies {
		if a.Contains(p) {
			return a
		}
	}
	return nil
}

// PartCount returns the number of parts.
func (d *Design) PartCount() int {
	return len(d.parts)
}

// SetColor records a display color for a part or assembly.
func (d *Design) SetColor(name, color string) {
	d.colors[name] = color
}

// Color returns the display color recorded for name, if any.
func (d *Design) Color(name string) (string, bool) {
	c, ok := d.colors[name]
	return c, ok
}

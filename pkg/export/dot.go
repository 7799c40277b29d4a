package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/chazu/mate/pkg/assembly"
	"github.com/chazu/mate/pkg/design"
)

// ToDOT converts the attachment structure of a design to Graphviz DOT.
// Parts are nodes, grouped into one cluster per owning assembly. Each part
// joint is an edge from child to parent labelled with the mated anchors.
// Assembly joints are dashed edges between the two assemblies' roots.
func ToDOT(d *design.Design) string {
	var buf bytes.Buffer
	buf.WriteString("digraph mate {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")

	grouped := make(map[*assembly.Assembly][]string)
	for _, p := range d.Parts() {
		owner := d.Owner(p)
		if owner == nil {
			fmt.Fprintf(&buf, "  %q%s;\n", p.Name(), colorAttr(d, p.Name()))
			continue
		}
		grouped[owner] = append(grouped[owner], p.Name())
	}

	for i, a := range d.Assemblies() {
		members := grouped[a]
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", a.Name())
		buf.WriteString("    style=rounded;\n")
		for _, name := range members {
			attrs := colorAttr(d, name)
			if name == a.Root().Name() {
				attrs = appendAttr(attrs, "penwidth=2")
			}
			fmt.Fprintf(&buf, "    %q%s;\n", name, attrs)
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, a := range d.Assemblies() {
		for _, j := range a.Joints() {
			label := j.ChildAnchor + " → " + j.ParentAnchor
			switch j.Kind {
			case assembly.PartJoint:
				fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", j.Child, j.Parent, label)
			case assembly.AssemblyJoint:
				child := d.Assembly(j.Child)
				if child == nil {
					continue
				}
				fmt.Fprintf(&buf, "  %q -> %q [label=%q, style=dashed];\n",
					child.Root().Name(), a.Root().Name(), j.Child+": "+label)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func colorAttr(d *design.Design, name string) string {
	c, ok := d.Color(name)
	if !ok || c == "" {
		return ""
	}
	return fmt.Sprintf(" [fillcolor=%q]", c)
}

func appendAttr(attrs, attr string) string {
	if attrs == "" {
		return " [" + attr + "]"
	}
	return strings.TrimSuffix(attrs, "]") + ", " + attr + "]"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

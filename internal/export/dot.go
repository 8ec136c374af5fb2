// Package export renders the skill graph, or one resolution of it, as a
// Graphviz DOT document.
package export

import (
	"fmt"
	"io"
	"strings"

	graphlib "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
)

var edgeStyle = map[graph.EdgeType]string{
	graph.EdgeRequires:  "solid",
	graph.EdgeExtends:   "bold",
	graph.EdgeSuggests:  "dashed",
	graph.EdgeConflicts: "solid",
	graph.EdgeEnhances:  "dotted",
}

const (
	conflictColor = "#FF6B6B"
	missingColor  = "#888888"
)

// Diagram converts g into a directed graph keyed by node name. Every edge
// type is drawn; targets that are MOCs or unknown become placeholder
// vertices so dangling references stay visible.
func Diagram(g *graph.Graph) (graphlib.Graph[string, string], error) {
	return diagram(g, g.Names(), graph.EdgeTypes, true)
}

// ResolutionDiagram draws the nodes of a resolution (load order plus
// suggestions) and the edges among them. Missing names are left out.
func ResolutionDiagram(g *graph.Graph, res resolver.Resolution) (graphlib.Graph[string, string], error) {
	names := make([]string, 0, len(res.LoadOrder)+len(res.Suggests))
	names = append(names, res.LoadOrder...)
	names = append(names, res.Suggests...)
	kinds := []graph.EdgeType{graph.EdgeRequires, graph.EdgeExtends, graph.EdgeSuggests, graph.EdgeConflicts}
	return diagram(g, names, kinds, false)
}

// DOT writes the whole graph in DOT format.
func DOT(w io.Writer, g *graph.Graph) error {
	dg, err := Diagram(g)
	if err != nil {
		return err
	}
	return render(w, dg)
}

// ResolutionDOT writes a resolution in DOT format.
func ResolutionDOT(w io.Writer, g *graph.Graph, res resolver.Resolution) error {
	dg, err := ResolutionDiagram(g, res)
	if err != nil {
		return err
	}
	return render(w, dg)
}

func render(w io.Writer, dg graphlib.Graph[string, string]) error {
	if err := draw.DOT(dg, w, draw.GraphAttribute("rankdir", "LR")); err != nil {
		return fmt.Errorf("export: render dot: %w", err)
	}
	return nil
}

func diagram(g *graph.Graph, names []string, kinds []graph.EdgeType, keepDangling bool) (graphlib.Graph[string, string], error) {
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed())
	included := make(map[string]bool, len(names))
	for _, name := range names {
		node, ok := g.Node(name)
		if !ok || included[name] {
			continue
		}
		included[name] = true
		err := dg.AddVertex(name,
			graphlib.VertexAttribute("shape", shapeFor(node.Type)),
			graphlib.VertexAttribute("tooltip", node.Domain),
		)
		if err != nil {
			return nil, fmt.Errorf("export: add vertex %s: %w", name, err)
		}
	}

	placeholder := func(name string) error {
		if included[name] {
			return nil
		}
		included[name] = true
		shape := "note"
		if g.HasMOC(name) {
			shape = "folder"
		}
		err := dg.AddVertex(name,
			graphlib.VertexAttribute("shape", shape),
			graphlib.VertexAttribute("style", "dashed"),
			graphlib.VertexAttribute("color", missingColor),
		)
		if err != nil {
			return fmt.Errorf("export: add placeholder %s: %w", name, err)
		}
		return nil
	}

	// The underlying graph holds one edge per ordered pair, so parallel
	// relationships share an edge and a combined label.
	type pair struct{ from, to string }
	var order []pair
	labels := make(map[pair][]graph.EdgeType)
	for _, name := range names {
		node, ok := g.Node(name)
		if !ok {
			continue
		}
		for _, kind := range kinds {
			for _, target := range node.Edges.Of(kind) {
				if !g.HasNode(target) || !included[target] {
					if !keepDangling {
						continue
					}
					if err := placeholder(target); err != nil {
						return nil, err
					}
				}
				key := pair{from: name, to: target}
				if _, seen := labels[key]; !seen {
					order = append(order, key)
				}
				labels[key] = append(labels[key], kind)
			}
		}
	}

	for _, key := range order {
		kindsForPair := labels[key]
		text := make([]string, len(kindsForPair))
		for i, kind := range kindsForPair {
			text[i] = string(kind)
		}
		opts := []func(*graphlib.EdgeProperties){
			graphlib.EdgeAttribute("label", strings.Join(text, ",")),
			graphlib.EdgeAttribute("style", edgeStyle[kindsForPair[0]]),
		}
		if kindsForPair[0] == graph.EdgeConflicts {
			opts = append(opts, graphlib.EdgeAttribute("color", conflictColor))
		}
		if err := dg.AddEdge(key.from, key.to, opts...); err != nil {
			return nil, fmt.Errorf("export: add edge %s -> %s: %w", key.from, key.to, err)
		}
	}
	return dg, nil
}

func shapeFor(nodeType string) string {
	if nodeType == "capability" {
		return "ellipse"
	}
	return "box"
}

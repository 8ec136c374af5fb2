// internal/graph/types.go
//
// The graph package holds the in-memory skill graph: nodes keyed by name,
// their five typed edge sets, and the named maps of content (MOCs) that
// group them. A Graph is built once and never mutated afterwards; the
// resolver and validator only read from it.

package graph

import (
	"sort"
	"strings"
)

// EdgeType names one of the five relationship kinds a node can declare.
type EdgeType string

const (
	EdgeRequires  EdgeType = "requires"
	EdgeExtends   EdgeType = "extends"
	EdgeSuggests  EdgeType = "suggests"
	EdgeConflicts EdgeType = "conflicts"
	EdgeEnhances  EdgeType = "enhances"
)

// EdgeTypes lists every edge type in declaration order.
var EdgeTypes = []EdgeType{EdgeRequires, EdgeExtends, EdgeSuggests, EdgeConflicts, EdgeEnhances}

const (
	DefaultType    = "skill"
	DefaultDomain  = "general"
	DefaultStatus  = "draft"
	DefaultVersion = "1.0.0"
)

// Edges captures a node's outgoing relationships. Every list is non-nil and
// free of duplicates once the node has been normalized.
type Edges struct {
	Requires  []string `json:"requires"`
	Extends   []string `json:"extends"`
	Suggests  []string `json:"suggests"`
	Conflicts []string `json:"conflicts"`
	Enhances  []string `json:"enhances"`
	MOC       []string `json:"moc"`
}

// Of returns the targets stored for the given edge type.
func (e Edges) Of(kind EdgeType) []string {
	switch kind {
	case EdgeRequires:
		return e.Requires
	case EdgeExtends:
		return e.Extends
	case EdgeSuggests:
		return e.Suggests
	case EdgeConflicts:
		return e.Conflicts
	case EdgeEnhances:
		return e.Enhances
	default:
		return nil
	}
}

// Dependencies returns the hard dependencies (requires then extends).
func (e Edges) Dependencies() []string {
	out := make([]string, 0, len(e.Requires)+len(e.Extends))
	out = append(out, e.Requires...)
	out = append(out, e.Extends...)
	return out
}

func (e Edges) normalized() Edges {
	return Edges{
		Requires:  Dedupe(e.Requires),
		Extends:   Dedupe(e.Extends),
		Suggests:  Dedupe(e.Suggests),
		Conflicts: Dedupe(e.Conflicts),
		Enhances:  Dedupe(e.Enhances),
		MOC:       Dedupe(e.MOC),
	}
}

// Node is a single skill or capability in the graph.
type Node struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	Domain          string `json:"domain"`
	Status          string `json:"status,omitempty"`
	Version         string `json:"version,omitempty"`
	Description     string `json:"description,omitempty"`
	Path            string `json:"path,omitempty"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Edges           Edges  `json:"edges"`
}

// Normalized returns a trimmed copy with defaults applied and edge lists
// deduplicated.
func (n Node) Normalized() Node {
	clone := n
	clone.Name = strings.TrimSpace(n.Name)
	clone.Type = defaultString(n.Type, DefaultType)
	clone.Domain = defaultString(n.Domain, DefaultDomain)
	clone.Status = defaultString(n.Status, DefaultStatus)
	clone.Version = defaultString(n.Version, DefaultVersion)
	clone.Description = strings.TrimSpace(n.Description)
	if clone.EstimatedTokens < 0 {
		clone.EstimatedTokens = 0
	}
	clone.Edges = n.Edges.normalized()
	return clone
}

// MOC is a curated, named group of node names.
type MOC struct {
	Name   string   `json:"-"`
	Path   string   `json:"path,omitempty"`
	Domain string   `json:"domain"`
	Skills []string `json:"skills"`
}

func (m MOC) normalized() MOC {
	return MOC{
		Name:   strings.TrimSpace(m.Name),
		Path:   strings.TrimSpace(m.Path),
		Domain: defaultString(m.Domain, DefaultDomain),
		Skills: Dedupe(m.Skills),
	}
}

// Graph is the immutable collection of nodes and MOCs.
type Graph struct {
	nodes map[string]Node
	mocs  map[string]MOC
}

// New builds a normalized graph. Nodes or MOCs with an empty name are
// dropped; a later entry with the same name replaces an earlier one.
func New(nodes []Node, mocs []MOC) *Graph {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		mocs:  make(map[string]MOC, len(mocs)),
	}
	for _, node := range nodes {
		normalized := node.Normalized()
		if normalized.Name == "" {
			continue
		}
		g.nodes[normalized.Name] = normalized
	}
	for _, moc := range mocs {
		normalized := moc.normalized()
		if normalized.Name == "" {
			continue
		}
		g.mocs[normalized.Name] = normalized
	}
	return g
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	node, ok := g.nodes[name]
	return node, ok
}

// HasNode reports whether name is a known node.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.Node(name)
	return ok
}

// MOC looks up a map of content by name.
func (g *Graph) MOC(name string) (MOC, bool) {
	if g == nil {
		return MOC{}, false
	}
	moc, ok := g.mocs[name]
	return moc, ok
}

// HasMOC reports whether name is a known map of content.
func (g *Graph) HasMOC(name string) bool {
	_, ok := g.MOC(name)
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Names returns all node names sorted lexically.
func (g *Graph) Names() []string {
	if g == nil {
		return nil
	}
	return sortedKeys(g.nodes)
}

// MOCNames returns all MOC names sorted lexically.
func (g *Graph) MOCNames() []string {
	if g == nil {
		return nil
	}
	return sortedKeys(g.mocs)
}

// Nodes returns every node in name order.
func (g *Graph) Nodes() []Node {
	names := g.Names()
	out := make([]Node, 0, len(names))
	for _, name := range names {
		out = append(out, g.nodes[name])
	}
	return out
}

// MOCs returns every map of content in name order.
func (g *Graph) MOCs() []MOC {
	names := g.MOCNames()
	out := make([]MOC, 0, len(names))
	for _, name := range names {
		out = append(out, g.mocs[name])
	}
	return out
}

// Dedupe trims entries, drops blanks, and removes duplicates while keeping
// the first occurrence. The result is never nil.
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

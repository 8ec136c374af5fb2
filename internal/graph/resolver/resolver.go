package resolver

import (
	"errors"
	"fmt"

	"github.com/kingrea/skillgraph/internal/graph"
)

// ErrNegativeDepth is returned when a caller asks for a negative traversal depth.
var ErrNegativeDepth = errors.New("resolver: depth must be non-negative")

// ConflictMode selects how conflicts are detected during resolution.
type ConflictMode int

const (
	// ConflictsTraversal records a conflict only when the conflicting node was
	// already placed when the second endpoint is processed. Reports depend on
	// traversal order.
	ConflictsTraversal ConflictMode = iota
	// ConflictsExhaustive scans every pair of the final load order once the
	// traversal has finished.
	ConflictsExhaustive
)

// Options tunes a single resolution.
type Options struct {
	// MaxDepth caps recursion measured from the target (depth 0). Nil means
	// unbounded.
	MaxDepth        *int
	IncludeSuggests bool
	Conflicts       ConflictMode
}

// Depth returns a pointer suitable for Options.MaxDepth.
func Depth(n int) *int {
	return &n
}

func (o Options) validate() error {
	if o.MaxDepth != nil && *o.MaxDepth < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeDepth, *o.MaxDepth)
	}
	switch o.Conflicts {
	case ConflictsTraversal, ConflictsExhaustive:
		return nil
	default:
		return fmt.Errorf("resolver: unknown conflict mode %d", o.Conflicts)
	}
}

// Conflict pairs a node with another node it cannot be loaded alongside.
type Conflict struct {
	Node          string `json:"skill"`
	ConflictsWith string `json:"conflictsWith"`
}

// Resolution is the ordered, conflict-annotated install set for a target.
// LoadOrder must be applied as-is: every node follows its dependencies.
type Resolution struct {
	Target      string     `json:"target"`
	LoadOrder   []string   `json:"loadOrder"`
	Conflicts   []Conflict `json:"conflicts"`
	Suggests    []string   `json:"suggests"`
	NotFound    []string   `json:"notFound"`
	TotalTokens int        `json:"totalTokens"`
}

// Resolve walks requires and extends edges from target and returns the
// post-order load list. Missing names are collected, never fatal.
func Resolve(g *graph.Graph, target string, opts Options) (Resolution, error) {
	if err := opts.validate(); err != nil {
		return Resolution{}, err
	}
	w := &walk{
		graph:     g,
		target:    target,
		opts:      opts,
		visited:   make(map[string]bool),
		onPath:    make(map[string]bool),
		suggested: make(map[string]bool),
		res: Resolution{
			Target:    target,
			LoadOrder: []string{},
			Conflicts: []Conflict{},
			Suggests:  []string{},
			NotFound:  []string{},
		},
	}
	w.visit(target, 0)
	if opts.Conflicts == ConflictsExhaustive {
		w.res.Conflicts = ScanConflicts(g, w.res.LoadOrder)
	}
	w.res.TotalTokens = sumTokens(g, w.res.LoadOrder)
	return w.res, nil
}

type walk struct {
	graph  *graph.Graph
	target string
	opts   Options

	visited   map[string]bool
	onPath    map[string]bool
	suggested map[string]bool
	res       Resolution
}

func (w *walk) visit(name string, depth int) {
	if w.opts.MaxDepth != nil && depth > *w.opts.MaxDepth {
		return
	}
	// A node on the current path closes a cycle; treat it as placed so the
	// walk terminates. Cycles are reported by the validator.
	if w.visited[name] || w.onPath[name] {
		return
	}
	node, ok := w.graph.Node(name)
	if !ok {
		// Missing names never become visited, so each reference is recorded.
		w.res.NotFound = append(w.res.NotFound, name)
		return
	}
	w.onPath[name] = true

	if w.opts.Conflicts == ConflictsTraversal {
		for _, other := range node.Edges.Conflicts {
			if w.visited[other] {
				w.res.Conflicts = append(w.res.Conflicts, Conflict{Node: name, ConflictsWith: other})
			}
		}
	}
	for _, dep := range node.Edges.Requires {
		w.visit(dep, depth+1)
	}
	for _, parent := range node.Edges.Extends {
		w.visit(parent, depth+1)
	}
	if w.opts.IncludeSuggests {
		for _, sug := range node.Edges.Suggests {
			if w.visited[sug] || w.suggested[sug] || sug == w.target {
				continue
			}
			w.suggested[sug] = true
			w.res.Suggests = append(w.res.Suggests, sug)
		}
	}

	delete(w.onPath, name)
	w.visited[name] = true
	w.res.LoadOrder = append(w.res.LoadOrder, name)
}

// ScanConflicts reports every conflicting pair within names. Each unordered
// pair appears once, attributed to the node that comes later in names.
func ScanConflicts(g *graph.Graph, names []string) []Conflict {
	position := make(map[string]int, len(names))
	for i, name := range names {
		position[name] = i
	}
	seen := make(map[[2]string]bool)
	conflicts := []Conflict{}
	for i, name := range names {
		node, ok := g.Node(name)
		if !ok {
			continue
		}
		for _, other := range node.Edges.Conflicts {
			j, ok := position[other]
			if !ok || other == name {
				continue
			}
			later, earlier := name, other
			if j > i {
				later, earlier = other, name
			}
			key := [2]string{later, earlier}
			if seen[key] {
				continue
			}
			seen[key] = true
			conflicts = append(conflicts, Conflict{Node: later, ConflictsWith: earlier})
		}
	}
	return conflicts
}

func sumTokens(g *graph.Graph, names []string) int {
	total := 0
	for _, name := range names {
		if node, ok := g.Node(name); ok {
			total += node.EstimatedTokens
		}
	}
	return total
}

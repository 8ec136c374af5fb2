// Package validator runs whole-graph integrity checks: dependency cycles,
// broken references, one-sided conflicts, and orphaned nodes. Findings are
// advisory data; only cycles make a run fail.
package validator

import (
	"github.com/kingrea/skillgraph/internal/graph"
)

// IssueNotBidirectional is the issue text for one-sided conflicts.
const IssueNotBidirectional = "not bidirectional"

// BrokenLink is an edge whose target is neither a node nor a MOC.
type BrokenLink struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	EdgeType graph.EdgeType `json:"type"`
}

// ConflictIssue flags a conflicts edge that the other node does not echo.
type ConflictIssue struct {
	Skill         string `json:"skill"`
	ConflictsWith string `json:"conflictsWith"`
	Issue         string `json:"issue"`
}

// Options configures a validation run.
type Options struct {
	// RootSkill is the entry node exempt from orphan reporting.
	RootSkill string
}

// Report collects the findings of every check.
type Report struct {
	Cycles              [][]string      `json:"cycles"`
	BrokenLinks         []BrokenLink    `json:"brokenLinks"`
	AsymmetricConflicts []ConflictIssue `json:"asymmetricConflicts"`
	Orphans             []string        `json:"orphans"`
}

// HasErrors reports whether the run should fail. Only cycles count.
func (r Report) HasErrors() bool {
	return len(r.Cycles) > 0
}

// Warnings counts the advisory findings.
func (r Report) Warnings() int {
	return len(r.BrokenLinks) + len(r.AsymmetricConflicts) + len(r.Orphans)
}

// Run executes all four checks against g.
func Run(g *graph.Graph, opts Options) Report {
	return Report{
		Cycles:              Cycles(g),
		BrokenLinks:         BrokenLinks(g),
		AsymmetricConflicts: ConflictSymmetry(g),
		Orphans:             Orphans(g, opts.RootSkill),
	}
}

const (
	white = iota
	gray
	black
)

// Cycles finds loops in the requires/extends subgraph with a three-color
// DFS started from every unvisited node in name order. Each cycle lists the
// path from the re-entered node back to itself, so the first and last
// entries are equal. Edges to unknown names are skipped.
func Cycles(g *graph.Graph) [][]string {
	cycles := [][]string{}
	color := make(map[string]int, g.Len())

	var dfs func(name string, path []string)
	dfs = func(name string, path []string) {
		color[name] = gray
		path = append(path, name)
		node, _ := g.Node(name)
		for _, next := range node.Edges.Dependencies() {
			if !g.HasNode(next) {
				continue
			}
			switch color[next] {
			case gray:
				start := indexOf(path, next)
				cycle := make([]string, 0, len(path)-start+1)
				cycle = append(cycle, path[start:]...)
				cycle = append(cycle, next)
				cycles = append(cycles, cycle)
			case white:
				// Each branch gets its own copy so siblings never share a
				// backing array.
				dfs(next, append([]string(nil), path...))
			}
		}
		color[name] = black
	}

	for _, name := range g.Names() {
		if color[name] == white {
			dfs(name, nil)
		}
	}
	return cycles
}

// BrokenLinks reports every edge of every type whose target is unknown as
// both a node and a MOC.
func BrokenLinks(g *graph.Graph) []BrokenLink {
	broken := []BrokenLink{}
	for _, node := range g.Nodes() {
		for _, kind := range graph.EdgeTypes {
			for _, target := range node.Edges.Of(kind) {
				if g.HasNode(target) || g.HasMOC(target) {
					continue
				}
				broken = append(broken, BrokenLink{From: node.Name, To: target, EdgeType: kind})
			}
		}
	}
	return broken
}

// ConflictSymmetry reports conflicts edges A->B where B exists but does not
// list A among its own conflicts.
func ConflictSymmetry(g *graph.Graph) []ConflictIssue {
	issues := []ConflictIssue{}
	for _, node := range g.Nodes() {
		for _, target := range node.Edges.Conflicts {
			other, ok := g.Node(target)
			if !ok || contains(other.Edges.Conflicts, node.Name) {
				continue
			}
			issues = append(issues, ConflictIssue{
				Skill:         node.Name,
				ConflictsWith: target,
				Issue:         IssueNotBidirectional,
			})
		}
	}
	return issues
}

// Orphans lists nodes that no other node references through requires,
// extends, suggests, or enhances. root is never reported.
func Orphans(g *graph.Graph, root string) []string {
	incoming := make(map[string]bool, g.Len())
	for _, node := range g.Nodes() {
		for _, kind := range []graph.EdgeType{graph.EdgeRequires, graph.EdgeExtends, graph.EdgeSuggests, graph.EdgeEnhances} {
			for _, target := range node.Edges.Of(kind) {
				if target == node.Name {
					continue
				}
				incoming[target] = true
			}
		}
	}
	orphans := []string{}
	for _, name := range g.Names() {
		if incoming[name] || name == root {
			continue
		}
		orphans = append(orphans, name)
	}
	return orphans
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}

func contains(values []string, target string) bool {
	return indexOf(values, target) >= 0
}

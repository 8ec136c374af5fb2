package graph

import "sort"

// Count pairs a label with how many nodes carry it.
type Count struct {
	Label string
	Count int
}

// Stats summarizes the graph for listing output.
type Stats struct {
	Nodes    int
	MOCs     int
	ByType   []Count
	ByDomain []Count
}

// Stats tallies nodes by type and domain. Both breakdowns are sorted by
// count descending, then label.
func (g *Graph) Stats() Stats {
	types := map[string]int{}
	domains := map[string]int{}
	for _, node := range g.Nodes() {
		types[node.Type]++
		if node.Domain != "" {
			domains[node.Domain]++
		}
	}
	return Stats{
		Nodes:    g.Len(),
		MOCs:     len(g.MOCNames()),
		ByType:   rankCounts(types),
		ByDomain: rankCounts(domains),
	}
}

// Specializations returns the names of nodes that extend base, sorted.
func (g *Graph) Specializations(base string) []string {
	var specs []string
	for _, node := range g.Nodes() {
		for _, parent := range node.Edges.Extends {
			if parent == base {
				specs = append(specs, node.Name)
				break
			}
		}
	}
	return specs
}

// ConflictMatrix maps every node with a non-empty conflicts list to that
// list. It is a derived view and carries no information the nodes lack.
func (g *Graph) ConflictMatrix() map[string][]string {
	matrix := make(map[string][]string)
	for _, node := range g.Nodes() {
		if len(node.Edges.Conflicts) == 0 {
			continue
		}
		matrix[node.Name] = append([]string(nil), node.Edges.Conflicts...)
	}
	return matrix
}

func rankCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, count := range counts {
		out = append(out, Count{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

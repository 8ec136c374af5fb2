package resolver

import "github.com/kingrea/skillgraph/internal/graph"

// ContextSize describes the combined footprint of several resolved targets.
type ContextSize struct {
	SkillCount  int      `json:"skillCount"`
	TotalTokens int      `json:"totalTokens"`
	Skills      []string `json:"skills"`
	NotFound    []string `json:"notFound"`
}

// Aggregate resolves each target with default options and unions their load
// orders, keeping the order in which skills were first seen. Shared
// dependencies are counted once.
func Aggregate(g *graph.Graph, targets []string) ContextSize {
	seen := make(map[string]bool)
	missing := make(map[string]bool)
	out := ContextSize{Skills: []string{}, NotFound: []string{}}
	for _, target := range targets {
		// Default options are always valid.
		res, _ := Resolve(g, target, Options{})
		for _, name := range res.LoadOrder {
			if seen[name] {
				continue
			}
			seen[name] = true
			out.Skills = append(out.Skills, name)
		}
		for _, name := range res.NotFound {
			if missing[name] {
				continue
			}
			missing[name] = true
			out.NotFound = append(out.NotFound, name)
		}
	}
	out.SkillCount = len(out.Skills)
	out.TotalTokens = sumTokens(g, out.Skills)
	return out
}

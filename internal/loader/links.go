package loader

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kingrea/skillgraph/internal/graph"
)

var (
	sectionHeading = regexp.MustCompile(`(?i)##\s*Knowledge\s*Graph`)
	relationLine   = regexp.MustCompile(`(?i)\*\*(requires|extends|suggests|conflicts|enhances|moc)\*\*\s*:\s*(.*)`)
	wikiLink       = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

// knowledgeGraphSection returns the text from the "## Knowledge Graph"
// heading up to the next level-two heading, or "" when absent.
func knowledgeGraphSection(body string) string {
	loc := sectionHeading.FindStringIndex(body)
	if loc == nil {
		return ""
	}
	section := body[loc[0]:]
	if end := strings.Index(section[loc[1]-loc[0]:], "\n##"); end >= 0 {
		section = section[:loc[1]-loc[0]+end]
	}
	return section
}

// parseRelations reads "**kind**: [[a]], [[b]]" lines. Each wiki link may
// itself hold a comma separated list.
func parseRelations(section string) graph.Edges {
	var edges graph.Edges
	for _, match := range relationLine.FindAllStringSubmatch(section, -1) {
		targets := wikiTargets(match[2])
		switch strings.ToLower(match[1]) {
		case "requires":
			edges.Requires = append(edges.Requires, targets...)
		case "extends":
			edges.Extends = append(edges.Extends, targets...)
		case "suggests":
			edges.Suggests = append(edges.Suggests, targets...)
		case "conflicts":
			edges.Conflicts = append(edges.Conflicts, targets...)
		case "enhances":
			edges.Enhances = append(edges.Enhances, targets...)
		case "moc":
			edges.MOC = append(edges.MOC, targets...)
		}
	}
	return edges
}

// mergeRelationships appends the frontmatter relationships map onto edges in
// sorted key order. Unknown keys are ignored.
func mergeRelationships(edges graph.Edges, rel map[string]stringList) graph.Edges {
	keys := make([]string, 0, len(rel))
	for key := range rel {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		targets := rel[key]
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "requires":
			edges.Requires = append(edges.Requires, targets...)
		case "extends":
			edges.Extends = append(edges.Extends, targets...)
		case "suggests":
			edges.Suggests = append(edges.Suggests, targets...)
		case "conflicts":
			edges.Conflicts = append(edges.Conflicts, targets...)
		case "enhances":
			edges.Enhances = append(edges.Enhances, targets...)
		case "moc":
			edges.MOC = append(edges.MOC, targets...)
		}
	}
	return edges
}

// wikiTargets extracts the names referenced by [[...]] links in text.
func wikiTargets(text string) []string {
	var out []string
	for _, match := range wikiLink.FindAllStringSubmatch(text, -1) {
		out = append(out, splitNames(match[1])...)
	}
	return out
}

// splitNames turns "a, b|alias" into [a b], dropping aliases and brackets.
func splitNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.NewReplacer("[[", "", "]]", "").Replace(part)
		if idx := strings.Index(part, "|"); idx >= 0 {
			part = part[:idx]
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package report renders graph results for the terminal. Styling goes
// through a lipgloss renderer bound to the output writer, so colors are
// dropped automatically when the writer is not a terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
	"github.com/kingrea/skillgraph/internal/graph/validator"
	"github.com/kingrea/skillgraph/internal/loader"
)

const (
	ruleWidth       = 50
	brokenLinkLimit = 5
	orphanLimit     = 5
	availableLimit  = 10
	descriptionCap  = 60
)

type styles struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
	section lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#888888")),
		bold:    r.NewStyle().Bold(true),
		section: r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// Printer writes styled reports to a single writer.
type Printer struct {
	w     io.Writer
	style styles
}

// New returns a printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, style: newStyles(lipgloss.NewRenderer(w))}
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) rule() {
	p.line("%s", p.style.dim.Render(strings.Repeat("═", ruleWidth)))
}

// Link renders a node reference the way skill documents write it.
func Link(name string) string {
	return "[[" + name + "]]"
}

// Tokens formats a token estimate in thousands, e.g. "~18k".
func Tokens(n int) string {
	return fmt.Sprintf("~%dk", int(math.Round(float64(n)/1000)))
}

// Resolution prints the load order, totals, suggestions and missing names.
func (p *Printer) Resolution(g *graph.Graph, res resolver.Resolution) {
	p.line("")
	p.line("%s", p.style.title.Render("Resolution for "+Link(res.Target)))
	p.rule()

	p.line("")
	p.line("%s", p.style.ok.Render("Load order:"))
	for i, name := range res.LoadOrder {
		suffix := ""
		if node, ok := g.Node(name); ok && node.EstimatedTokens > 0 {
			suffix = " " + p.style.dim.Render("("+Tokens(node.EstimatedTokens)+" tokens)")
		}
		p.line("  %d. %s%s", i+1, Link(name), suffix)
	}

	p.line("")
	p.line("%s", p.style.title.Render("Stats:"))
	p.line("  Total skills: %d", len(res.LoadOrder))
	p.line("  Estimated tokens: %s", Tokens(res.TotalTokens))

	if len(res.Conflicts) > 0 {
		p.line("")
		p.line("%s", p.style.fail.Render("Conflicts detected:"))
		for _, c := range res.Conflicts {
			p.line("  ✗ %s conflicts with %s", Link(c.Node), Link(c.ConflictsWith))
		}
	}

	if len(res.Suggests) > 0 {
		p.line("")
		p.line("%s", p.style.warn.Render("Suggested:"))
		for _, name := range res.Suggests {
			desc := ""
			if node, ok := g.Node(name); ok && node.Description != "" {
				desc = p.style.dim.Render(" - " + node.Description)
			}
			p.line("  ○ %s%s", Link(name), desc)
		}
	}

	if len(res.NotFound) > 0 {
		p.line("")
		p.line("%s", p.style.fail.Render("Not found:"))
		for _, name := range res.NotFound {
			p.line("  ⚠ %s", Link(name))
		}
	}
	p.rule()
}

// ContextSize prints the combined footprint of several targets.
func (p *Printer) ContextSize(size resolver.ContextSize) {
	p.line("")
	p.line("%s", p.style.title.Render("Context budget:"))
	p.line("  Skills: %d", size.SkillCount)
	p.line("  Estimated tokens: %s", Tokens(size.TotalTokens))
	for _, name := range size.Skills {
		p.line("  • %s", Link(name))
	}
	if len(size.NotFound) > 0 {
		p.line("%s", p.style.fail.Render("Not found:"))
		for _, name := range size.NotFound {
			p.line("  ⚠ %s", Link(name))
		}
	}
}

// UnknownSkill explains that name is not in the graph and lists the first
// few available names.
func (p *Printer) UnknownSkill(name string, available []string) {
	p.line("%s", p.style.fail.Render(fmt.Sprintf("✗ Skill '%s' not found.", name)))
	shown := available
	more := ""
	if len(shown) > availableLimit {
		shown = shown[:availableLimit]
		more = "..."
	}
	p.line("%s", p.style.warn.Render("Available: "+strings.Join(shown, ", ")+more))
}

// List prints every node with its type, domain and a short description.
func (p *Printer) List(g *graph.Graph) {
	p.line("")
	p.line("%s", p.style.title.Render("Skills in graph:"))
	p.line("")
	for _, node := range g.Nodes() {
		p.line("  %s %s %s",
			p.style.bold.Render(node.Name),
			p.style.section.Render("["+node.Type+"]"),
			p.style.dim.Render("("+node.Domain+")"),
		)
		if node.Description != "" {
			p.line("    %s", p.style.dim.Render(truncate(node.Description, descriptionCap)))
		}
	}
}

// MOCs prints each map of content with its member count.
func (p *Printer) MOCs(g *graph.Graph) {
	p.line("")
	p.line("%s", p.style.title.Render("Maps of content:"))
	p.line("")
	for _, moc := range g.MOCs() {
		p.line("  %s", p.style.bold.Render(moc.Name))
		p.line("    %s", p.style.dim.Render(fmt.Sprintf("Skills: %d", len(moc.Skills))))
	}
}

// Stats prints node and MOC totals with breakdowns by type and domain.
func (p *Printer) Stats(stats graph.Stats) {
	p.line("")
	p.line("%s", p.style.title.Render("Graph statistics:"))
	p.line("")
	p.line("  Total skills: %d", stats.Nodes)
	p.line("  Total MOCs: %d", stats.MOCs)
	p.counts("By type:", stats.ByType)
	p.counts("By domain:", stats.ByDomain)
}

func (p *Printer) counts(heading string, counts []graph.Count) {
	p.line("")
	p.line("  %s", p.style.section.Render(heading))
	for _, c := range counts {
		p.line("    %s", p.style.dim.Render(fmt.Sprintf("%s: %d", c.Label, c.Count)))
	}
}

// Specializations prints the nodes that extend base.
func (p *Printer) Specializations(base string, names []string) {
	p.line("")
	p.line("%s", p.style.title.Render("Specializations of "+Link(base)+":"))
	if len(names) == 0 {
		p.line("  %s", p.style.dim.Render("none"))
		return
	}
	for _, name := range names {
		p.line("  • %s", Link(name))
	}
}

// Build prints the outcome of writing the graph index.
func (p *Printer) Build(res loader.BuildResult) {
	p.line("%s", p.style.title.Render("Building knowledge graph..."))
	for _, name := range res.Graph.Names() {
		p.line("  %s %s", p.style.ok.Render("✓"), name)
	}
	for _, w := range res.Warnings {
		p.line("  %s %s", p.style.warn.Render("⚠"), w.Error())
	}
	p.line("")
	p.line("%s", p.style.ok.Render("Graph index written to: "+res.Path))
	p.line("   Nodes: %d", len(res.Index.Nodes))
	p.line("   MOCs: %d", len(res.Index.MOCs))
	p.line("   Conflicts: %d", len(res.Index.ConflictMatrix))
	if len(res.Warnings) > 0 {
		p.line("")
		p.line("%s", p.style.warn.Render(fmt.Sprintf("%d warning(s) encountered", len(res.Warnings))))
	}
}

// History prints the most recent journal entries.
func (p *Printer) History(path string, lines []string, total int) {
	p.line("%s", p.style.title.Render("Run journal: "+path))
	if total == 0 {
		p.line("   %s", p.style.dim.Render("No entries yet."))
		return
	}
	p.line("%s", p.style.dim.Render(fmt.Sprintf("Showing %d of %d entries", len(lines), total)))
	p.rule()
	for _, entry := range lines {
		switch {
		case strings.Contains(entry, " ERROR "):
			p.line("%s", p.style.fail.Render(entry))
		case strings.Contains(entry, " WARN "):
			p.line("%s", p.style.warn.Render(entry))
		default:
			p.line("%s", entry)
		}
	}
}

// Validation prints the four checks and the overall verdict.
func (p *Printer) Validation(g *graph.Graph, rep validator.Report) {
	p.line("%s", p.style.title.Render("Validating knowledge graph..."))

	p.line("")
	p.line("1. Checking for cycles...")
	if len(rep.Cycles) > 0 {
		p.line("   %s", p.style.fail.Render(fmt.Sprintf("✗ Found %d cycle(s):", len(rep.Cycles))))
		for _, cycle := range rep.Cycles {
			p.line("      %s", strings.Join(cycle, " → "))
		}
	} else {
		p.line("   %s", p.style.ok.Render("✓ No cycles detected"))
	}

	p.line("")
	p.line("2. Checking for broken links...")
	if n := len(rep.BrokenLinks); n > 0 {
		p.line("   %s", p.style.warn.Render(fmt.Sprintf("⚠ Found %d broken link(s):", n)))
		for i, link := range rep.BrokenLinks {
			if i == brokenLinkLimit {
				p.line("      ... and %d more", n-brokenLinkLimit)
				break
			}
			p.line("      %s --%s--> %s (not found)", Link(link.From), link.EdgeType, Link(link.To))
		}
	} else {
		p.line("   %s", p.style.ok.Render("✓ All links valid"))
	}

	p.line("")
	p.line("3. Checking conflict symmetry...")
	if n := len(rep.AsymmetricConflicts); n > 0 {
		p.line("   %s", p.style.warn.Render(fmt.Sprintf("⚠ Found %d asymmetric conflict(s):", n)))
		for _, issue := range rep.AsymmetricConflicts {
			p.line("      %s conflicts %s but not vice versa", Link(issue.Skill), Link(issue.ConflictsWith))
		}
	} else {
		p.line("   %s", p.style.ok.Render("✓ All conflicts bidirectional"))
	}

	p.line("")
	p.line("4. Checking for orphaned skills...")
	if n := len(rep.Orphans); n > 0 {
		shown := rep.Orphans
		more := ""
		if n > orphanLimit {
			shown = shown[:orphanLimit]
			more = "..."
		}
		p.line("   %s", p.style.section.Render(fmt.Sprintf("%d skill(s) with no incoming edges:", n)))
		p.line("      %s%s", strings.Join(shown, ", "), more)
	} else {
		p.line("   %s", p.style.ok.Render("✓ All skills connected"))
	}

	p.line("")
	p.rule()
	if rep.HasErrors() {
		p.line("%s", p.style.fail.Render("✗ Validation FAILED - fix errors before committing"))
		return
	}
	p.line("%s", p.style.ok.Render("✓ Validation PASSED"))
	p.line("   Skills: %d", g.Len())
	p.line("   MOCs: %d", len(g.MOCNames()))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

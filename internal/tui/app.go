// internal/tui/app.go
//
// This is the interactive entry-point picker. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the skill list, the highlighted skill, and its resolution
// 2. Update: keys move the cursor, filter, confirm or cancel
// 3. View: list on the left, a preview of the load order on the right
//
// Confirming a skill quits the program; the caller reads Selected().

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
	"github.com/kingrea/skillgraph/internal/report"
)

const previewWidth = 44

// skillItem implements list.Item for one node.
type skillItem struct {
	node graph.Node
}

func (i skillItem) Title() string { return i.node.Name }
func (i skillItem) Description() string {
	return fmt.Sprintf("%s · %s · %s tokens", i.node.Type, i.node.Domain, report.Tokens(i.node.EstimatedTokens))
}
func (i skillItem) FilterValue() string { return i.node.Name }

// Picker lets the user choose the skill to resolve.
type Picker struct {
	list    list.Model
	graph   *graph.Graph
	opts    resolver.Options
	preview map[string]resolver.Resolution

	selected string
	done     bool
	width    int
	height   int
}

// NewPicker lists every node of g. opts is used for the preview pane.
func NewPicker(g *graph.Graph, opts resolver.Options) *Picker {
	nodes := g.Nodes()
	items := make([]list.Item, 0, len(nodes))
	for _, node := range nodes {
		items = append(items, skillItem{node: node})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select entry point skill"
	l.SetShowStatusBar(false)
	return &Picker{
		list:    l,
		graph:   g,
		opts:    opts,
		preview: make(map[string]resolver.Resolution),
	}
}

// Selected returns the confirmed skill, if any.
func (p *Picker) Selected() (string, bool) {
	return p.selected, p.selected != ""
}

// Init implements tea.Model.
func (p *Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.list.SetSize(max(20, msg.Width-previewWidth-6), max(5, msg.Height-4))
		return p, nil

	case tea.KeyMsg:
		filtering := p.list.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			p.done = true
			return p, tea.Quit
		case "esc":
			if !filtering && p.list.FilterState() != list.FilterApplied {
				p.done = true
				return p, tea.Quit
			}
		case "q":
			if !filtering {
				p.done = true
				return p, tea.Quit
			}
		case "enter":
			if !filtering {
				if item, ok := p.list.SelectedItem().(skillItem); ok {
					p.selected = item.node.Name
					p.done = true
					return p, tea.Quit
				}
			}
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View implements tea.Model.
func (p *Picker) View() string {
	if p.done {
		return ""
	}
	left := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(p.list.View())
	right := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(previewWidth).
		Render(p.renderPreview())
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("enter: resolve · /: filter · esc: cancel")
	return lipgloss.JoinVertical(lipgloss.Left, lipgloss.JoinHorizontal(lipgloss.Top, left, right), footer)
}

func (p *Picker) renderPreview() string {
	item, ok := p.list.SelectedItem().(skillItem)
	if !ok {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("No skills in graph.")
	}
	res, err := p.resolve(item.node.Name)
	if err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render(err.Error())
	}

	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	lines := []string{head.Render(report.Link(res.Target)), ""}
	if item.node.Description != "" {
		lines = append(lines, dim.Render(item.node.Description), "")
	}
	lines = append(lines, head.Render("Load order"))
	for i, name := range res.LoadOrder {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
	}
	lines = append(lines, "", dim.Render(fmt.Sprintf("%d skills · %s tokens", len(res.LoadOrder), report.Tokens(res.TotalTokens))))
	if len(res.Conflicts) > 0 {
		warn := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
		for _, c := range res.Conflicts {
			lines = append(lines, warn.Render(fmt.Sprintf("✗ %s conflicts with %s", c.Node, c.ConflictsWith)))
		}
	}
	if len(res.Suggests) > 0 {
		lines = append(lines, "", dim.Render("Suggested: "+strings.Join(res.Suggests, ", ")))
	}
	if len(res.NotFound) > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Render("Missing: "+strings.Join(res.NotFound, ", ")))
	}
	return strings.Join(lines, "\n")
}

func (p *Picker) resolve(name string) (resolver.Resolution, error) {
	if res, ok := p.preview[name]; ok {
		return res, nil
	}
	res, err := resolver.Resolve(p.graph, name, p.opts)
	if err != nil {
		return resolver.Resolution{}, err
	}
	p.preview[name] = res
	return res, nil
}

// Run shows the picker on the given terminal streams and returns the chosen
// skill. ok is false when the user cancelled.
func Run(g *graph.Graph, opts resolver.Options, in io.Reader, out io.Writer) (string, bool, error) {
	picker := NewPicker(g, opts)
	program := tea.NewProgram(picker, tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return "", false, fmt.Errorf("tui: run picker: %w", err)
	}
	chosen, ok := final.(*Picker).Selected()
	return chosen, ok, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

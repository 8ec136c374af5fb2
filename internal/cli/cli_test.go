package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
	"github.com/kingrea/skillgraph/internal/logbook"
)

var fixtureSkills = map[string]string{
	"frontend-developer": "---\nname: frontend-developer\ndomain: web\n---\n# Frontend\n",
	"react-nextjs": `---
name: react-nextjs
domain: web
description: React with Next.js
---
## Knowledge Graph
- **extends**: [[frontend-developer]]
- **suggests**: [[threejs]]
- **conflicts**: [[vue-developer]]
`,
	"vue-developer": `---
name: vue-developer
domain: web
---
## Knowledge Graph
- **extends**: [[frontend-developer]]
- **conflicts**: [[react-nextjs]]
`,
	"threejs": "---\nname: threejs\ntype: capability\ndomain: web\n---\n",
	"full-stack": `---
name: full-stack
---
## Knowledge Graph
- **requires**: [[react-nextjs]], [[vue-developer]], [[ghost]]
- **moc**: [[web-development-moc]]
`,
}

type harness struct {
	t        *testing.T
	agentDir string
	app      *App
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		agentDir: filepath.Join(t.TempDir(), ".agent"),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	h.app = New(strings.NewReader(""), h.stdout, h.stderr)
	h.app.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	h.app.Pick = func(*graph.Graph, resolver.Options) (string, bool, error) {
		t.Fatalf("unexpected interactive pick")
		return "", false, nil
	}
	return h
}

func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	full := append([]string{"--agent-dir", h.agentDir, "--log-level", "error"}, args...)
	return h.app.Run(context.Background(), full)
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	if err := h.run(args...); err != nil {
		h.t.Fatalf("run %v: %v\nstdout:\n%s\nstderr:\n%s", args, err, h.stdout, h.stderr)
	}
	return h.stdout.String()
}

func (h *harness) writeSkill(name, content string) {
	h.t.Helper()
	path := filepath.Join(h.agentDir, "skills", name, "SKILL.md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) seed() {
	h.t.Helper()
	h.mustRun("init")
	for name, content := range fixtureSkills {
		h.writeSkill(name, content)
	}
	moc := "---\nname: web-development-moc\ndomain: web\n---\n[[frontend-developer]] [[react-nextjs]]\n"
	if err := os.WriteFile(filepath.Join(h.agentDir, "mocs", "web.md"), []byte(moc), 0o644); err != nil {
		h.t.Fatal(err)
	}
	h.mustRun("build")
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildWritesIndexAndJournal(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	for name, content := range fixtureSkills {
		h.writeSkill(name, content)
	}
	h.writeSkill("broken", "no frontmatter")
	out := h.mustRun("build")
	assertContains(t, out, "Nodes: 5", "1 warning(s) encountered", "graph-index.json")

	if _, err := os.Stat(filepath.Join(h.agentDir, "graph-index.json")); err != nil {
		t.Fatalf("index not written: %v", err)
	}
	book, err := logbook.Open(filepath.Join(h.agentDir, "logs"))
	if err != nil {
		t.Fatal(err)
	}
	lines, _ := book.Tail(5)
	joined := strings.Join(lines, "\n")
	assertContains(t, joined, "[build] 5 nodes, 0 mocs, 1 warnings", "WARN")
}

func TestResolveRendersLoadOrder(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out := h.mustRun("resolve", "react-nextjs", "--suggests")
	assertContains(t, out, "1. [[frontend-developer]]", "2. [[react-nextjs]]", "○ [[threejs]]")
}

func TestResolveJSONWithFlagsAfterTarget(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out := h.mustRun("resolve", "full-stack", "--json", "--exhaustive-conflicts")
	var res resolver.Resolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	want := []string{"frontend-developer", "react-nextjs", "vue-developer", "full-stack"}
	if strings.Join(res.LoadOrder, ",") != strings.Join(want, ",") {
		t.Fatalf("load order = %v, want %v", res.LoadOrder, want)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].Node != "vue-developer" {
		t.Fatalf("conflicts = %+v", res.Conflicts)
	}
	if len(res.NotFound) != 1 || res.NotFound[0] != "ghost" {
		t.Fatalf("not found = %v", res.NotFound)
	}
}

func TestResolveDepthFlag(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out := h.mustRun("resolve", "--depth", "0", "--json", "react-nextjs")
	var res resolver.Resolution
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.LoadOrder) != 1 || res.LoadOrder[0] != "react-nextjs" {
		t.Fatalf("depth 0 load order = %v", res.LoadOrder)
	}

	if code := exitCode(t, h.run("resolve", "react-nextjs", "--depth", "-1")); code != ExitUsage {
		t.Fatalf("negative depth exit = %d, want %d", code, ExitUsage)
	}
}

func TestResolveUnknownSkillListsAvailable(t *testing.T) {
	h := newHarness(t)
	h.seed()
	err := h.run("resolve", "angular")
	if code := exitCode(t, err); code != ExitFailure {
		t.Fatalf("exit = %d, want %d", code, ExitFailure)
	}
	assertContains(t, h.stdout.String(), "Skill 'angular' not found.", "Available: frontend-developer, full-stack")
}

func TestResolveArgumentErrors(t *testing.T) {
	h := newHarness(t)
	h.seed()
	if code := exitCode(t, h.run("resolve")); code != ExitUsage {
		t.Fatalf("missing target exit = %d", code)
	}
	if code := exitCode(t, h.run("resolve", "a", "b")); code != ExitUsage {
		t.Fatalf("two targets exit = %d", code)
	}
	if code := exitCode(t, h.run("resolve", "--bogus", "react-nextjs")); code != ExitUsage {
		t.Fatalf("unknown flag exit = %d", code)
	}
}

func TestParseInterspersedStopsAtTerminator(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
		json bool
	}{
		{name: "flags around positionals", args: []string{"--json", "a", "b"}, want: []string{"a", "b"}, json: true},
		{name: "flag after positional", args: []string{"a", "--json"}, want: []string{"a"}, json: true},
		{name: "terminator first", args: []string{"--", "--json", "-x"}, want: []string{"--json", "-x"}},
		{name: "terminator after positional", args: []string{"a", "--json", "--", "--b"}, want: []string{"a", "--b"}, json: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			asJSON := fs.Bool("json", false, "")
			got, err := parseInterspersed(fs, tt.args)
			if err != nil {
				t.Fatalf("parseInterspersed: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("positionals = %q, want %q", got, tt.want)
			}
			if *asJSON != tt.json {
				t.Fatalf("json = %v, want %v", *asJSON, tt.json)
			}
		})
	}
}

func TestResolveTreatsArgsAfterTerminatorAsSkills(t *testing.T) {
	h := newHarness(t)
	h.seed()
	err := h.run("resolve", "--", "--weird-name")
	if code := exitCode(t, err); code != ExitFailure {
		t.Fatalf("exit = %d, want %d", code, ExitFailure)
	}
	assertContains(t, h.stdout.String(), "Skill '--weird-name' not found.")
}

func TestContextAggregates(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out := h.mustRun("context", "react-nextjs", "threejs", "--json")
	var size resolver.ContextSize
	if err := json.Unmarshal([]byte(out), &size); err != nil {
		t.Fatal(err)
	}
	if size.SkillCount != 3 {
		t.Fatalf("skill count = %d, want 3", size.SkillCount)
	}
	if code := exitCode(t, h.run("context")); code != ExitUsage {
		t.Fatalf("empty context exit = %d", code)
	}
}

func TestGraphCommand(t *testing.T) {
	h := newHarness(t)
	h.seed()
	assertContains(t, h.mustRun("graph"), "Total skills: 5", "Total MOCs: 1")
	assertContains(t, h.mustRun("graph", "--list", "--mocs"), "threejs [capability] (web)", "web-development-moc")
	assertContains(t, h.mustRun("graph", "--specializations", "frontend-developer"), "[[react-nextjs]]", "[[vue-developer]]")
	assertContains(t, h.mustRun("graph", "--dot"), "digraph", `"full-stack" -> "ghost"`)
}

func TestValidatePassesWithWarnings(t *testing.T) {
	h := newHarness(t)
	h.seed()
	out := h.mustRun("validate")
	assertContains(t, out,
		"✓ No cycles detected",
		"[[full-stack]] --requires--> [[ghost]] (not found)",
		"✓ Validation PASSED",
	)
}

func TestValidateFailsOnCycle(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.writeSkill("loop-a", "---\nname: loop-a\n---\n## Knowledge Graph\n**requires**: [[loop-b]]\n")
	h.writeSkill("loop-b", "---\nname: loop-b\n---\n## Knowledge Graph\n**extends**: [[loop-a]]\n")

	err := h.run("validate", "--from-source", "--json")
	if code := exitCode(t, err); code != ExitFailure {
		t.Fatalf("exit = %d, want %d", code, ExitFailure)
	}
	assertContains(t, h.stdout.String(), `"loop-a"`, `"cycles"`)

	if err := h.run("validate"); err != nil {
		t.Fatalf("stale index without the loop should still pass: %v", err)
	}
}

func TestPickResolvesChosenSkill(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.app.Pick = func(g *graph.Graph, opts resolver.Options) (string, bool, error) {
		if !opts.IncludeSuggests {
			t.Fatalf("expected --suggests to reach the picker")
		}
		return "vue-developer", true, nil
	}
	assertContains(t, h.mustRun("pick", "--suggests"), "2. [[vue-developer]]")

	h.app.Pick = func(*graph.Graph, resolver.Options) (string, bool, error) { return "", false, nil }
	assertContains(t, h.mustRun("pick"), "Selection cancelled.")
}

func TestHistoryShowsRecentRuns(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	assertContains(t, h.mustRun("history"), "graph.log", "No entries yet.")

	h.seed()
	h.mustRun("validate")
	out := h.mustRun("history", "-n", "1")
	assertContains(t, out, "Showing 1 of 2 entries", "[validate] passed with")
	if strings.Contains(out, "[build]") {
		t.Fatalf("-n 1 should only show the latest entry:\n%s", out)
	}
	if code := exitCode(t, h.run("history", "-n", "0")); code != ExitUsage {
		t.Fatalf("zero count exit = %d", code)
	}
}

func TestMissingIndex(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	err := h.run("graph")
	if code := exitCode(t, err); code != ExitFailure {
		t.Fatalf("exit = %d, want %d", code, ExitFailure)
	}
	if !strings.Contains(err.Error(), "Run 'skillgraph build' first") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	if code := exitCode(t, h.app.Run(context.Background(), nil)); code != ExitUsage {
		t.Fatalf("no command exit = %d", code)
	}
	if code := exitCode(t, h.run("explode")); code != ExitUsage {
		t.Fatalf("unknown command exit = %d", code)
	}
	assertContains(t, h.stderr.String(), "resolve <skill>")
	h.mustRun("init")
	if code := exitCode(t, h.app.Run(context.Background(), []string{"--agent-dir", h.agentDir, "--log-level", "loud", "graph"})); code != ExitUsage {
		t.Fatalf("bad log level exit = %d", code)
	}
}

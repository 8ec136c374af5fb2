package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/kingrea/skillgraph/internal/config"
	"github.com/kingrea/skillgraph/internal/export"
	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
	"github.com/kingrea/skillgraph/internal/graph/validator"
	"github.com/kingrea/skillgraph/internal/loader"
	"github.com/kingrea/skillgraph/internal/report"
)

func (a *App) runInit(dir string, args []string) error {
	fs := subcommandFlags(a, "init")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if err := config.Init(dir); err != nil {
		return failure("%v", err)
	}
	fmt.Fprintf(a.Stdout, "Initialized %s\n", dir)
	fmt.Fprintln(a.Stdout, "Add skills under skills/<name>/SKILL.md, then run 'skillgraph build'.")
	return nil
}

func (a *App) runBuild(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "build")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	res, err := loader.Build(ctx, e.cfg, a.Now())
	if err != nil {
		_ = e.logbook.Error("build", "%v", err)
		return failure("%v", err)
	}
	report.New(a.Stdout).Build(res)
	_ = e.logbook.Info("build", "%d nodes, %d mocs, %d warnings", res.Graph.Len(), len(res.Index.MOCs), len(res.Warnings))
	for _, w := range res.Warnings {
		_ = e.logbook.Warn("build", "%s", w.Error())
	}
	return nil
}

func (a *App) runResolve(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "resolve")
	depth := fs.Int("depth", 0, "Maximum traversal depth from the target. Unbounded when omitted.")
	suggests := fs.Bool("suggests", false, "Collect suggested skills.")
	exhaustive := fs.Bool("exhaustive-conflicts", false, "Check every pair of the load order for conflicts.")
	asJSON := fs.Bool("json", false, "Print the resolution as JSON.")
	asDOT := fs.Bool("dot", false, "Print the resolution as a Graphviz DOT graph.")
	positionals, err := parseInterspersed(fs, args)
	if err != nil {
		return parseError(err)
	}
	if len(positionals) != 1 {
		return usageError("resolve takes exactly one skill, got %d", len(positionals))
	}
	target := positionals[0]

	opts := resolver.Options{IncludeSuggests: *suggests}
	if *exhaustive {
		opts.Conflicts = resolver.ConflictsExhaustive
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "depth" {
			opts.MaxDepth = resolver.Depth(*depth)
		}
	})

	g, err := readGraph(e)
	if err != nil {
		return err
	}
	if !g.HasNode(target) {
		report.New(a.Stdout).UnknownSkill(target, g.Names())
		return failure("skill %q not found", target)
	}
	res, err := resolver.Resolve(g, target, opts)
	if err != nil {
		return usageError("%v", err)
	}
	e.logger.Debug("resolved", "target", target, "skills", len(res.LoadOrder), "tokens", res.TotalTokens)

	switch {
	case *asJSON:
		return writeJSON(a.Stdout, res)
	case *asDOT:
		if err := export.ResolutionDOT(a.Stdout, g, res); err != nil {
			return failure("%v", err)
		}
		return nil
	default:
		report.New(a.Stdout).Resolution(g, res)
		return nil
	}
}

func (a *App) runContext(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "context")
	asJSON := fs.Bool("json", false, "Print the context size as JSON.")
	targets, err := parseInterspersed(fs, args)
	if err != nil {
		return parseError(err)
	}
	if len(targets) == 0 {
		return usageError("context needs at least one skill")
	}
	g, err := readGraph(e)
	if err != nil {
		return err
	}
	size := resolver.Aggregate(g, targets)
	if *asJSON {
		return writeJSON(a.Stdout, size)
	}
	report.New(a.Stdout).ContextSize(size)
	return nil
}

func (a *App) runGraph(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "graph")
	list := fs.Bool("list", false, "List every skill.")
	mocs := fs.Bool("mocs", false, "List maps of content.")
	stats := fs.Bool("stats", false, "Show counts by type and domain.")
	dot := fs.Bool("dot", false, "Print the whole graph as Graphviz DOT.")
	base := fs.String("specializations", "", "List skills that extend BASE.")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if fs.NArg() > 0 {
		return usageError("graph takes no arguments, got %q", fs.Arg(0))
	}
	g, err := readGraph(e)
	if err != nil {
		return err
	}
	if *dot {
		if err := export.DOT(a.Stdout, g); err != nil {
			return failure("%v", err)
		}
		return nil
	}

	p := report.New(a.Stdout)
	if *list {
		p.List(g)
	}
	if *mocs {
		p.MOCs(g)
	}
	if *base != "" {
		p.Specializations(*base, g.Specializations(*base))
	}
	if *stats || (!*list && !*mocs && *base == "") {
		p.Stats(g.Stats())
	}
	return nil
}

func (a *App) runValidate(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "validate")
	fromSource := fs.Bool("from-source", false, "Validate the skill sources instead of graph-index.json.")
	asJSON := fs.Bool("json", false, "Print the report as JSON.")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}

	var g *graph.Graph
	if *fromSource {
		res, err := loader.Load(ctx, e.cfg)
		if err != nil {
			return failure("%v", err)
		}
		g = res.Graph
	} else {
		var err error
		if g, err = readGraph(e); err != nil {
			return err
		}
	}

	rep := validator.Run(g, validator.Options{RootSkill: e.cfg.RootSkill()})
	if *asJSON {
		if err := writeJSON(a.Stdout, rep); err != nil {
			return err
		}
	} else {
		report.New(a.Stdout).Validation(g, rep)
	}

	if rep.HasErrors() {
		_ = e.logbook.Error("validate", "%d cycle(s), %d warning(s)", len(rep.Cycles), rep.Warnings())
		return failure("validation failed: %d cycle(s) found", len(rep.Cycles))
	}
	_ = e.logbook.Info("validate", "passed with %d warning(s)", rep.Warnings())
	return nil
}

func (a *App) runPick(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "pick")
	suggests := fs.Bool("suggests", false, "Collect suggested skills.")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	g, err := readGraph(e)
	if err != nil {
		return err
	}
	if g.Len() == 0 {
		return failure("graph has no skills; run 'skillgraph build' first")
	}
	opts := resolver.Options{IncludeSuggests: *suggests}
	chosen, ok, err := a.Pick(g, opts)
	if err != nil {
		return failure("%v", err)
	}
	if !ok {
		fmt.Fprintln(a.Stdout, "Selection cancelled.")
		return nil
	}
	res, err := resolver.Resolve(g, chosen, opts)
	if err != nil {
		return failure("%v", err)
	}
	report.New(a.Stdout).Resolution(g, res)
	return nil
}

func (a *App) runHistory(ctx context.Context, e *env, args []string) error {
	fs := subcommandFlags(a, "history")
	count := fs.Int("n", 20, "Number of entries to show.")
	if err := fs.Parse(args); err != nil {
		return parseError(err)
	}
	if *count <= 0 {
		return usageError("-n must be positive, got %d", *count)
	}
	if e.logbook == nil {
		return failure("run journal unavailable under %s", e.cfg.LogsDir())
	}
	lines, total := e.logbook.Tail(*count)
	report.New(a.Stdout).History(e.logbook.Path(), lines, total)
	return nil
}

func readGraph(e *env) (*graph.Graph, error) {
	g, err := loader.ReadIndex(e.cfg.IndexPath())
	if err != nil {
		if errors.Is(err, loader.ErrIndexNotFound) {
			return nil, failure("%s not found. Run 'skillgraph build' first.", e.cfg.IndexPath())
		}
		return nil, failure("%v", err)
	}
	return g, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return failure("encode json: %v", err)
	}
	return nil
}

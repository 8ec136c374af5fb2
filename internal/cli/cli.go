// Package cli parses command-line arguments, dispatches subcommands and
// maps failures onto process exit codes. Every command works on one .agent
// directory whose configuration is loaded before the command runs.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kingrea/skillgraph/internal/config"
	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/graph/resolver"
	"github.com/kingrea/skillgraph/internal/logbook"
	"github.com/kingrea/skillgraph/internal/logging"
	"github.com/kingrea/skillgraph/internal/tui"
)

const (
	// ExitFailure signals a failed command or validation.
	ExitFailure = 1
	// ExitUsage signals bad flags or arguments.
	ExitUsage = 2
)

// ExitError carries the exit code a failure should produce.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) error {
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf(format, args...)}
}

// PickFunc shows an interactive chooser and returns the selected skill.
type PickFunc func(g *graph.Graph, opts resolver.Options) (string, bool, error)

// App holds the process streams and the hooks tests replace.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Now  func() time.Time
	Pick PickFunc
}

// New returns an App bound to the given streams.
func New(stdin io.Reader, stdout, stderr io.Writer) *App {
	app := &App{Stdin: stdin, Stdout: stdout, Stderr: stderr, Now: time.Now}
	app.Pick = func(g *graph.Graph, opts resolver.Options) (string, bool, error) {
		return tui.Run(g, opts, app.Stdin, app.Stdout)
	}
	return app
}

// env is the per-invocation state shared by commands.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	logbook *logbook.Logbook
}

type command struct {
	name    string
	args    string
	summary string
	run     func(a *App, ctx context.Context, e *env, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "init", summary: "create the .agent layout and default config"},
		{name: "build", summary: "parse skills and MOCs and write graph-index.json", run: (*App).runBuild},
		{name: "resolve", args: "<skill> [--depth N] [--suggests] [--exhaustive-conflicts] [--json|--dot]", summary: "print the load order for a skill", run: (*App).runResolve},
		{name: "context", args: "<skill>... [--json]", summary: "combined context size of several skills", run: (*App).runContext},
		{name: "graph", args: "[--list] [--mocs] [--stats] [--dot] [--specializations BASE]", summary: "inspect the graph", run: (*App).runGraph},
		{name: "validate", args: "[--from-source] [--json]", summary: "check cycles, links, conflicts and orphans", run: (*App).runValidate},
		{name: "pick", args: "[--suggests]", summary: "choose an entry skill interactively", run: (*App).runPick},
		{name: "history", args: "[-n N]", summary: "show recent build and validate runs", run: (*App).runHistory},
	}
}

func (a *App) usage(w io.Writer) {
	fmt.Fprint(w, `
skillgraph - resolve and validate skill dependency graphs.

Usage:
  skillgraph [options] <command> [arguments]

Commands:
`)
	for _, c := range commands {
		line := c.name
		if c.args != "" {
			line += " " + c.args
		}
		fmt.Fprintf(w, "  %s\n      %s\n", line, c.summary)
	}
	fmt.Fprint(w, "\nOptions:\n")
}

// Run executes one invocation. The returned error is an *ExitError for
// every expected failure.
func (a *App) Run(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("skillgraph", flag.ContinueOnError)
	flagSet.SetOutput(a.Stderr)
	agentDir := flagSet.String("agent-dir", config.AgentDir, "Path to the .agent directory.")
	logLevel := flagSet.String("log-level", "", "Logging level: debug, info, warn or error. Defaults to config.yaml.")
	logFormat := flagSet.String("log-format", "", "Log output format: text or json. Defaults to config.yaml.")
	flagSet.Usage = func() {
		a.usage(a.Stderr)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return usageError("%v", err)
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return usageError("no command given")
	}
	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	if name == "help" {
		flagSet.Usage()
		return nil
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		flagSet.Usage()
		return usageError("unknown command %q", name)
	}

	if cmd.name == "init" {
		return a.runInit(*agentDir, rest)
	}

	cfg, err := config.Load(*agentDir)
	if err != nil {
		return failure("%v", err)
	}
	level := firstNonEmpty(*logLevel, cfg.Project.Logging.Level)
	format := firstNonEmpty(*logFormat, cfg.Project.Logging.Format)
	logger, err := logging.New(level, format, a.Stderr)
	if err != nil {
		return usageError("%v", err)
	}
	ctx = logging.WithLogger(ctx, logger)

	book, err := logbook.Open(cfg.LogsDir())
	if err != nil {
		logger.Warn("run journal unavailable", "error", err)
		book = nil
	}
	logger.Debug("command starting", "command", cmd.name, "agent_dir", cfg.Dir)
	return cmd.run(a, ctx, &env{cfg: cfg, logger: logger, logbook: book}, rest)
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments and returns the positionals in order. A "--"
// terminator ends flag parsing for the rest of the line.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positionals []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		consumed := len(args) - fs.NArg()
		if consumed > 0 && args[consumed-1] == "--" {
			return append(positionals, fs.Args()...), nil
		}
		args = fs.Args()
		if len(args) == 0 {
			return positionals, nil
		}
		positionals = append(positionals, args[0])
		args = args[1:]
	}
}

func subcommandFlags(a *App, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("skillgraph "+name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	return fs
}

func parseError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return &ExitError{Code: 0}
	}
	return usageError("%v", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

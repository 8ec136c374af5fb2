// internal/loader/loader.go
//
// The loader turns an .agent directory into a graph. It discovers every
// SKILL.md below the skills directory, reads the map-of-content documents,
// and can persist the result as graph-index.json. Bad documents never abort
// a load; they come back as warnings next to the graph.

package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/skillgraph/internal/config"
	"github.com/kingrea/skillgraph/internal/graph"
	"github.com/kingrea/skillgraph/internal/logging"
)

const (
	// SkillFileName is the document that defines one node.
	SkillFileName = "SKILL.md"
	// IgnoreFileName holds gitignore-style patterns, relative to the skills
	// directory, for paths discovery should skip.
	IgnoreFileName = ".skillignore"
)

var (
	// ErrDuplicateName flags a node name defined by more than one SKILL.md.
	ErrDuplicateName = errors.New("loader: duplicate node name")
	// ErrIndexNotFound is returned by ReadIndex when no index has been built.
	ErrIndexNotFound = errors.New("loader: graph index not found")
)

// Warning reports a document that was skipped or overridden.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result is a loaded graph plus the problems found along the way.
type Result struct {
	Graph    *graph.Graph
	Warnings []Warning
}

// ParseSkill builds a node from the contents of a SKILL.md file. path is
// stored on the node verbatim.
func ParseSkill(path string, content []byte) (graph.Node, error) {
	meta, body, err := parseFrontMatter(content)
	if err != nil {
		return graph.Node{}, err
	}
	edges := parseRelations(knowledgeGraphSection(string(body)))
	edges = mergeRelationships(edges, meta.Relationships)

	node := graph.Node{
		Name:            meta.Name,
		Type:            meta.Type,
		Domain:          meta.Domain,
		Status:          meta.Status,
		Version:         meta.Version,
		Description:     meta.Description,
		Path:            filepath.ToSlash(path),
		EstimatedTokens: estimateTokens(content),
		Edges:           edges,
	}
	return node.Normalized(), nil
}

// ParseMOC builds a map of content from a markdown document. Every wiki
// link in the body becomes a member, in order of first appearance.
func ParseMOC(path string, content []byte) (graph.MOC, error) {
	meta, body, err := parseFrontMatter(content)
	if err != nil {
		return graph.MOC{}, err
	}
	return graph.MOC{
		Name:   meta.Name,
		Path:   filepath.ToSlash(path),
		Domain: meta.Domain,
		Skills: graph.Dedupe(wikiTargets(string(body))),
	}, nil
}

// estimateTokens approximates prompt cost at four characters per token.
func estimateTokens(content []byte) int {
	return (utf8.RuneCount(content) + 3) / 4
}

type parsedSkill struct {
	path string
	node graph.Node
	err  error
}

// Load reads every skill and MOC configured for cfg. A missing skills
// directory is an error; a missing MOC directory means no MOCs.
func Load(ctx context.Context, cfg *config.Config) (Result, error) {
	logger := logging.FromContext(ctx)
	paths, err := discoverSkills(cfg.SkillsDir())
	if err != nil {
		return Result{}, err
	}
	logger.Debug("discovered skill files", "count", len(paths), "dir", cfg.SkillsDir())

	projectRoot := filepath.Dir(cfg.Dir)
	parsed := make([]parsedSkill, len(paths))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = parseSkillFile(projectRoot, path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("loader: load skills: %w", err)
	}

	var warnings []Warning
	warn := func(path string, err error) {
		logger.Warn("skipping document", "path", path, "error", err)
		warnings = append(warnings, Warning{Path: path, Err: err})
	}

	nodes := make([]graph.Node, 0, len(parsed))
	seen := make(map[string]string, len(parsed))
	for _, item := range parsed {
		if item.err != nil {
			warn(item.path, item.err)
			continue
		}
		if prev, ok := seen[item.node.Name]; ok {
			warn(item.path, fmt.Errorf("%w: %s already defined in %s", ErrDuplicateName, item.node.Name, prev))
		}
		seen[item.node.Name] = item.path
		nodes = append(nodes, item.node)
	}

	mocs, mocWarnings, err := loadMOCs(cfg.MOCsDir(), cfg.Dir)
	if err != nil {
		return Result{}, err
	}
	for _, w := range mocWarnings {
		warn(w.Path, w.Err)
	}

	g := graph.New(nodes, mocs)
	logger.Info("graph loaded", "nodes", g.Len(), "mocs", len(g.MOCNames()), "warnings", len(warnings))
	return Result{Graph: g, Warnings: warnings}, nil
}

func parseSkillFile(projectRoot, path string) parsedSkill {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsedSkill{path: path, err: fmt.Errorf("loader: read: %w", err)}
	}
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		rel = path
	}
	node, err := ParseSkill(rel, data)
	return parsedSkill{path: path, node: node, err: err}
}

// discoverSkills returns every SKILL.md below dir in lexical path order,
// minus anything matched by dir/.skillignore.
func discoverSkills(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: skills directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loader: skills path %s is not a directory", dir)
	}
	ignored, err := loadIgnore(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ignored != nil && path != dir {
			rel, relErr := filepath.Rel(dir, path)
			if relErr == nil && ignored.MatchesPath(filepath.ToSlash(rel)) {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !entry.IsDir() && entry.Name() == SkillFileName {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: walk %s: %w", dir, err)
	}
	return paths, nil
}

func loadIgnore(dir string) (*ignore.GitIgnore, error) {
	path := filepath.Join(dir, IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loader: stat %s: %w", path, err)
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return matcher, nil
}

func loadMOCs(dir, agentDir string) ([]graph.MOC, []Warning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("loader: read %s: %w", dir, err)
	}
	var (
		mocs     []graph.MOC
		warnings []Warning
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Err: fmt.Errorf("loader: read: %w", err)})
			continue
		}
		rel, err := filepath.Rel(agentDir, path)
		if err != nil {
			rel = path
		}
		moc, err := ParseMOC(rel, data)
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Err: err})
			continue
		}
		mocs = append(mocs, moc)
	}
	return mocs, warnings, nil
}

// BuildResult describes a freshly written index.
type BuildResult struct {
	Result
	Index graph.Index
	Path  string
}

// Build loads the graph and writes it to cfg.IndexPath(), replacing any
// previous index atomically.
func Build(ctx context.Context, cfg *config.Config, now time.Time) (BuildResult, error) {
	res, err := Load(ctx, cfg)
	if err != nil {
		return BuildResult{}, err
	}
	idx := graph.NewIndex(res.Graph, now)
	path := cfg.IndexPath()
	if err := writeIndex(path, idx); err != nil {
		return BuildResult{}, err
	}
	logging.FromContext(ctx).Info("graph index written", "path", path)
	return BuildResult{Result: res, Index: idx, Path: path}, nil
}

func writeIndex(path string, idx graph.Index) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("loader: ensure %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".graph-index-*.json")
	if err != nil {
		return fmt.Errorf("loader: create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := idx.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("loader: encode index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("loader: close temp index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("loader: replace %s: %w", path, err)
	}
	return nil
}

// ReadIndex loads a previously built graph-index.json.
func ReadIndex(path string) (*graph.Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer file.Close()
	idx, err := graph.DecodeIndex(file)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return idx.Graph(), nil
}

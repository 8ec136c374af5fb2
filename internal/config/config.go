// internal/config/config.go
//
// This package handles configuration and the .agent directory structure.
// Every project that installs skills gets an .agent/ folder holding the
// skill sources, the maps of content, the built graph index, and logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AgentDir is the name of the directory kept in each project.
	AgentDir = ".agent"

	// DefaultRootSkill is the entry node exempt from orphan reporting.
	DefaultRootSkill = "frontend-developer"

	configFileName = "config.yaml"
)

// ErrInvalidConfig wraps every validation failure in config.yaml.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const defaultProjectConfigYAML = `# skill graph configuration
version: 1

# Entry skill expected to have no incoming edges. Never reported as orphaned.
root_skill: frontend-developer

# Locations are relative to the .agent directory unless absolute.
paths:
  skills: skills
  mocs: mocs
  index: graph-index.json

logging:
  level: info   # debug, info, warn, error
  format: text  # text or json
`

// PathsConfig locates the graph sources and the built index.
type PathsConfig struct {
	Skills string `yaml:"skills"`
	MOCs   string `yaml:"mocs"`
	Index  string `yaml:"index"`
}

// LoggingConfig selects the structured logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProjectConfig models .agent/config.yaml.
type ProjectConfig struct {
	Version   int           `yaml:"version"`
	RootSkill string        `yaml:"root_skill"`
	Paths     PathsConfig   `yaml:"paths"`
	Logging   LoggingConfig `yaml:"logging"`
}

// Config holds the runtime configuration for one agent directory.
type Config struct {
	// Dir is the absolute path of the .agent directory.
	Dir string

	Project ProjectConfig
}

// Init creates the .agent directory layout and writes the default
// config.yaml when none exists yet.
//
// Structure created:
// .agent/
// ├── skills/   <- one folder per skill, each with a SKILL.md
// ├── mocs/     <- maps of content (*.md)
// ├── logs/     <- run journal
// └── config.yaml
func Init(dir string) error {
	for _, sub := range []string{"skills", "mocs", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", sub, err)
		}
	}
	return ensureProjectConfig(filepath.Join(dir, configFileName))
}

// Load reads dir/config.yaml. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", dir, err)
	}
	cfg := Default(abs)
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration rooted at dir without touching disk.
func Default(dir string) *Config {
	return &Config{Dir: filepath.Clean(dir), Project: defaultProjectConfig()}
}

// SkillsDir returns the directory scanned for SKILL.md files.
func (c *Config) SkillsDir() string {
	return c.resolve(c.Project.Paths.Skills)
}

// MOCsDir returns the directory holding map-of-content documents.
func (c *Config) MOCsDir() string {
	return c.resolve(c.Project.Paths.MOCs)
}

// IndexPath returns the location of graph-index.json.
func (c *Config) IndexPath() string {
	return c.resolve(c.Project.Paths.Index)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.Dir, "logs")
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, configFileName)
}

// RootSkill returns the orphan-exempt entry node.
func (c *Config) RootSkill() string {
	return c.Project.RootSkill
}

func (c *Config) resolve(candidate string) string {
	if filepath.IsAbs(candidate) {
		return filepath.Clean(candidate)
	}
	return filepath.Join(c.Dir, candidate)
}

func (c *Config) loadProjectConfig() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.RootSkill) == "" {
		pc.RootSkill = DefaultRootSkill
	}
	if strings.TrimSpace(pc.Paths.Skills) == "" {
		pc.Paths.Skills = "skills"
	}
	if strings.TrimSpace(pc.Paths.MOCs) == "" {
		pc.Paths.MOCs = "mocs"
	}
	if strings.TrimSpace(pc.Paths.Index) == "" {
		pc.Paths.Index = "graph-index.json"
	}
	if strings.TrimSpace(pc.Logging.Level) == "" {
		pc.Logging.Level = "info"
	}
	if strings.TrimSpace(pc.Logging.Format) == "" {
		pc.Logging.Format = "text"
	}
}

func (pc *ProjectConfig) normalize() {
	pc.RootSkill = strings.TrimSpace(pc.RootSkill)
	pc.Paths.Skills = filepath.Clean(strings.TrimSpace(pc.Paths.Skills))
	pc.Paths.MOCs = filepath.Clean(strings.TrimSpace(pc.Paths.MOCs))
	pc.Paths.Index = filepath.Clean(strings.TrimSpace(pc.Paths.Index))
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Logging.Format = strings.ToLower(strings.TrimSpace(pc.Logging.Format))
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	switch pc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch pc.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

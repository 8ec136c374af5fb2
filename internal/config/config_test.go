package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.RootSkill() != DefaultRootSkill {
		t.Fatalf("expected root skill %q, got %q", DefaultRootSkill, cfg.RootSkill())
	}
	if got, want := cfg.IndexPath(), filepath.Join(cfg.Dir, "graph-index.json"); got != want {
		t.Fatalf("index path = %s, want %s", got, want)
	}
	if got, want := cfg.SkillsDir(), filepath.Join(cfg.Dir, "skills"); got != want {
		t.Fatalf("skills dir = %s, want %s", got, want)
	}
}

func TestInitWritesDefaultConfigThatLoads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), AgentDir)
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, sub := range []string{"skills", "mocs", "logs"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", sub, err)
		}
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after Init: %v", err)
	}
	if cfg.Project.Logging.Format != "text" || cfg.Project.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Project.Logging)
	}
	if err := Init(dir); err != nil {
		t.Fatalf("second Init should be a no-op: %v", err)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	dir := t.TempDir()
	configYAML := strings.TrimSpace(`
version: 1
root_skill: backend-developer
paths:
  skills: library/skills
  mocs: /srv/mocs
logging:
  level: DEBUG
  format: json
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RootSkill() != "backend-developer" {
		t.Fatalf("root skill = %q", cfg.RootSkill())
	}
	if got, want := cfg.SkillsDir(), filepath.Join(cfg.Dir, "library", "skills"); got != want {
		t.Fatalf("skills dir = %s, want %s", got, want)
	}
	if cfg.MOCsDir() != "/srv/mocs" {
		t.Fatalf("absolute mocs dir not kept: %s", cfg.MOCsDir())
	}
	if cfg.Project.Logging.Level != "debug" || cfg.Project.Logging.Format != "json" {
		t.Fatalf("logging not normalized: %+v", cfg.Project.Logging)
	}
}

func TestLoadRejectsInvalidLogging(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("logging:\n  format: xml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for unsupported log format")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

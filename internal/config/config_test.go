package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "build" || cfg.OnError != "abort" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Journal.Path == "" {
		t.Error("expected a default journal path")
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mode: dry-run
on_error: skip
search_dirs:
  - /opt/capexec/stages
launchers:
  lua: [lua5.4]
env:
  SITE: prod
journal:
  path: /var/log/capexec.jsonl
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != "dry-run" || cfg.OnError != "skip" {
		t.Errorf("mode/on_error: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"/opt/capexec/stages"}, cfg.SearchDirs); diff != "" {
		t.Errorf("search dirs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"lua5.4"}, cfg.Launchers["lua"]); diff != "" {
		t.Errorf("launchers (-want +got):\n%s", diff)
	}
	if cfg.Env["SITE"] != "prod" {
		t.Errorf("env: %v", cfg.Env)
	}
	if cfg.Journal.Path != "/var/log/capexec.jsonl" {
		t.Errorf("journal path: %q", cfg.Journal.Path)
	}
}

func TestLoadFromBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

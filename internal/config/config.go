package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the global capexec configuration.
type Config struct {
	// Mode is the default run mode: build, watch or dry-run.
	Mode string `yaml:"mode"`

	// OnError is the default error policy: abort or skip.
	OnError string `yaml:"on_error"`

	// SearchDirs are extra directories probed for stage tokens after
	// the sink's own directory.
	SearchDirs []string `yaml:"search_dirs"`

	// Launchers extends or overrides the extension → launcher table.
	// Each value is the argv prefix; the file path is appended.
	Launchers map[string][]string `yaml:"launchers"`

	// Env adds entries to the projected environment overlay for every
	// spawned stage.
	Env map[string]string `yaml:"env"`

	Journal JournalConfig `yaml:"journal"`
}

// JournalConfig controls the run journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Mode:    "build",
		OnError: "abort",
		Journal: JournalConfig{
			Path: filepath.Join(home, ".local", "share", "capexec", "journal.jsonl"),
		},
	}
}

// Load reads the config from the standard location
// (~/.config/capexec/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(filepath.Join(home, ".config", "capexec", "config.yaml"))
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Expand ~ in the journal path.
	if cfg.Journal.Path != "" && cfg.Journal.Path[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.Journal.Path = filepath.Join(home, cfg.Journal.Path[1:])
	}

	return cfg, nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "capexec", "config.yaml")
}

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcelocantos/capexec/internal/journal"
)

func TestRunJournalsFailedDiscoveries(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "bad.txt.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "on_error: skip\njournal:\n  path: " + journalPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, dir})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}

	entries, err := journal.Read(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d: %+v", len(entries), entries)
	}
	e := entries[0]
	if e.Phase != journal.PhaseFailed {
		t.Errorf("expected %s phase, got %q", journal.PhaseFailed, e.Phase)
	}
	if e.Key != script || e.Name != "bad.txt.sh" {
		t.Errorf("unexpected entry identity %q %q", e.Key, e.Name)
	}
	if !strings.Contains(e.Error, "exit status 3") {
		t.Errorf("expected the exit status in the error, got %q", e.Error)
	}
	if e.Run == "" || e.Mode != "build" {
		t.Errorf("unexpected run/mode %q %q", e.Run, e.Mode)
	}
}

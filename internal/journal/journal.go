// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package journal records per-discovery run outcomes as an append-only
// JSONL file.
package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Phases an entry can record.
const (
	PhaseExecuted = "executed"
	PhaseFailed   = "failed"
)

// Entry is a single journal record.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	Run      string    `json:"run"`                // run identifier, shared by all entries of one invocation
	Key      string    `json:"key"`                // discovery key (sink path)
	Name     string    `json:"name"`               // matched name
	Mode     string    `json:"mode"`               // build | watch | dry-run
	Phase    string    `json:"phase"`              // executed | failed
	Targets  []string  `json:"targets,omitempty"`  // files materialized
	Dropped  int       `json:"dropped,omitempty"`  // multi-output records skipped
	Error    string    `json:"error,omitempty"`    // failure message
	Duration float64   `json:"duration_ms"`        // execution time in milliseconds
}

// Writer appends entries to a journal file.
type Writer struct {
	mu   sync.Mutex
	path string
	seq  uint64
}

// NewWriter opens or creates a journal at the given path, resuming the
// sequence number from the last existing entry.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	w := &Writer{path: path}
	if entries, err := Read(path); err == nil && len(entries) > 0 {
		w.seq = entries[len(entries)-1].Seq
	}
	return w, nil
}

// Append writes one entry, assigning its sequence number and timestamp.
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	e.Seq = w.seq
	e.Time = time.Now().UTC()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// Read loads all entries from a journal file. Unparseable lines are
// skipped.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

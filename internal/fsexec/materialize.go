// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package fsexec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/marcelocantos/capexec/internal/engine"
)

// materializeSingle writes the final stream to the suggested target path
// with the atomic temp-then-rename discipline. Dry-run drains the stream
// without writing so the producing process is never stalled.
func (a *Adapter) materializeSingle(_ context.Context, plan *engine.Plan, out io.Reader) (*Result, error) {
	if plan.Mode == engine.ModeDryRun {
		if _, err := io.Copy(io.Discard, out); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	target := TargetPath(plan.Source)
	if err := writeAtomic(target, out); err != nil {
		return nil, err
	}
	return &Result{Targets: []string{target}}, nil
}

// fileRecord is one line of the multi-output wire format.
type fileRecord struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

// materializeMulti decodes the final stream as newline-delimited JSON file
// records and writes each one atomically under the base directory. A line
// that fails to parse is dropped silently, per the tolerant-parser policy;
// so is a record with no usable path. A trailing partial line still counts
// as a record.
func (a *Adapter) materializeMulti(_ context.Context, plan *engine.Plan, out io.Reader) (*Result, error) {
	if plan.Mode == engine.ModeDryRun {
		if _, err := io.Copy(io.Discard, out); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	baseDir := a.multiBaseDir(plan)
	res := &Result{}
	br := bufio.NewReader(out)
	for {
		line, err := br.ReadString('\n')
		if line != "" && strings.TrimSpace(line) != "" {
			target, ok, werr := a.writeRecord(baseDir, line)
			if werr != nil {
				return nil, werr
			}
			if ok {
				res.Targets = append(res.Targets, target)
			} else {
				res.Dropped++
			}
		}
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// writeRecord decodes one wire line and writes it. Undecodable lines
// report ok=false and no error; a failed write is a real error and stops
// the materializer.
func (a *Adapter) writeRecord(baseDir, line string) (target string, ok bool, err error) {
	var rec fileRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return "", false, nil
	}
	if rec.Path == "" {
		return "", false, nil
	}

	var data []byte
	switch rec.Encoding {
	case "", "utf8":
		data = []byte(rec.Content)
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(rec.Content)
		if err != nil {
			return "", false, nil
		}
		data = decoded
	default:
		return "", false, nil
	}

	target = filepath.Join(baseDir, filepath.FromSlash(rec.Path))
	if err := writeAtomic(target, bytes.NewReader(data)); err != nil {
		return "", false, err
	}
	return target, true, nil
}

// writeAtomic streams r into a uniquely named sibling temp file, then
// renames it onto path. The target never observably holds partial
// content. On failure the temp file is best-effort removed before the
// error propagates. Parent directory creation is idempotent so concurrent
// writers into the same tree do not trip over each other.
func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}

	_, werr := io.Copy(f, r)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp, path)
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, werr)
	}
	return nil
}

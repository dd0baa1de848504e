// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package fsexec

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marcelocantos/capexec/internal/engine"
)

// Probe inspects one candidate file and either produces a Stage for it or
// falls through to the next probe.
type Probe func(r *Resolver, path, sinkDir string) (engine.Stage, bool)

// Resolver turns stage tokens and sink paths into runnable Stage
// descriptors. Resolution never fails: a token no probe can place becomes
// a bare command resolved by the OS search path at spawn time.
type Resolver struct {
	// SearchDirs are probed, in order, after the sink's own directory.
	SearchDirs []string

	// Launchers maps a file extension (without dot) to the argv prefix
	// used to run a non-executable file of that type. The file path is
	// appended as the final argument.
	Launchers map[string][]string

	// Probes are evaluated short-circuit for each candidate file.
	// Nil means DefaultProbes.
	Probes []Probe
}

// DefaultLaunchers is the built-in extension → launcher table.
func DefaultLaunchers() map[string][]string {
	return map[string][]string{
		"ts": {"deno", "run", "-A"},
		"py": {"python"},
		"sh": {"bash"},
		"rb": {"ruby"},
		"js": {"node"},
	}
}

// DefaultProbes returns the built-in strategy order: direct executable,
// shebang, extension launcher.
func DefaultProbes() []Probe {
	return []Probe{ProbeExecutable, ProbeShebang, ProbeLauncher}
}

func (r *Resolver) probes() []Probe {
	if r.Probes != nil {
		return r.Probes
	}
	return DefaultProbes()
}

func (r *Resolver) launchers() map[string][]string {
	if r.Launchers != nil {
		return r.Launchers
	}
	return DefaultLaunchers()
}

// ResolveToken resolves a pre/post stage token relative to the sink's
// directory, then each configured search directory.
func (r *Resolver) ResolveToken(token, sinkDir string) engine.Stage {
	dirs := append([]string{sinkDir}, r.SearchDirs...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, token)
		if st, ok := r.resolveFile(candidate, sinkDir); ok {
			return st
		}
	}
	// Bare command: the OS exec search path finds it at spawn time, or
	// the spawn fails then.
	return engine.Stage{Argv: []string{token}, Dir: sinkDir}
}

// ResolveSink resolves the sink's own path. A sink no probe can place is
// invoked directly; an unrunnable file surfaces as a spawn error later.
func (r *Resolver) ResolveSink(path string) engine.Stage {
	sinkDir := filepath.Dir(path)
	if st, ok := r.resolveFile(path, sinkDir); ok {
		return st
	}
	return engine.Stage{Argv: []string{path}, Dir: sinkDir}
}

func (r *Resolver) resolveFile(path, sinkDir string) (engine.Stage, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return engine.Stage{}, false
	}
	for _, probe := range r.probes() {
		if st, ok := probe(r, path, sinkDir); ok {
			return st, true
		}
	}
	return engine.Stage{}, false
}

// ProbeExecutable matches files with any POSIX exec bit set.
func ProbeExecutable(_ *Resolver, path, sinkDir string) (engine.Stage, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		return engine.Stage{}, false
	}
	return engine.Stage{Argv: []string{path}, Dir: sinkDir}, true
}

// ProbeShebang matches files whose first bytes are "#!". Only the first
// 64 bytes are read.
func ProbeShebang(_ *Resolver, path, sinkDir string) (engine.Stage, bool) {
	f, err := os.Open(path)
	if err != nil {
		return engine.Stage{}, false
	}
	defer f.Close()
	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	if n < 2 || buf[0] != '#' || buf[1] != '!' {
		return engine.Stage{}, false
	}
	return engine.Stage{Argv: []string{path}, Dir: sinkDir}, true
}

// ProbeLauncher matches files whose extension has a configured launcher.
func ProbeLauncher(r *Resolver, path, sinkDir string) (engine.Stage, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	tmpl, ok := r.launchers()[ext]
	if !ok {
		return engine.Stage{}, false
	}
	argv := make([]string, 0, len(tmpl)+1)
	argv = append(argv, tmpl...)
	argv = append(argv, path)
	return engine.Stage{Argv: argv, Dir: sinkDir}, true
}

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package engine drives discovered capturable executables through an
// output adapter: prepare a plan for each discovery, optionally execute
// it, and surface progress as a lazy event stream.
package engine

import (
	"context"

	"github.com/marcelocantos/capexec/internal/discover"
)

// Mode selects the run mode surfaced to spawned processes and honored by
// materializers.
type Mode string

const (
	ModeBuild  Mode = "build"
	ModeWatch  Mode = "watch"
	ModeDryRun Mode = "dry-run"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeBuild, ModeWatch, ModeDryRun:
		return Mode(s), true
	}
	return "", false
}

// Stage describes one process to run: argv (argv[0] is the executable),
// optional working directory and per-stage environment. Argv must be
// non-empty.
type Stage struct {
	Argv []string
	Dir  string
	Env  map[string]string
}

// Pipeline is an ordered chain of stages through which one byte stream is
// threaded. Zero stages is the identity transform. Payload carries
// adapter-specific data for hook implementations.
type Pipeline struct {
	Stages  []Stage
	Payload any
}

// Plan is the immutable execution plan prepared for one discovery.
// Built once by Adapter.Prepare, executed at most once, then discarded.
type Plan struct {
	Source  discover.Discovery
	Pre     Pipeline
	Sink    Stage
	Post    Pipeline
	Context any
	Mode    Mode
}

// PrepareOptions parameterizes Adapter.Prepare.
type PrepareOptions struct {
	Context any
	Mode    Mode
}

// Adapter is the two-phase output contract. Prepare resolves a discovery
// into a Plan without touching durable state; Execute runs the plan and is
// the only operation with durable side effects. The result payload is
// adapter-defined.
type Adapter interface {
	Prepare(ctx context.Context, d discover.Discovery, opts PrepareOptions) (*Plan, error)
	Execute(ctx context.Context, plan *Plan) (any, error)
}

// Logger receives run progress. All methods must be safe to call with a
// nil receiver via NopLogger.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// NopLogger discards all output.
func NopLogger() Logger { return nopLogger{} }

// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package fsexec is the filesystem output adapter: it resolves pipeline
// stage tokens and the sink into runnable processes, chains them over
// streaming byte pipes, and materializes the final stream to disk — one
// atomic file, or a fan-out of files described by NDJSON records when the
// discovery is multi-output.
package fsexec

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/marcelocantos/capexec/internal/discover"
	"github.com/marcelocantos/capexec/internal/engine"
)

// Result reports what a plan execution materialized. In dry-run mode
// Targets is empty.
type Result struct {
	Targets []string
	Dropped int // malformed or unusable multi-output records skipped
}

// MaterializeFunc consumes the plan's final output stream.
type MaterializeFunc func(ctx context.Context, plan *engine.Plan, out io.Reader) (*Result, error)

// Adapter implements engine.Adapter against the local filesystem. The
// zero value works; every field is an optional override of a documented
// default.
type Adapter struct {
	// SearchDirs are probed for stage tokens after the sink's directory.
	SearchDirs []string

	// Launchers overrides the extension → launcher table
	// (DefaultLaunchers when nil).
	Launchers map[string][]string

	// BaseDir is the root for multi-output fan-out paths. Defaults to
	// the sink's directory.
	BaseDir string

	// Stderr receives child stderr (os.Stderr when nil).
	Stderr io.Writer

	// CreatePrePayload, when set, computes the pre-pipeline's payload
	// from the discovery.
	CreatePrePayload func(d discover.Discovery) any

	// ProjectEnv overrides the default CAPEXEC_* overlay.
	ProjectEnv func(plan *engine.Plan) map[string]string

	// ResolveStage overrides stage-token resolution.
	ResolveStage func(token, sinkDir string) engine.Stage

	// MaterializeSingle and MaterializeMulti override the default
	// materializers.
	MaterializeSingle MaterializeFunc
	MaterializeMulti  MaterializeFunc
}

func (a *Adapter) resolver() *Resolver {
	return &Resolver{SearchDirs: a.SearchDirs, Launchers: a.Launchers}
}

func (a *Adapter) resolveStage(token, sinkDir string) engine.Stage {
	if a.ResolveStage != nil {
		return a.ResolveStage(token, sinkDir)
	}
	return a.resolver().ResolveToken(token, sinkDir)
}

// Prepare resolves the discovery's stage tokens and sink into a Plan.
// It performs no process execution and no writes.
func (a *Adapter) Prepare(_ context.Context, d discover.Discovery, opts engine.PrepareOptions) (*engine.Plan, error) {
	if d.Key == "" {
		return nil, fmt.Errorf("discovery has no key")
	}
	sinkDir := filepath.Dir(d.Key)

	pre := engine.Pipeline{}
	for _, token := range d.Parsed.PreStages {
		pre.Stages = append(pre.Stages, a.resolveStage(token, sinkDir))
	}
	if a.CreatePrePayload != nil {
		pre.Payload = a.CreatePrePayload(d)
	}

	post := engine.Pipeline{}
	for _, token := range d.Parsed.PostStages {
		post.Stages = append(post.Stages, a.resolveStage(token, sinkDir))
	}

	return &engine.Plan{
		Source:  d,
		Pre:     pre,
		Sink:    a.resolver().ResolveSink(d.Key),
		Post:    post,
		Context: opts.Context,
		Mode:    opts.Mode,
	}, nil
}

// Execute runs the plan: empty stream → pre pipeline → sink → post
// pipeline → materializer. Every boundary is a streaming pipe; a slow
// consumer back-pressures the producers through pipe buffering.
func (a *Adapter) Execute(ctx context.Context, plan *engine.Plan) (any, error) {
	projectEnv := a.ProjectEnv
	if projectEnv == nil {
		projectEnv = DefaultProjectEnv
	}
	overlay := projectEnv(plan)
	env := func(st engine.Stage) []string { return mergeEnv(overlay, st.Env) }

	g, ctx := errgroup.WithContext(ctx)

	var out io.Reader = strings.NewReader("")
	out = thread(ctx, g, plan.Pre, out, env, a.Stderr)
	out = startStage(ctx, g, plan.Sink, out, env(plan.Sink), a.Stderr)
	out = thread(ctx, g, plan.Post, out, env, a.Stderr)

	materialize := a.materializer(plan)
	var result *Result
	g.Go(func() error {
		res, err := materialize(ctx, plan, out)
		// Unblock any producer still writing if materialization bailed.
		if c, ok := out.(io.Closer); ok {
			c.Close()
		}
		result = res
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *Adapter) materializer(plan *engine.Plan) MaterializeFunc {
	if plan.Source.Parsed.IsMulti {
		if a.MaterializeMulti != nil {
			return a.MaterializeMulti
		}
		return a.materializeMulti
	}
	if a.MaterializeSingle != nil {
		return a.MaterializeSingle
	}
	return a.materializeSingle
}

// TargetPath is the suggested single-output path for a discovery:
// <sink directory>/<basename>.auto.<nature>.
func TargetPath(d discover.Discovery) string {
	return filepath.Join(filepath.Dir(d.Key), d.Parsed.Basename+".auto."+d.Parsed.Nature)
}

func (a *Adapter) multiBaseDir(plan *engine.Plan) string {
	if a.BaseDir != "" {
		return a.BaseDir
	}
	return filepath.Dir(plan.Source.Key)
}

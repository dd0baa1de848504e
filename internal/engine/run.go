// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelocantos/capexec/internal/discover"
)

// ErrorPolicy decides what happens when Prepare or Execute fails.
type ErrorPolicy string

const (
	// Abort stops the whole run at the first failure and surfaces the
	// error through Events.Err.
	Abort ErrorPolicy = "abort"

	// Skip logs the failure and continues with the next discovery.
	Skip ErrorPolicy = "skip"
)

// ParseErrorPolicy converts a string to an ErrorPolicy.
func ParseErrorPolicy(s string) (ErrorPolicy, bool) {
	switch ErrorPolicy(s) {
	case Abort, Skip:
		return ErrorPolicy(s), true
	}
	return "", false
}

// Phase tags an event.
type Phase string

const (
	PhasePrepared Phase = "prepared"
	PhaseExecuted Phase = "executed"
)

// Event is one step of run progress. Result and Elapsed are set only on
// executed events.
type Event struct {
	Phase   Phase
	Plan    *Plan
	Result  any
	Elapsed time.Duration
}

// Options configures a run.
type Options struct {
	// Adapter is required.
	Adapter Adapter

	// Context is passed through to Prepare untouched.
	Context any

	// Mode defaults to ModeBuild.
	Mode Mode

	// NoExecute yields prepared events only; Execute is never called.
	NoExecute bool

	// OnError defaults to Abort.
	OnError ErrorPolicy

	// OnFail is invoked for each discovery whose Prepare or Execute
	// fails, before OnError is applied. Elapsed is zero for Prepare
	// failures. Optional.
	OnFail func(d discover.Discovery, elapsed time.Duration, err error)

	// Logger defaults to NopLogger.
	Logger Logger
}

// Events is the lazy event sequence produced by Run. Each discovery
// contributes a prepared event followed, unless NoExecute is set, by an
// executed event. The sequence is single-pass.
type Events struct {
	ctx     context.Context
	src     Source
	opts    Options
	cur     Event
	pending *Plan
	err     error
	done    bool
}

// Run starts processing discoveries from src one at a time, in src order.
// Nothing happens until the caller pulls events with Next.
func Run(ctx context.Context, src Source, opts Options) *Events {
	if opts.Mode == "" {
		opts.Mode = ModeBuild
	}
	if opts.OnError == "" {
		opts.OnError = Abort
	}
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	return &Events{ctx: ctx, src: src, opts: opts}
}

// Next advances to the next event.
func (e *Events) Next() bool {
	if e.done {
		return false
	}
	for {
		// A pending plan means the prepared event was already yielded;
		// execution is the next step for this discovery.
		if e.pending != nil {
			plan := e.pending
			e.pending = nil
			start := time.Now()
			result, err := e.opts.Adapter.Execute(e.ctx, plan)
			elapsed := time.Since(start)
			if err != nil {
				if e.fail(plan.Source, elapsed, fmt.Errorf("execute %s: %w", plan.Source.Key, err)) {
					return false
				}
				continue
			}
			e.opts.Logger.Infof("%s: done in %v", plan.Source.Key, elapsed.Round(time.Millisecond))
			e.cur = Event{Phase: PhaseExecuted, Plan: plan, Result: result, Elapsed: elapsed}
			return true
		}

		if !e.src.Next() {
			e.done = true
			e.err = e.src.Err()
			return false
		}
		d := e.src.Value()
		plan, err := e.opts.Adapter.Prepare(e.ctx, d, PrepareOptions{
			Context: e.opts.Context,
			Mode:    e.opts.Mode,
		})
		if err != nil {
			if e.fail(d, 0, fmt.Errorf("prepare %s: %w", d.Key, err)) {
				return false
			}
			continue
		}
		if !e.opts.NoExecute {
			e.pending = plan
		}
		e.cur = Event{Phase: PhasePrepared, Plan: plan}
		return true
	}
}

// fail reports err and returns true when the run must stop.
func (e *Events) fail(d discover.Discovery, elapsed time.Duration, err error) bool {
	e.opts.Logger.Errorf("%v", err)
	if e.opts.OnFail != nil {
		e.opts.OnFail(d, elapsed, err)
	}
	if e.opts.OnError == Skip {
		return false
	}
	e.err = err
	e.done = true
	return true
}

// Event returns the event positioned by the last successful Next.
func (e *Events) Event() Event { return e.cur }

// Err returns the terminating error, if any, once Next has returned false.
// Under the Skip policy individual failures are logged, not surfaced here.
func (e *Events) Err() error { return e.err }

// Drain pulls all remaining events, returning them eagerly.
func (e *Events) Drain() ([]Event, error) {
	var out []Event
	for e.Next() {
		out = append(out, e.Event())
	}
	return out, e.Err()
}

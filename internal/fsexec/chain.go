// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package fsexec

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/marcelocantos/capexec/internal/engine"
)

// ExitError reports a stage that exited with a non-zero status.
type ExitError struct {
	Stage string
	Code  int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Stage, e.Code)
}

// startStage spawns one stage in the group and returns the reader for its
// output. The stage's stdin is fed from in concurrently with draining its
// stdout (both copies are the exec package's own goroutines), so a slow
// downstream applies back-pressure without ever deadlocking the upstream.
func startStage(ctx context.Context, g *errgroup.Group, st engine.Stage, in io.Reader, env []string, stderr io.Writer) io.Reader {
	pr, pw := io.Pipe()
	g.Go(func() error {
		err := runStage(ctx, st, in, pw, env, stderr)
		// Closing the write end hands EOF (or the failure) downstream;
		// closing the upstream reader unblocks a producer still writing.
		pw.CloseWithError(err)
		if c, ok := in.(io.Closer); ok {
			c.Close()
		}
		return err
	})
	return pr
}

func runStage(ctx context.Context, st engine.Stage, in io.Reader, out io.Writer, env []string, stderr io.Writer) error {
	if len(st.Argv) == 0 {
		return fmt.Errorf("stage has empty argv")
	}
	cmd := exec.CommandContext(ctx, st.Argv[0], st.Argv[1:]...)
	cmd.Dir = st.Dir
	cmd.Env = env
	cmd.Stdin = in
	cmd.Stdout = out
	if stderr != nil {
		cmd.Stderr = stderr
	} else {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExitError{Stage: st.Argv[0], Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("%s: %w", st.Argv[0], err)
	}
	return nil
}

// thread chains a pipeline's stages onto in, returning the final reader.
// Zero stages is the identity transform.
func thread(ctx context.Context, g *errgroup.Group, p engine.Pipeline, in io.Reader, env func(engine.Stage) []string, stderr io.Writer) io.Reader {
	for _, st := range p.Stages {
		in = startStage(ctx, g, st, in, env(st), stderr)
	}
	return in
}

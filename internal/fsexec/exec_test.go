package fsexec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcelocantos/capexec/internal/discover"
	"github.com/marcelocantos/capexec/internal/engine"
	"github.com/marcelocantos/capexec/internal/grammar"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	return writeFile(t, dir, name, "#!/bin/sh\n"+body+"\n", 0o755)
}

func discoveryFor(t *testing.T, path string) discover.Discovery {
	t.Helper()
	name := filepath.Base(path)
	parsed, ok := grammar.Parse(name)
	if !ok {
		t.Fatalf("sink name %q does not match the grammar", name)
	}
	return discover.Discovery{Key: path, Spec: filepath.Dir(path), Name: name, Parsed: parsed}
}

func execute(t *testing.T, a *Adapter, d discover.Discovery, mode engine.Mode) (*Result, error) {
	t.Helper()
	plan, err := a.Prepare(context.Background(), d, engine.PrepareOptions{Mode: mode})
	if err != nil {
		t.Fatal(err)
	}
	res, err := a.Execute(context.Background(), plan)
	if err != nil {
		return nil, err
	}
	return res.(*Result), nil
}

func TestExecuteSingleRoundTrip(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	writeScript(t, dir, "seed", "printf 'hello atomic world'")
	sink := writeScript(t, dir, "out.[seed].txt.sh", "cat")

	a := &Adapter{}
	res, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild)
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "out.auto.txt")
	if len(res.Targets) != 1 || res.Targets[0] != target {
		t.Fatalf("expected target %s, got %v", target, res.Targets)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello atomic world" {
		t.Errorf("round trip mismatch: %q", data)
	}
	assertNoTempResidue(t, dir)
}

func TestExecutePostStage(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	writeScript(t, dir, "seed", "printf 'shout'")
	writeScript(t, dir, "upper", "tr a-z A-Z")
	sink := writeScript(t, dir, "msg.[seed].txt.[upper].sh", "cat")

	a := &Adapter{}
	if _, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "msg.auto.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "SHOUT" {
		t.Errorf("post stage not applied: %q", data)
	}
}

func TestExecuteMultiOutput(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	// Two valid records, one malformed line, one base64 record.
	sink := writeScript(t, dir, "gen.files+.sh", strings.Join([]string{
		`echo '{"path": "a.txt", "content": "alpha"}'`,
		`echo 'this is not json'`,
		`echo '{"path": "sub/b.txt", "content": "beta"}'`,
		`echo '{"path": "c.bin", "content": "aGVsbG8=", "encoding": "base64"}'`,
	}, "\n"))

	a := &Adapter{}
	res, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped record, got %d", res.Dropped)
	}
	for path, want := range map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "beta",
		"c.bin":     "hello",
	} {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(path)))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}
}

func TestExecuteDryRunWritesNothing(t *testing.T) {
	requireSh(t)
	for _, sinkName := range []string{"one.txt.sh", "many.files+.sh"} {
		dir := t.TempDir()
		body := "printf 'data'"
		if strings.Contains(sinkName, "+") {
			body = `echo '{"path": "a.txt", "content": "alpha"}'`
		}
		sink := writeScript(t, dir, sinkName, body)

		a := &Adapter{}
		res, err := execute(t, a, discoveryFor(t, sink), engine.ModeDryRun)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Targets) != 0 {
			t.Errorf("%s: dry-run reported targets %v", sinkName, res.Targets)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("%s: dry-run created files: %v", sinkName, entries)
		}
	}
}

func TestExecuteEnvOverlay(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	sink := writeScript(t, dir, "who.txt.sh", `printf '%s/%s/%s' "$CAPEXEC_BASENAME" "$CAPEXEC_NATURE" "$CAPEXEC_MODE"`)

	a := &Adapter{}
	if _, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "who.auto.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "who/txt/build" {
		t.Errorf("unexpected overlay: %q", data)
	}
}

func TestExecuteStageEnvWins(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	probe := writeScript(t, dir, "showmode", `printf '%s' "$CAPEXEC_MODE"`)
	sink := writeScript(t, dir, "mode.[showmode].txt.sh", "cat")

	a := &Adapter{
		ResolveStage: func(token, sinkDir string) engine.Stage {
			return engine.Stage{
				Argv: []string{probe},
				Dir:  sinkDir,
				Env:  map[string]string{"CAPEXEC_MODE": "overridden"},
			}
		},
	}
	if _, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "mode.auto.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "overridden" {
		t.Errorf("stage env did not win: %q", data)
	}
}

func TestExecuteSinkFailure(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	sink := writeScript(t, dir, "bad.txt.sh", "exit 3")

	a := &Adapter{}
	_, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild)
	if err == nil {
		t.Fatal("expected failure")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code != 3 {
		t.Errorf("expected exit code 3, got %d", exitErr.Code)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bad.auto.txt")); !os.IsNotExist(statErr) {
		t.Error("failed run must not leave a target file")
	}
	assertNoTempResidue(t, dir)
}

func TestExecuteMissingStageCommand(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	sink := writeScript(t, dir, "x.[no-such-cmd-zz].txt.sh", "cat")

	a := &Adapter{}
	if _, err := execute(t, a, discoveryFor(t, sink), engine.ModeBuild); err == nil {
		t.Fatal("expected spawn failure for unresolvable stage command")
	}
}

func assertNoTempResidue(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

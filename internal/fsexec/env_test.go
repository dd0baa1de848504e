package fsexec

import (
	"strings"
	"testing"

	"github.com/marcelocantos/capexec/internal/discover"
	"github.com/marcelocantos/capexec/internal/engine"
	"github.com/marcelocantos/capexec/internal/grammar"
)

func planFor(t *testing.T, name, key string, mode engine.Mode) *engine.Plan {
	t.Helper()
	parsed, ok := grammar.Parse(name)
	if !ok {
		t.Fatalf("bad grammar name %q", name)
	}
	return &engine.Plan{
		Source: discover.Discovery{Key: key, Name: name, Parsed: parsed},
		Mode:   mode,
	}
}

func envValue(env []string, key string) (string, bool) {
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v, true
		}
	}
	return "", false
}

func TestDefaultProjectEnv(t *testing.T) {
	plan := planFor(t, "orders.json+.py", "/srv/site/orders.json+.py", engine.ModeDryRun)
	overlay := DefaultProjectEnv(plan)

	want := map[string]string{
		"CAPEXEC_MODE":     "dry-run",
		"CAPEXEC_SINK":     "/srv/site/orders.json+.py",
		"CAPEXEC_DIR":      "/srv/site",
		"CAPEXEC_BASENAME": "orders",
		"CAPEXEC_NATURE":   "json+",
	}
	for k, v := range want {
		if overlay[k] != v {
			t.Errorf("%s = %q, want %q", k, overlay[k], v)
		}
	}
}

func TestMergeEnvStageWins(t *testing.T) {
	overlay := map[string]string{"CAPEXEC_MODE": "build", "SHARED": "overlay"}
	stage := map[string]string{"SHARED": "stage", "EXTRA": "1"}

	env := mergeEnv(overlay, stage)
	if v, _ := envValue(env, "SHARED"); v != "stage" {
		t.Errorf("stage env must win, got %q", v)
	}
	if v, _ := envValue(env, "CAPEXEC_MODE"); v != "build" {
		t.Errorf("overlay missing, got %q", v)
	}
	if v, _ := envValue(env, "EXTRA"); v != "1" {
		t.Errorf("stage-only entry missing, got %q", v)
	}
}

func TestMergeEnvShadowsParent(t *testing.T) {
	t.Setenv("CAPEXEC_TEST_PARENT", "parent")
	env := mergeEnv(map[string]string{"CAPEXEC_TEST_PARENT": "overlay"}, nil)

	seen := 0
	for _, kv := range env {
		if strings.HasPrefix(kv, "CAPEXEC_TEST_PARENT=") {
			seen++
			if kv != "CAPEXEC_TEST_PARENT=overlay" {
				t.Errorf("expected overlay value, got %s", kv)
			}
		}
	}
	if seen != 1 {
		t.Errorf("expected exactly one entry, got %d", seen)
	}
}

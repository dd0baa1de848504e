// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package fsexec

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/marcelocantos/capexec/internal/engine"
)

// DefaultProjectEnv is the overlay injected into every spawned process so
// stages and sinks can see what they are producing and in which mode.
func DefaultProjectEnv(plan *engine.Plan) map[string]string {
	sink := plan.Source.Key
	return map[string]string{
		"CAPEXEC_MODE":     string(plan.Mode),
		"CAPEXEC_SINK":     sink,
		"CAPEXEC_DIR":      filepath.Dir(sink),
		"CAPEXEC_BASENAME": plan.Source.Parsed.Basename,
		"CAPEXEC_NATURE":   plan.Source.Parsed.NatureTag(),
	}
}

// mergeEnv layers the projected overlay, then the stage's own env, on top
// of the parent process environment. Later layers win on key conflicts.
func mergeEnv(overlay, stageEnv map[string]string) []string {
	env := os.Environ()
	merged := make(map[string]string, len(overlay)+len(stageEnv))
	for k, v := range overlay {
		merged[k] = v
	}
	for k, v := range stageEnv {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env)+len(keys))
	for _, kv := range env {
		if _, shadowed := merged[splitKey(kv)]; !shadowed {
			out = append(out, kv)
		}
	}
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

func splitKey(kv string) string {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i]
		}
	}
	return kv
}

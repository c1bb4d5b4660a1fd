package engine

import (
	"sort"
	"strings"
)

// mergeEnv builds a child environment snapshot from the parent environment
// and request overrides. Overrides win on key collision. The returned slice
// is freshly allocated; the parent environment is never modified.
func mergeEnv(parent []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		out := make([]string, len(parent))
		copy(out, parent)
		return out
	}

	env := make([]string, 0, len(parent)+len(overrides))
	for _, kv := range parent {
		key, _, ok := strings.Cut(kv, "=")
		if ok {
			if _, overridden := overrides[key]; overridden {
				continue
			}
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	// Deterministic order keeps the spawned environment reproducible.
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}

	return env
}

// envHas reports whether the snapshot defines the given key.
func envHas(env []string, key string) bool {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}

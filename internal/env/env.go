package env

import (
	"os"
	"sort"
	"strings"
)

// Overrides holds per-service environment variables layered on top of the
// inherited host environment (PORT, HOST, and whatever the config adds).
type Overrides map[string]string

// Merge composes the child process environment: the host's os.Environ as the
// base, then overrides applied on top. Values may reference other variables
// with ${VAR}; expansion uses the composed map and does not recurse.
// The result is sorted for deterministic spawns.
func Merge(over Overrides) []string {
	m := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range over {
		if k == "" {
			continue
		}
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+expand(v, m))
	}
	sort.Strings(out)
	return out
}

func expand(s string, m map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(k string) string {
		if v, ok := m[k]; ok {
			return v
		}
		return ""
	})
}

package env

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lookup(envs []string, key string) (string, bool) {
	prefix := key + "="
	for _, kv := range envs {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix), true
		}
	}
	return "", false
}

func TestMergeInheritsHostEnvironment(t *testing.T) {
	t.Setenv("DESKHOST_TEST_BASE", "inherited")

	envs := Merge(nil)
	v, ok := lookup(envs, "DESKHOST_TEST_BASE")
	require.True(t, ok)
	require.Equal(t, "inherited", v)
}

func TestMergeOverridesWin(t *testing.T) {
	t.Setenv("PORT", "1111")

	envs := Merge(Overrides{"PORT": "7626", "HOST": "127.0.0.1"})
	port, _ := lookup(envs, "PORT")
	host, _ := lookup(envs, "HOST")
	require.Equal(t, "7626", port)
	require.Equal(t, "127.0.0.1", host)
}

func TestMergeExpandsReferences(t *testing.T) {
	t.Setenv("DESKHOST_TEST_ROOT", "/opt/app")

	envs := Merge(Overrides{"DATA_DIR": "${DESKHOST_TEST_ROOT}/data"})
	v, _ := lookup(envs, "DATA_DIR")
	require.Equal(t, "/opt/app/data", v)
}

func TestMergeUnknownReferenceExpandsEmpty(t *testing.T) {
	envs := Merge(Overrides{"X": "${DESKHOST_TEST_DOES_NOT_EXIST}"})
	v, _ := lookup(envs, "X")
	require.Equal(t, "", v)
}

func TestMergeSkipsEmptyKeys(t *testing.T) {
	envs := Merge(Overrides{"": "junk"})
	_, ok := lookup(envs, "")
	require.False(t, ok)
}

func TestMergeDeterministic(t *testing.T) {
	a := Merge(Overrides{"B": "2", "A": "1"})
	b := Merge(Overrides{"A": "1", "B": "2"})
	require.Equal(t, a, b)
}

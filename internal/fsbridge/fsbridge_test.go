package fsbridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{
		"alpha",
		"alpha/nested",
		"alpha/nested/deep",
		"beta",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o750))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", "file.go"), []byte("x"), 0o600))
	return root
}

func names(entries []DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelativePath)
	}
	return out
}

func TestListSubdirectoriesImmediate(t *testing.T) {
	root := makeTree(t)
	entries, err := ListSubdirectories(root, false, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, names(entries))
	require.Equal(t, 1, entries[0].Depth)
	require.Equal(t, filepath.Join(root, "alpha"), entries[0].Path)
}

func TestListSubdirectoriesRecursive(t *testing.T) {
	root := makeTree(t)
	entries, err := ListSubdirectories(root, true, 0)
	require.NoError(t, err)
	require.Equal(t, []string{
		"alpha",
		filepath.Join("alpha", "nested"),
		filepath.Join("alpha", "nested", "deep"),
		"beta",
	}, names(entries))
	require.Equal(t, 3, entries[2].Depth)
}

func TestListSubdirectoriesMaxDepth(t *testing.T) {
	root := makeTree(t)
	entries, err := ListSubdirectories(root, true, 2)
	require.NoError(t, err)
	require.Equal(t, []string{
		"alpha",
		filepath.Join("alpha", "nested"),
		"beta",
	}, names(entries))
}

func TestListSubdirectoriesSkipsFiles(t *testing.T) {
	root := makeTree(t)
	entries, err := ListSubdirectories(root, true, 0)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name, ".txt")
		require.NotContains(t, e.Name, ".go")
	}
}

func TestListSubdirectoriesErrors(t *testing.T) {
	_, err := ListSubdirectories(filepath.Join(t.TempDir(), "missing"), false, 0)
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = ListSubdirectories(file, false, 0)
	require.Error(t, err)
}

func TestOpenOrCreateDirectory(t *testing.T) {
	base := t.TempDir()

	fresh := filepath.Join(base, "workspace", "projects")
	require.NoError(t, OpenOrCreateDirectory(fresh))
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	// second call on an existing directory is a no-op
	require.NoError(t, OpenOrCreateDirectory(fresh))

	file := filepath.Join(base, "clash")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	require.Error(t, OpenOrCreateDirectory(file))
}

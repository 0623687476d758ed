package deskhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 7626, cfg.Backend.Port)
	require.Equal(t, 5173, cfg.Frontend.Port)
	require.NoError(t, cfg.Validate())
}

func TestNewHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "error"
	h, err := New(cfg)
	require.NoError(t, err)
	require.False(t, h.ShuttingDown())

	view := h.StatusView()
	require.Len(t, view.Services, 2)
	h.Close()
}

func TestDirectoryPassThroughs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "projects"), 0o750))

	require.NoError(t, OpenOrCreateDirectory(filepath.Join(root, "created")))

	entries, err := ListSubdirectories(root, false, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

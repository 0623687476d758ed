// Package deskhost embeds the desktop host supervisor: it launches the
// frontend and backend service processes, waits for them to become ready,
// and guarantees that ports and processes are reclaimed on any termination
// path.
package deskhost

import (
	"context"

	"github.com/frameloft/deskhost/internal/config"
	"github.com/frameloft/deskhost/internal/fsbridge"
	"github.com/frameloft/deskhost/internal/host"
	"github.com/frameloft/deskhost/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = config.Config

type ServiceConfig = config.Service

type StatusView = server.StatusView

type DirEntry = fsbridge.DirEntry

type FolderPicker = fsbridge.FolderPicker

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a TOML config file over the defaults; empty path means
// defaults only.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Host is a thin facade over the internal host for embedding in a shell.
type Host struct{ inner *host.Host }

func New(cfg Config) (*Host, error) {
	h, err := host.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Host{inner: h}, nil
}

// Start brings both services up and verifies them. See Run for the full
// lifecycle including signal handling.
func (h *Host) Start(ctx context.Context) error { return h.inner.Start(ctx) }

// Run executes the whole lifecycle and blocks until teardown completes.
func (h *Host) Run(ctx context.Context) error { return h.inner.Run(ctx) }

// Shutdown triggers the idempotent teardown sequence and blocks until it
// completes. Concurrent calls collapse into one run.
func (h *Host) Shutdown(ctx context.Context, trigger string) { h.inner.Shutdown(ctx, trigger) }

// Fault routes an unrecovered panic through the teardown sequence.
func (h *Host) Fault(v any) { h.inner.Fault(v) }

// ShuttingDown reports whether any termination trigger has been accepted.
func (h *Host) ShuttingDown() bool { return h.inner.ShuttingDown() }

// StatusView snapshots the host and service state.
func (h *Host) StatusView() StatusView { return h.inner.StatusView() }

// Close releases log and audit resources after shutdown.
func (h *Host) Close() { h.inner.Close() }

// Presentation-layer pass-throughs.

func ListSubdirectories(root string, recursive bool, maxDepth int) ([]DirEntry, error) {
	return fsbridge.ListSubdirectories(root, recursive, maxDepth)
}

func OpenOrCreateDirectory(path string) error {
	return fsbridge.OpenOrCreateDirectory(path)
}

//go:build !windows

package proc

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func spawnShell(t *testing.T, script string) *Handle {
	t.Helper()
	h, err := Spawn(SpawnOptions{
		Role: RoleOther,
		Path: "/bin/sh",
		Args: []string{"-c", script},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		h.Kill()
		select {
		case <-h.Done():
		case <-time.After(3 * time.Second):
		}
	})
	return h
}

func TestSpawnStreamsOutputAndExit(t *testing.T) {
	h := spawnShell(t, `echo one; echo two 1>&2; exit 3`)

	// Stdout and stderr are scanned concurrently; group by stream instead
	// of asserting interleaving.
	byStream := map[Stream][]string{}
	var exit Event
	for ev := range h.Events() {
		switch ev.Kind {
		case EventOutputLine:
			byStream[ev.Stream] = append(byStream[ev.Stream], ev.Line)
		case EventExited:
			exit = ev
		}
	}

	require.Equal(t, []string{"one"}, byStream[StreamStdout])
	require.Equal(t, []string{"two"}, byStream[StreamStderr])
	require.Equal(t, 3, exit.Code)

	<-h.Done()
	require.True(t, h.Exited())
	require.Equal(t, 3, h.Exit().Code)
}

func TestSpawnRejectsMissingExecutable(t *testing.T) {
	_, err := Spawn(SpawnOptions{Role: RoleOther, Path: "/nonexistent/service"})
	require.Error(t, err)
}

type closeTracker struct {
	closed bool
}

func (c *closeTracker) Write(p []byte) (int, error) { return len(p), nil }
func (c *closeTracker) Close() error                { c.closed = true; return nil }

func TestSpawnClosesCaptureOnStartFailure(t *testing.T) {
	capture := &closeTracker{}
	// A directory passes the artifact check but cannot be executed.
	_, err := Spawn(SpawnOptions{Role: RoleOther, Path: t.TempDir(), Capture: capture})
	require.Error(t, err)
	require.True(t, capture.closed, "capture writer leaked on start failure")
}

func TestSpawnClosesCaptureOnExit(t *testing.T) {
	capture := &closeTracker{}
	h, err := Spawn(SpawnOptions{
		Role:    RoleOther,
		Path:    "/bin/sh",
		Args:    []string{"-c", `echo captured`},
		Capture: capture,
	})
	require.NoError(t, err)
	drain(h)
	<-h.Done()
	require.True(t, capture.closed)
}

func TestTerminateGraceful(t *testing.T) {
	h := spawnShell(t, `sleep 30`)
	go drain(h)

	start := time.Now()
	Terminate(h, 5*time.Second, testLogger())
	require.Less(t, time.Since(start), 2*time.Second, "cooperative exit should beat the grace window")
	require.True(t, h.Exited())
}

func TestTerminateEscalatesToKill(t *testing.T) {
	// The child ignores SIGTERM; only the forced kill at grace/2 ends it.
	h := spawnShell(t, `trap '' TERM; while true; do sleep 1; done`)
	go drain(h)

	// Give the shell a moment to install the trap.
	time.Sleep(100 * time.Millisecond)

	grace := 2 * time.Second
	start := time.Now()
	Terminate(h, grace, testLogger())
	elapsed := time.Since(start)
	require.GreaterOrEqual(t, elapsed, grace/2)
	require.Less(t, elapsed, grace+500*time.Millisecond, "terminate must resolve within grace plus epsilon")
}

func TestTerminateExitedHandleReturnsImmediately(t *testing.T) {
	h := spawnShell(t, `true`)
	drain(h)
	<-h.Done()

	start := time.Now()
	Terminate(h, 10*time.Second, testLogger())
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTerminateNilHandle(t *testing.T) {
	Terminate(nil, time.Second, testLogger())
}

func drain(h *Handle) {
	for range h.Events() {
	}
}

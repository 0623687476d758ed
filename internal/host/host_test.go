//go:build !windows

package host

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frameloft/deskhost/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Server.Enabled = false
	cfg.Backend.Port = freePort(t)
	cfg.Frontend.Port = freePort(t)
	cfg.Timing.SettleDelay = 10 * time.Millisecond
	cfg.Timing.EscalationDelay = 20 * time.Millisecond
	cfg.Timing.ServiceGrace = 2 * time.Second
	cfg.Timing.DrainGrace = 2 * time.Second
	return cfg
}

func TestStatusViewBeforeStart(t *testing.T) {
	cfg := testConfig(t)
	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Close()

	view := h.StatusView()
	require.False(t, view.Ready)
	require.False(t, view.Degraded)
	require.False(t, view.ShuttingDown)
	require.Len(t, view.Services, 2)
	require.Equal(t, "backend", view.Services[0].Role)
	require.Equal(t, cfg.Backend.Port, view.Services[0].Port)
	require.False(t, view.Services[0].Running)
	require.Equal(t, "frontend", view.Services[1].Role)
}

func TestRequestQuitUnblocksWaitForTrigger(t *testing.T) {
	h, err := New(testConfig(t))
	require.NoError(t, err)
	defer h.Close()

	got := make(chan string, 1)
	go func() { got <- h.waitForTrigger(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	h.requestQuit("control-api")

	select {
	case trigger := <-got:
		require.Equal(t, "control-api", trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForTrigger did not return")
	}

	// later requests lose the race and do not panic
	h.requestQuit("second")
}

func TestWaitForTriggerContextCancel(t *testing.T) {
	h, err := New(testConfig(t))
	require.NoError(t, err)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	go func() { got <- h.waitForTrigger(ctx) }()
	cancel()

	select {
	case trigger := <-got:
		require.Equal(t, "context", trigger)
	case <-time.After(2 * time.Second):
		t.Fatal("waitForTrigger did not return")
	}
}

func TestStartDegradedWhenBackendMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Command = "/nonexistent/backend-binary"
	cfg.Backend.Readiness = config.ReadinessDelay
	cfg.Backend.ReadyDelay = 10 * time.Millisecond
	cfg.Frontend.Command = "/bin/sh"
	cfg.Frontend.Args = []string{"-c", "sleep 30"}
	cfg.Frontend.Readiness = config.ReadinessDelay
	cfg.Frontend.ReadyDelay = 10 * time.Millisecond
	cfg.Frontend.ProbeAttempts = 1
	cfg.Frontend.ProbeInterval = 10 * time.Millisecond
	cfg.Backend.ProbeAttempts = 1
	cfg.Backend.ProbeInterval = 10 * time.Millisecond

	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Close()

	err = h.Start(context.Background())
	require.Error(t, err)

	view := h.StatusView()
	require.True(t, view.Degraded)
	require.True(t, view.Ready)
	require.False(t, view.Services[0].Running)
	require.True(t, view.Services[1].Running)

	h.Shutdown(context.Background(), "test")
	require.True(t, h.ShuttingDown())
	require.Eventually(t, func() bool {
		return !h.StatusView().Services[1].Running
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRequestShutdownLatches(t *testing.T) {
	h, err := New(testConfig(t))
	require.NoError(t, err)
	defer h.Close()

	h.RequestShutdown("control-api")
	require.Eventually(t, h.ShuttingDown, 2*time.Second, 10*time.Millisecond)
}

func TestProbeURL(t *testing.T) {
	svc := config.Service{Host: "", Port: 5173, ProbePath: "/"}
	require.Equal(t, "http://127.0.0.1:5173/", probeURL(svc))

	svc = config.Service{Host: "localhost", Port: 7626}
	require.Equal(t, "http://localhost:7626", probeURL(svc))
}

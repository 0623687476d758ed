package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestCountersAppearAfterUse(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	IncLaunch("backend")
	IncLaunchFailure("backend", "spawn_failed")
	IncExit("frontend")
	IncProbeExhausted("frontend")
	IncPortReclaim("7626")
	IncShutdown("signal")
	ObserveShutdownDuration(0.25)

	families, err := reg.Gather()
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, mf := range families {
		seen[mf.GetName()] = true
	}
	for _, name := range []string{
		"deskhost_service_launches_total",
		"deskhost_service_launch_failures_total",
		"deskhost_service_exits_total",
		"deskhost_probe_exhausted_total",
		"deskhost_port_reclaims_total",
		"deskhost_shutdown_runs_total",
		"deskhost_shutdown_duration_seconds",
	} {
		require.True(t, seen[name], "missing metric family %s", name)
	}
}

package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serviceLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "service",
			Name:      "launches_total",
			Help:      "Number of successful service launches.",
		}, []string{"role"},
	)
	serviceLaunchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "service",
			Name:      "launch_failures_total",
			Help:      "Number of launches that failed before readiness.",
		}, []string{"role", "reason"},
	)
	serviceExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "service",
			Name:      "exits_total",
			Help:      "Number of observed service process exits.",
		}, []string{"role"},
	)
	probeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "probe",
			Name:      "exhausted_total",
			Help:      "Number of readiness probes that exhausted their budget.",
		}, []string{"role"},
	)
	portsReclaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "port",
			Name:      "reclaims_total",
			Help:      "Number of port reclamation sweeps run.",
		}, []string{"port"},
	)
	shutdownRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deskhost",
			Subsystem: "shutdown",
			Name:      "runs_total",
			Help:      "Number of shutdown sequences executed, by trigger.",
		}, []string{"trigger"},
	)
	shutdownDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "deskhost",
			Subsystem: "shutdown",
			Name:      "duration_seconds",
			Help:      "Wall time of the full shutdown sequence.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors on reg. Safe to call more than once;
// duplicate registration is tolerated.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		serviceLaunches, serviceLaunchFailures, serviceExits,
		probeFailures, portsReclaimed, shutdownRuns, shutdownDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			regOK.Store(false)
			return err
		}
	}
	regOK.Store(true)
	return nil
}

func IncLaunch(role string) { serviceLaunches.WithLabelValues(role).Inc() }

func IncLaunchFailure(role, reason string) {
	serviceLaunchFailures.WithLabelValues(role, reason).Inc()
}

func IncExit(role string) { serviceExits.WithLabelValues(role).Inc() }

func IncProbeExhausted(role string) { probeFailures.WithLabelValues(role).Inc() }

func IncPortReclaim(port string) { portsReclaimed.WithLabelValues(port).Inc() }

func IncShutdown(trigger string) { shutdownRuns.WithLabelValues(trigger).Inc() }

func ObserveShutdownDuration(seconds float64) { shutdownDuration.Observe(seconds) }

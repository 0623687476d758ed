// Package launcher brings up one named service: it frees the service port,
// spawns the process, registers it for cleanup, streams its output into the
// host log, and resolves once the service is judged ready.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/frameloft/deskhost/internal/env"
	"github.com/frameloft/deskhost/internal/history"
	"github.com/frameloft/deskhost/internal/logger"
	"github.com/frameloft/deskhost/internal/metrics"
	"github.com/frameloft/deskhost/internal/portguard"
	"github.com/frameloft/deskhost/internal/proc"
	"github.com/frameloft/deskhost/internal/registry"
)

// Reason classifies why a launch failed.
type Reason string

const (
	ReasonMissingArtifact Reason = "missing_artifact"
	ReasonSpawnFailed     Reason = "spawn_failed"
	ReasonExitedEarly     Reason = "exited_early"
	ReasonProbeExhausted  Reason = "probe_exhausted"
)

// LaunchError is the failure surface of Launch. ExitedEarly carries the
// child's exit code and signal.
type LaunchError struct {
	Role   proc.Role
	Reason Reason
	Code   int
	Signal string
	Err    error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("launch %s: %s", e.Role, e.Reason)
	if e.Reason == ReasonExitedEarly {
		msg += fmt.Sprintf(" (code=%d signal=%q)", e.Code, e.Signal)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Service describes one child service to launch.
type Service struct {
	Role      proc.Role
	Command   string   // executable or script path
	Args      []string
	Dir       string
	Host      string            // bind host exported as HOST
	Port      int               // exported as PORT; reclaimed before spawn
	Env       map[string]string // extra overrides on top of PORT/HOST
	Readiness Readiness
	Cleanup   func() // optional, runs during registry drain
}

// Launcher composes port reclamation, spawning, registration and output
// capture for service launches.
type Launcher struct {
	reg    *registry.Registry
	ports  *portguard.Reclaimer
	logCfg logger.Config
	hist   *history.Recorder
	log    *slog.Logger
}

func New(reg *registry.Registry, ports *portguard.Reclaimer, logCfg logger.Config, hist *history.Recorder, log *slog.Logger) *Launcher {
	return &Launcher{reg: reg, ports: ports, logCfg: logCfg, hist: hist, log: log}
}

// Launch starts svc and blocks until its readiness policy resolves. The
// process is registered for cleanup immediately after a successful spawn,
// before readiness is known, so a crash mid-startup is still swept. On early
// exit or spawn failure the registry ends without the record and a
// LaunchError is returned. A steady-state crash after Launch has returned is
// observed by the same exit watcher and only logged.
func (l *Launcher) Launch(ctx context.Context, svc Service) (*proc.Handle, error) {
	role := string(svc.Role)

	path, err := resolveArtifact(svc.Command)
	if err != nil {
		metrics.IncLaunchFailure(role, string(ReasonMissingArtifact))
		return nil, &LaunchError{Role: svc.Role, Reason: ReasonMissingArtifact, Err: err}
	}

	if svc.Port > 0 {
		l.ports.Reclaim(ctx, svc.Port)
		metrics.IncPortReclaim(strconv.Itoa(svc.Port))
	}

	overrides := env.Overrides{}
	if svc.Port > 0 {
		overrides["PORT"] = strconv.Itoa(svc.Port)
	}
	if svc.Host != "" {
		overrides["HOST"] = svc.Host
	}
	for k, v := range svc.Env {
		overrides[k] = v
	}

	h, err := proc.Spawn(proc.SpawnOptions{
		Role:    svc.Role,
		Path:    path,
		Args:    svc.Args,
		Dir:     svc.Dir,
		Env:     env.Merge(overrides),
		Capture: l.logCfg.CaptureWriter(role),
	})
	if err != nil {
		metrics.IncLaunchFailure(role, string(ReasonSpawnFailed))
		return nil, &LaunchError{Role: svc.Role, Reason: ReasonSpawnFailed, Err: err}
	}

	pid := h.PID()
	l.log.Info("service spawned", "role", role, "pid", pid, "command", path, "port", svc.Port)
	l.reg.Insert(registry.Record{PID: pid, Role: svc.Role, Handle: h, Cleanup: svc.Cleanup})
	l.hist.Record(ctx, history.Event{Type: history.EventLaunched, Service: role, PID: pid})

	watch := newOutputWatch()
	go l.observe(h, watch)

	policy := svc.Readiness
	if policy == nil {
		policy = AssumeAfter(0)
	}
	if err := policy.await(ctx, l, svc, h, watch); err != nil {
		var le *LaunchError
		if errors.As(err, &le) {
			metrics.IncLaunchFailure(role, string(le.Reason))
		}
		return nil, err
	}

	metrics.IncLaunch(role)
	l.hist.Record(ctx, history.Event{Type: history.EventReady, Service: role, PID: pid})
	l.log.Info("service ready", "role", role, "pid", pid)
	return h, nil
}

// observe forwards output lines to the host log and watches for exit. It
// runs for the whole life of the handle; registry removal on exit happens
// here regardless of whether the launch call is still pending.
func (l *Launcher) observe(h *proc.Handle, watch *outputWatch) {
	role := string(h.Role())
	for ev := range h.Events() {
		switch ev.Kind {
		case proc.EventOutputLine:
			if ev.Stream == proc.StreamStderr {
				l.log.Warn("service output", "role", role, "stream", string(ev.Stream), "line", ev.Line)
			} else {
				l.log.Info("service output", "role", role, "stream", string(ev.Stream), "line", ev.Line)
			}
			watch.observe(ev.Line)
		case proc.EventExited:
			pid := h.PID()
			l.reg.Remove(pid)
			metrics.IncExit(role)
			l.hist.Record(context.Background(), history.Event{
				Type: history.EventExited, Service: role, PID: pid,
				Detail: fmt.Sprintf("code=%d signal=%s", ev.Code, ev.Signal),
			})
			if ev.Code == 0 {
				l.log.Info("service exited", "role", role, "pid", pid)
			} else {
				l.log.Warn("service exited abnormally", "role", role, "pid", pid, "code", ev.Code, "signal", ev.Signal)
			}
		}
	}
}

// resolveArtifact distinguishes a missing artifact from a spawn-time OS
// error: paths are stat'ed, bare names resolved via PATH.
func resolveArtifact(command string) (string, error) {
	if command == "" {
		return "", errors.New("empty command")
	}
	if strings.ContainsRune(command, os.PathSeparator) || strings.ContainsRune(command, '/') {
		if _, err := os.Stat(command); err != nil {
			return "", err
		}
		return command, nil
	}
	return exec.LookPath(command)
}

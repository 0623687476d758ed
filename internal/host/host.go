// Package host drives the application lifecycle: bring both services up,
// verify them, serve the control API, and route every termination trigger
// through the shutdown coordinator.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/frameloft/deskhost/internal/config"
	"github.com/frameloft/deskhost/internal/history"
	"github.com/frameloft/deskhost/internal/history/factory"
	"github.com/frameloft/deskhost/internal/launcher"
	"github.com/frameloft/deskhost/internal/portguard"
	"github.com/frameloft/deskhost/internal/probe"
	"github.com/frameloft/deskhost/internal/proc"
	"github.com/frameloft/deskhost/internal/registry"
	"github.com/frameloft/deskhost/internal/server"
	"github.com/frameloft/deskhost/internal/shutdown"
)

// Host owns all lifecycle state. It is the one object the CLI, the control
// API and the signal handlers all talk to.
type Host struct {
	cfg  config.Config
	log  *slog.Logger
	logC io.Closer
	hist *history.Recorder

	reg      *registry.Registry
	ports    *portguard.Reclaimer
	launcher *launcher.Launcher
	coord    *shutdown.Coordinator

	mu          sync.Mutex
	frontend    *proc.Handle
	backend     *proc.Handle
	ready       bool
	degraded    bool
	quit        chan struct{}
	quitTrigger string
}

// New wires a host from config. Nothing is spawned yet.
func New(cfg config.Config) (*Host, error) {
	log, logCloser, err := cfg.Log.New()
	if err != nil {
		return nil, err
	}

	var sinks []history.Sink
	if cfg.HistoryDSN != "" {
		sink, err := factory.NewSinkFromDSN(cfg.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("history sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	hist := history.NewRecorder(log, sinks...)

	reg := registry.New()
	ports := portguard.New(log,
		portguard.WithSettleDelay(cfg.Timing.SettleDelay),
		portguard.WithEscalationDelay(cfg.Timing.EscalationDelay),
	)

	h := &Host{
		cfg:      cfg,
		log:      log,
		logC:     logCloser,
		hist:     hist,
		reg:      reg,
		ports:    ports,
		launcher: launcher.New(reg, ports, cfg.Log, hist, log),
	}
	h.coord = shutdown.New(shutdown.Config{
		Registry:     reg,
		Ports:        ports,
		ServicePorts: []int{cfg.Backend.Port, cfg.Frontend.Port},
		Direct:       h.directHandles,
		ServiceGrace: cfg.Timing.ServiceGrace,
		DrainGrace:   cfg.Timing.DrainGrace,
		History:      hist,
		Log:          log,
	})
	return h, nil
}

func (h *Host) directHandles() []*proc.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return []*proc.Handle{h.frontend, h.backend}
}

// Start runs the startup sequence: pre-clean both ports, backend first, then
// frontend, then the verification probes. Failures degrade the host rather
// than abort it: the shell still gets a window, with the error surfaced.
// The returned error is the first hard failure, nil on a clean start.
func (h *Host) Start(ctx context.Context) error {
	h.log.Info("starting services",
		"backend_port", h.cfg.Backend.Port, "frontend_port", h.cfg.Frontend.Port)

	var firstErr error

	backend, err := h.launcher.Launch(ctx, h.serviceSpec(proc.RoleBackend, h.cfg.Backend))
	if err != nil {
		h.log.Error("backend failed to start", "error", err)
		h.setDegraded()
		firstErr = err
	} else {
		h.mu.Lock()
		h.backend = backend
		h.mu.Unlock()
	}

	frontend, err := h.launcher.Launch(ctx, h.serviceSpec(proc.RoleFrontend, h.cfg.Frontend))
	if err != nil {
		h.log.Error("frontend failed to start", "error", err)
		h.setDegraded()
		if firstErr == nil {
			firstErr = err
		}
	} else {
		h.mu.Lock()
		h.frontend = frontend
		h.mu.Unlock()
	}

	// Verification probes: the frontend must answer before the shell loads
	// it; a deaf backend is tolerated so the user can still see the UI.
	if frontend != nil {
		if err := h.verify(ctx, h.cfg.Frontend); err != nil {
			h.log.Error("frontend did not answer its port", "error", err)
			h.setDegraded()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if backend != nil {
		if err := h.verify(ctx, h.cfg.Backend); err != nil {
			h.log.Warn("backend did not answer its port, continuing", "error", err)
		}
	}

	h.mu.Lock()
	h.ready = true
	h.mu.Unlock()
	h.log.Info("startup sequence complete", "degraded", h.isDegraded())
	return firstErr
}

func (h *Host) serviceSpec(role proc.Role, svc config.Service) launcher.Service {
	return launcher.Service{
		Role:      role,
		Command:   svc.Command,
		Args:      svc.Args,
		Dir:       svc.WorkDir,
		Host:      svc.Host,
		Port:      svc.Port,
		Env:       svc.Env,
		Readiness: h.readinessFor(svc),
	}
}

func (h *Host) readinessFor(svc config.Service) launcher.Readiness {
	switch svc.Readiness {
	case config.ReadinessPattern:
		return launcher.MatchLine(svc.ReadyPattern, svc.ReadySettle)
	case config.ReadinessDelay:
		return launcher.AssumeAfter(svc.ReadyDelay)
	default:
		return launcher.ProbeChain(
			probeAttempts(svc), svc.ProbeInterval, 0,
			probe.NewTCP(svc.Host, svc.Port),
			probe.NewHTTP(probeURL(svc)),
		)
	}
}

// verify races a socket probe against an HTTP probe as a fallback chain.
func (h *Host) verify(ctx context.Context, svc config.Service) error {
	attempts := probeAttempts(svc)
	interval := svc.ProbeInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	err := probe.WaitReady(ctx, probe.NewTCP(svc.Host, svc.Port), attempts, interval, 0)
	if err == nil {
		return nil
	}
	return probe.WaitReady(ctx, probe.NewHTTP(probeURL(svc)), attempts, interval, 0)
}

func probeAttempts(svc config.Service) int {
	if svc.ProbeAttempts > 0 {
		return svc.ProbeAttempts
	}
	return 10
}

func probeURL(svc config.Service) string {
	hostname := svc.Host
	if hostname == "" {
		hostname = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(hostname, fmt.Sprint(svc.Port)), svc.ProbePath)
}

// Run executes the whole host lifecycle: start services, serve the control
// API, wait for a termination trigger, shut down. It returns the startup
// error, if any, after teardown has completed.
func (h *Host) Run(ctx context.Context) error {
	startErr := h.Start(ctx)

	var srv *http.Server
	if h.cfg.Server.Enabled {
		var err error
		srv, err = server.New(h.cfg.Server.Listen, h.cfg.Server.Engine, h, prometheus.NewRegistry())
		if err != nil {
			h.log.Error("control server setup failed", "error", err)
		} else {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					h.log.Warn("control server stopped", "error", err)
				}
			}()
			h.log.Info("control server listening", "addr", h.cfg.Server.Listen, "engine", h.cfg.Server.Engine)
		}
	}

	trigger := h.waitForTrigger(ctx)
	h.Shutdown(context.Background(), trigger)

	if srv != nil {
		_ = srv.Close()
	}
	h.Close()
	return startErr
}

// Shutdown routes any trigger into the coordinator. Idempotent and safe
// from any goroutine.
func (h *Host) Shutdown(ctx context.Context, trigger string) {
	h.coord.Shutdown(ctx, trigger)
}

// RequestShutdown implements server.Host; the control API must not block
// behind the teardown sequence. Run is unblocked and drives the coordinator;
// when the host is embedded without Run, the async Shutdown covers it.
func (h *Host) RequestShutdown(trigger string) {
	h.requestQuit(trigger)
	go h.Shutdown(context.Background(), trigger)
}

// Fault runs the shutdown sequence in response to an unrecovered fault and
// reports whether cleanup completed. Callers exit non-zero afterwards.
func (h *Host) Fault(v any) {
	h.log.Error("unhandled fault, cleaning up before exit", "panic", v)
	h.Shutdown(context.Background(), "fault")
	h.Close()
}

// ShuttingDown reports whether any shutdown trigger has been accepted.
func (h *Host) ShuttingDown() bool { return h.coord.ShuttingDown() }

// Close releases the log and audit resources. Safe after Shutdown.
func (h *Host) Close() {
	h.hist.Close()
	if h.logC != nil {
		_ = h.logC.Close()
	}
}

func (h *Host) setDegraded() {
	h.mu.Lock()
	h.degraded = true
	h.mu.Unlock()
}

func (h *Host) isDegraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.degraded
}

// StatusView implements server.Host.
func (h *Host) StatusView() server.StatusView {
	h.mu.Lock()
	frontend, backend := h.frontend, h.backend
	ready, degraded := h.ready, h.degraded
	h.mu.Unlock()

	view := server.StatusView{
		Ready:        ready,
		Degraded:     degraded,
		ShuttingDown: h.coord.ShuttingDown(),
	}
	view.Services = append(view.Services,
		serviceStatus(proc.RoleBackend, backend, h.cfg.Backend.Port, ready),
		serviceStatus(proc.RoleFrontend, frontend, h.cfg.Frontend.Port, ready),
	)
	return view
}

func serviceStatus(role proc.Role, h *proc.Handle, port int, hostReady bool) server.ServiceStatus {
	st := server.ServiceStatus{Role: string(role), Port: port}
	if h == nil {
		return st
	}
	st.PID = h.PID()
	st.Running = !h.Exited()
	st.Ready = hostReady && st.Running
	st.StartedAt = h.StartedAt()
	return st
}

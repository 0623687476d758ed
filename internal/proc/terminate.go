package proc

import (
	"log/slog"
	"time"
)

// Terminate drives one handle through graceful-then-forced termination,
// bounded by grace. The cooperative signal goes out immediately; at grace/2
// a forced kill is issued to survivors; at grace the call returns no matter
// what, so a hung child can never block shutdown. It never fails.
func Terminate(h *Handle, grace time.Duration, log *slog.Logger) {
	if h == nil || h.Exited() {
		return
	}
	if grace <= 0 {
		grace = 5 * time.Second
	}
	pid := h.PID()
	log.Debug("terminating service process", "role", string(h.role), "pid", pid, "grace", grace)
	h.SignalTerm()

	half := time.NewTimer(grace / 2)
	defer half.Stop()
	select {
	case <-h.Done():
		log.Debug("service process exited gracefully", "role", string(h.role), "pid", pid)
		return
	case <-half.C:
		log.Warn("grace window half elapsed, forcing kill", "role", string(h.role), "pid", pid)
		h.Kill()
	}

	rest := time.NewTimer(grace / 2)
	defer rest.Stop()
	select {
	case <-h.Done():
	case <-rest.C:
		// Bounded worst case: resolve anyway and let the port sweep
		// deal with any survivor.
		log.Warn("termination deadline reached before exit was observed", "role", string(h.role), "pid", pid)
	}
}

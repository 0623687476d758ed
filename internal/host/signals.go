package host

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// waitForTrigger blocks until any termination trigger fires: an OS signal,
// context cancellation, or a quit request from the control API.
func (h *Host) waitForTrigger(ctx context.Context) string {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		h.log.Info("termination signal received", "signal", sig.String())
		return "signal:" + sig.String()
	case <-ctx.Done():
		return "context"
	case <-h.quitC():
		h.mu.Lock()
		trigger := h.quitTrigger
		h.mu.Unlock()
		return trigger
	}
}

func (h *Host) quitC() chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.quit == nil {
		h.quit = make(chan struct{})
	}
	return h.quit
}

// requestQuit unblocks Run with the given trigger. Later callers lose the
// race and their trigger is ignored; the coordinator collapses the runs
// anyway.
func (h *Host) requestQuit(trigger string) {
	ch := h.quitC()
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-ch:
	default:
		h.quitTrigger = trigger
		close(ch)
	}
}

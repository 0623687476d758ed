// Package portguard frees TCP ports before a service launch and sweeps them
// again during shutdown. Port ownership is discovered on demand and never
// cached; bindings change between calls.
package portguard

import (
	"context"
	"log/slog"
	"time"
)

// Default timing for the kill sweep. Termination is asynchronous at the OS
// level, so the caller must not race it; the settle delay absorbs that.
const (
	DefaultSettleDelay     = 2 * time.Second
	DefaultEscalationDelay = 3 * time.Second
)

// OwnerLookup discovers and terminates the processes bound to a TCP port.
// Two platform implementations exist; selection happens at construction.
type OwnerLookup interface {
	// Owners returns the distinct PIDs currently bound to port.
	Owners(ctx context.Context, port int) ([]int, error)
	// Shutdown requests termination of one owner. On platforms without a
	// cooperative mechanism this is already forced, and Forced reports true.
	Shutdown(pid int) error
	// Kill forcefully terminates one owner.
	Kill(pid int) error
	// Forced reports whether Shutdown already kills outright, making the
	// escalation pass redundant.
	Forced() bool
}

// Reclaimer terminates whatever holds a port. Reclaim never fails: an absent
// listing tool, a permission error or an unkillable owner is logged and
// treated as "nothing to do", because startup and shutdown must not block on
// port hygiene.
type Reclaimer struct {
	lookup     OwnerLookup
	settle     time.Duration
	escalation time.Duration
	log        *slog.Logger
}

// Option adjusts a Reclaimer.
type Option func(*Reclaimer)

// WithLookup overrides the platform lookup (tests).
func WithLookup(l OwnerLookup) Option { return func(r *Reclaimer) { r.lookup = l } }

// WithSettleDelay overrides the post-kill settle delay.
func WithSettleDelay(d time.Duration) Option { return func(r *Reclaimer) { r.settle = d } }

// WithEscalationDelay overrides the graceful-to-forced escalation delay.
func WithEscalationDelay(d time.Duration) Option { return func(r *Reclaimer) { r.escalation = d } }

func New(log *slog.Logger, opts ...Option) *Reclaimer {
	r := &Reclaimer{
		lookup:     newPlatformLookup(),
		settle:     DefaultSettleDelay,
		escalation: DefaultEscalationDelay,
		log:        log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reclaim terminates every process bound to port and waits for the OS to
// release it. Idempotent; safe to call repeatedly and as a final shutdown
// verification sweep.
func (r *Reclaimer) Reclaim(ctx context.Context, port int) {
	pids, err := r.lookup.Owners(ctx, port)
	if err != nil {
		// Tool absent or permission denied reads the same as an idle port.
		r.log.Debug("port owner lookup failed", "port", port, "error", err)
		return
	}
	if len(pids) == 0 {
		r.log.Debug("port already free", "port", port)
		return
	}

	r.log.Info("reclaiming port", "port", port, "pids", pids)
	for _, pid := range pids {
		if err := r.lookup.Shutdown(pid); err != nil {
			r.log.Debug("shutdown request failed", "port", port, "pid", pid, "error", err)
		}
	}

	if !r.lookup.Forced() {
		// Give owners the escalation window, then kill survivors.
		if !sleepCtx(ctx, r.escalation) {
			return
		}
		survivors, err := r.lookup.Owners(ctx, port)
		if err != nil {
			r.log.Debug("survivor lookup failed", "port", port, "error", err)
			survivors = nil
		}
		for _, pid := range survivors {
			r.log.Warn("port owner survived graceful termination, killing", "port", port, "pid", pid)
			if err := r.lookup.Kill(pid); err != nil {
				r.log.Debug("kill failed", "port", port, "pid", pid, "error", err)
			}
		}
	}

	sleepCtx(ctx, r.settle)
}

// ReclaimAll sweeps several ports concurrently and returns when all are done.
func (r *Reclaimer) ReclaimAll(ctx context.Context, ports []int) {
	done := make(chan struct{}, len(ports))
	for _, p := range ports {
		go func(port int) {
			r.Reclaim(ctx, port)
			done <- struct{}{}
		}(p)
	}
	for range ports {
		<-done
	}
}

// Free reports whether no owner is currently observable on port.
func (r *Reclaimer) Free(ctx context.Context, port int) bool {
	pids, err := r.lookup.Owners(ctx, port)
	return err != nil || len(pids) == 0
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Package shutdown owns the one teardown sequence of the host. Every
// termination trigger routes here: window close, host quit, OS signals and
// fault handlers. The destructive steps run exactly once no matter how many
// triggers fire, and the whole sequence is bounded in time.
package shutdown

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/frameloft/deskhost/internal/history"
	"github.com/frameloft/deskhost/internal/metrics"
	"github.com/frameloft/deskhost/internal/portguard"
	"github.com/frameloft/deskhost/internal/proc"
	"github.com/frameloft/deskhost/internal/registry"
)

// Default grace windows. Direct service handles get the longer window;
// registry stragglers are likely already half-dead and get the shorter one.
const (
	DefaultServiceGrace = 8 * time.Second
	DefaultDrainGrace   = 5 * time.Second
)

// Config wires the coordinator's collaborators.
type Config struct {
	Registry     *registry.Registry
	Ports        *portguard.Reclaimer
	ServicePorts []int
	// Direct returns the service handles the host holds directly
	// (frontend, backend). Registry records cover everything else.
	Direct       func() []*proc.Handle
	ServiceGrace time.Duration
	DrainGrace   time.Duration
	History      *history.Recorder
	Log          *slog.Logger
}

// Coordinator serializes shutdown. ShuttingDown latches permanently on the
// first accepted trigger; a run in flight absorbs concurrent callers, who
// block until it completes.
type Coordinator struct {
	cfg Config

	mu           sync.Mutex
	shuttingDown bool
	inFlight     chan struct{} // non-nil while a cleanup run is executing
}

func New(cfg Config) *Coordinator {
	if cfg.ServiceGrace <= 0 {
		cfg.ServiceGrace = DefaultServiceGrace
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = DefaultDrainGrace
	}
	return &Coordinator{cfg: cfg}
}

// ShuttingDown reports whether any shutdown trigger has been accepted.
// Once true it stays true for the life of the process.
func (c *Coordinator) ShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown
}

// CleanupInProgress reports whether a cleanup run is currently executing.
func (c *Coordinator) CleanupInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight != nil
}

// Shutdown runs the full teardown sequence. Safe to call from any trigger
// and from several goroutines at once: concurrent calls collapse into the
// single in-flight run and all return once it completes. The sequence never
// fails; per-step errors are logged and the next step runs regardless.
func (c *Coordinator) Shutdown(ctx context.Context, trigger string) {
	c.mu.Lock()
	c.shuttingDown = true
	if ch := c.inFlight; ch != nil {
		c.mu.Unlock()
		<-ch
		return
	}
	done := make(chan struct{})
	c.inFlight = done
	c.mu.Unlock()

	start := time.Now()
	metrics.IncShutdown(trigger)
	c.cfg.Log.Info("shutdown sequence starting", "trigger", trigger)

	c.terminateDirect()
	c.reclaimPorts(ctx, false)
	c.drainRegistry()
	// Second sweep: a graceful-window survivor may have died only during
	// the drain's escalation and still be holding its socket.
	c.reclaimPorts(ctx, true)

	elapsed := time.Since(start)
	metrics.ObserveShutdownDuration(elapsed.Seconds())
	c.cfg.History.Record(ctx, history.Event{Type: history.EventShutdown, Service: "host", Detail: trigger})
	c.cfg.Log.Info("shutdown sequence complete", "trigger", trigger, "elapsed", elapsed)

	c.mu.Lock()
	c.inFlight = nil
	c.mu.Unlock()
	close(done)
}

// terminateDirect gracefully ends the directly-held service handles in
// parallel, each bounded by the service grace window.
func (c *Coordinator) terminateDirect() {
	if c.cfg.Direct == nil {
		return
	}
	handles := c.cfg.Direct()
	var wg sync.WaitGroup
	for _, h := range handles {
		if h == nil {
			continue
		}
		wg.Add(1)
		go func(h *proc.Handle) {
			defer wg.Done()
			proc.Terminate(h, c.cfg.ServiceGrace, c.cfg.Log)
		}(h)
	}
	wg.Wait()
}

// reclaimPorts sweeps every service port. The verification pass is audited
// with a distinct detail and not re-counted in metrics, so one shutdown
// reads as one reclaim per port.
func (c *Coordinator) reclaimPorts(ctx context.Context, verify bool) {
	if c.cfg.Ports == nil || len(c.cfg.ServicePorts) == 0 {
		return
	}
	c.cfg.Ports.ReclaimAll(ctx, c.cfg.ServicePorts)
	for _, p := range c.cfg.ServicePorts {
		detail := strconv.Itoa(p)
		if verify {
			detail += " verify"
		} else {
			metrics.IncPortReclaim(detail)
		}
		c.cfg.History.Record(ctx, history.Event{Type: history.EventReclaimed, Service: "host", Detail: detail})
	}
}

// drainRegistry runs every remaining record's cleanup callback, terminates
// its handle bounded by the drain grace, and clears the registry.
func (c *Coordinator) drainRegistry() {
	if c.cfg.Registry == nil {
		return
	}
	records := c.cfg.Registry.Clear()
	if len(records) == 0 {
		return
	}
	c.cfg.Log.Info("draining tracked processes", "count", len(records))
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec registry.Record) {
			defer wg.Done()
			c.drainOne(rec)
		}(rec)
	}
	wg.Wait()
}

func (c *Coordinator) drainOne(rec registry.Record) {
	if rec.Cleanup != nil {
		// A panicking callback must not rob the handle of its termination.
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.cfg.Log.Error("cleanup callback panicked", "pid", rec.PID, "panic", r)
				}
			}()
			rec.Cleanup()
		}()
	}
	proc.Terminate(rec.Handle, c.cfg.DrainGrace, c.cfg.Log)
}

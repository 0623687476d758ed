package launcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/frameloft/deskhost/internal/metrics"
	"github.com/frameloft/deskhost/internal/probe"
	"github.com/frameloft/deskhost/internal/proc"
)

// Readiness decides when a spawned service counts as ready. Exactly one
// policy is active per launch.
type Readiness interface {
	await(ctx context.Context, l *Launcher, svc Service, h *proc.Handle, watch *outputWatch) error
}

// watchBacklogMax bounds how many pre-arm lines are kept for replay.
const watchBacklogMax = 256

// outputWatch lets the pattern policy observe captured lines without the
// event loop knowing about policies. The event loop starts before a policy
// arms its pattern, so lines arriving early are buffered and replayed on arm;
// a service that prints its ready banner immediately must still match.
type outputWatch struct {
	mu      sync.Mutex
	pattern string
	matched chan struct{}
	closed  bool
	backlog []string
}

func newOutputWatch() *outputWatch {
	return &outputWatch{matched: make(chan struct{})}
}

func (w *outputWatch) arm(pattern string) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pattern = pattern
	for _, line := range w.backlog {
		if w.closed {
			break
		}
		w.match(line)
	}
	w.backlog = nil
	return w.matched
}

func (w *outputWatch) observe(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pattern == "" {
		if len(w.backlog) < watchBacklogMax {
			w.backlog = append(w.backlog, line)
		}
		return
	}
	w.match(line)
}

// match requires w.mu held and w.pattern armed.
func (w *outputWatch) match(line string) {
	// Case-sensitive substring match, the phrases are service-specific.
	if strings.Contains(line, w.pattern) {
		w.closed = true
		close(w.matched)
	}
}

// MatchLine resolves once a captured output line contains substr, then waits
// settle before reporting ready.
func MatchLine(substr string, settle time.Duration) Readiness {
	return &patternPolicy{substr: substr, settle: settle}
}

type patternPolicy struct {
	substr string
	settle time.Duration
}

func (p *patternPolicy) await(ctx context.Context, l *Launcher, svc Service, h *proc.Handle, watch *outputWatch) error {
	matched := watch.arm(p.substr)
	select {
	case <-matched:
	case <-h.Done():
		return exitedEarly(svc.Role, h)
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.settle > 0 {
		t := time.NewTimer(p.settle)
		defer t.Stop()
		select {
		case <-t.C:
		case <-h.Done():
			return exitedEarly(svc.Role, h)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// AssumeAfter reports ready once d has elapsed without the process exiting.
// Readiness is merely assumed; nothing is verified.
func AssumeAfter(d time.Duration) Readiness {
	return &delayPolicy{after: d}
}

type delayPolicy struct {
	after time.Duration
}

func (p *delayPolicy) await(ctx context.Context, l *Launcher, svc Service, h *proc.Handle, watch *outputWatch) error {
	if p.after <= 0 {
		if h.Exited() {
			return exitedEarly(svc.Role, h)
		}
		return nil
	}
	t := time.NewTimer(p.after)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-h.Done():
		return exitedEarly(svc.Role, h)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProbeChain resolves by polling probers in order; each gets the full
// attempt budget before the next is tried. The chain races against process
// exit.
func ProbeChain(maxAttempts int, interval, perAttempt time.Duration, probers ...probe.Prober) Readiness {
	return &probePolicy{probers: probers, attempts: maxAttempts, interval: interval, perAttempt: perAttempt}
}

type probePolicy struct {
	probers    []probe.Prober
	attempts   int
	interval   time.Duration
	perAttempt time.Duration
}

func (p *probePolicy) await(ctx context.Context, l *Launcher, svc Service, h *proc.Handle, watch *outputWatch) error {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// A dead process cannot become ready; stop probing on exit.
		select {
		case <-h.Done():
			cancel()
		case <-pctx.Done():
		}
	}()

	var last error
	for _, pr := range p.probers {
		err := probe.WaitReady(pctx, pr, p.attempts, p.interval, p.perAttempt)
		if err == nil {
			return nil
		}
		last = err
	}
	if h.Exited() {
		return exitedEarly(svc.Role, h)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	metrics.IncProbeExhausted(string(svc.Role))
	return &LaunchError{Role: svc.Role, Reason: ReasonProbeExhausted, Err: last}
}

func exitedEarly(role proc.Role, h *proc.Handle) error {
	state := h.Exit()
	return &LaunchError{
		Role:   role,
		Reason: ReasonExitedEarly,
		Code:   state.Code,
		Signal: state.Signal,
		Err:    state.Err,
	}
}

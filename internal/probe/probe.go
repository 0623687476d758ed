// Package probe polls a service endpoint until it answers or a retry budget
// runs out. A raw TCP connect is the primary check; an HTTP request variant
// exists for services that accept connections before they can serve.
package probe

import (
	"context"
	"fmt"
	"time"
)

// DefaultAttemptTimeout bounds one probe attempt independently of the retry
// interval so a stalled connect cannot stall the whole budget.
const DefaultAttemptTimeout = 700 * time.Millisecond

// ExhaustedError reports that every attempt of a probe budget failed.
type ExhaustedError struct {
	Target   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("probe %s: %d attempts exhausted: %v", e.Target, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Prober performs a single readiness attempt.
type Prober interface {
	Probe(ctx context.Context) error
	Target() string
}

// WaitReady runs p until it succeeds, sleeping interval between attempts.
// Each attempt gets its own perAttempt timeout (DefaultAttemptTimeout when
// zero). After maxAttempts failures it returns an ExhaustedError wrapping
// the last attempt's error.
func WaitReady(ctx context.Context, p Prober, maxAttempts int, interval, perAttempt time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if perAttempt <= 0 {
		perAttempt = DefaultAttemptTimeout
	}
	var last error
	for i := 0; i < maxAttempts; i++ {
		actx, cancel := context.WithTimeout(ctx, perAttempt)
		err := p.Probe(actx)
		cancel()
		if err == nil {
			return nil
		}
		last = err
		if ctx.Err() != nil {
			break
		}
		if !sleepCtx(ctx, interval) {
			break
		}
	}
	return &ExhaustedError{Target: p.Target(), Attempts: maxAttempts, Last: last}
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

package portguard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeLookup scripts port ownership per call so escalation behavior can be
// observed without touching real processes.
type fakeLookup struct {
	mu        sync.Mutex
	ownersSeq [][]int // successive Owners results; last repeats
	ownersErr error
	forced    bool
	calls     int
	shutdowns []int
	kills     []int
}

func (f *fakeLookup) Owners(ctx context.Context, port int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.ownersErr != nil {
		return nil, f.ownersErr
	}
	if len(f.ownersSeq) == 0 {
		return nil, nil
	}
	out := f.ownersSeq[0]
	if len(f.ownersSeq) > 1 {
		f.ownersSeq = f.ownersSeq[1:]
	}
	return out, nil
}

func (f *fakeLookup) Shutdown(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns = append(f.shutdowns, pid)
	return nil
}

func (f *fakeLookup) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kills = append(f.kills, pid)
	return nil
}

func (f *fakeLookup) Forced() bool { return f.forced }

func newTestReclaimer(l OwnerLookup) *Reclaimer {
	return New(slog.New(slog.DiscardHandler),
		WithLookup(l),
		WithSettleDelay(time.Millisecond),
		WithEscalationDelay(5*time.Millisecond),
	)
}

func TestReclaimIdlePortDoesNotKill(t *testing.T) {
	fake := &fakeLookup{}
	r := newTestReclaimer(fake)

	r.Reclaim(context.Background(), 7626)

	require.Empty(t, fake.shutdowns)
	require.Empty(t, fake.kills)
}

func TestReclaimLookupErrorReadsAsIdle(t *testing.T) {
	fake := &fakeLookup{ownersErr: errors.New("lsof: command not found")}
	r := newTestReclaimer(fake)

	// Must not panic or kill anything; failure is logged, not raised.
	r.Reclaim(context.Background(), 7626)
	require.Empty(t, fake.shutdowns)
	require.Empty(t, fake.kills)
}

func TestReclaimTerminatesOwnersThenVerifies(t *testing.T) {
	fake := &fakeLookup{ownersSeq: [][]int{{11, 22}, {}}}
	r := newTestReclaimer(fake)

	r.Reclaim(context.Background(), 7626)

	require.ElementsMatch(t, []int{11, 22}, fake.shutdowns)
	require.Empty(t, fake.kills, "no survivors, no forced kills")
}

func TestReclaimKillsSurvivorsAfterEscalation(t *testing.T) {
	fake := &fakeLookup{ownersSeq: [][]int{{11, 22}, {22}}}
	r := newTestReclaimer(fake)

	r.Reclaim(context.Background(), 7626)

	require.ElementsMatch(t, []int{11, 22}, fake.shutdowns)
	require.Equal(t, []int{22}, fake.kills)
}

func TestReclaimForcedFamilySkipsEscalation(t *testing.T) {
	fake := &fakeLookup{ownersSeq: [][]int{{11}}, forced: true}
	r := newTestReclaimer(fake)

	r.Reclaim(context.Background(), 7626)

	require.Equal(t, []int{11}, fake.shutdowns)
	require.Empty(t, fake.kills)
	require.Equal(t, 1, fake.calls, "forced family must not re-list for survivors")
}

func TestReclaimIdempotent(t *testing.T) {
	fake := &fakeLookup{ownersSeq: [][]int{{11}, {}, {}, {}}}
	r := newTestReclaimer(fake)

	r.Reclaim(context.Background(), 7626)
	r.Reclaim(context.Background(), 7626)
	r.Reclaim(context.Background(), 7626)

	require.Equal(t, []int{11}, fake.shutdowns)
}

func TestReclaimAllSweepsEveryPort(t *testing.T) {
	fake := &fakeLookup{}
	r := newTestReclaimer(fake)

	r.ReclaimAll(context.Background(), []int{7626, 5173})
	require.Equal(t, 2, fake.calls)
}

func TestFree(t *testing.T) {
	fake := &fakeLookup{ownersSeq: [][]int{{11}, {}}}
	r := newTestReclaimer(fake)

	require.False(t, r.Free(context.Background(), 7626))
	require.True(t, r.Free(context.Background(), 7626))
}

// Package registry tracks every live child process the host has spawned so
// that shutdown can reach processes whose launch never completed.
package registry

import (
	"sync"

	"github.com/frameloft/deskhost/internal/proc"
)

// Record associates a spawned process with its role and an optional cleanup
// callback invoked before the handle is terminated during a registry drain.
type Record struct {
	PID     int
	Role    proc.Role
	Handle  *proc.Handle
	Cleanup func()
}

// Registry is the single shared mutable structure of the host. It is mutated
// by the launcher (insert on spawn), the exit observers (remove on exit) and
// the shutdown coordinator (drain). Iteration is always over a snapshot so
// concurrent removal during shutdown is safe.
type Registry struct {
	mu      sync.Mutex
	records map[int]Record
}

func New() *Registry {
	return &Registry{records: make(map[int]Record)}
}

// Insert adds or replaces the record for rec.PID.
func (r *Registry) Insert(rec Record) {
	r.mu.Lock()
	r.records[rec.PID] = rec
	r.mu.Unlock()
}

// Remove deletes the record for pid, reporting whether it was present.
func (r *Registry) Remove(pid int) bool {
	r.mu.Lock()
	_, ok := r.records[pid]
	delete(r.records, pid)
	r.mu.Unlock()
	return ok
}

// Snapshot returns a copy of all live records.
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()
	return out
}

// Len reports the number of live records.
func (r *Registry) Len() int {
	r.mu.Lock()
	n := len(r.records)
	r.mu.Unlock()
	return n
}

// ByRole returns the live record for a role, if any. At most one record per
// role is live at a time; the launcher guarantees this by reclaiming the
// role's port before each spawn.
func (r *Registry) ByRole(role proc.Role) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Role == role {
			return rec, true
		}
	}
	return Record{}, false
}

// Clear removes every record and returns what was removed.
func (r *Registry) Clear() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.records = make(map[int]Record)
	r.mu.Unlock()
	return out
}

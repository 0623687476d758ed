//go:build !windows

package portguard

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// unixLookup finds port owners with lsof and terminates them with signals:
// SIGTERM first, SIGKILL for survivors after the escalation delay.
type unixLookup struct{}

func newPlatformLookup() OwnerLookup { return unixLookup{} }

func (unixLookup) Owners(ctx context.Context, port int) ([]int, error) {
	// -t prints bare PIDs, one per line; exit code 1 means no match.
	// #nosec G204 -- port is numeric
	out, err := exec.CommandContext(ctx, "lsof", "-ti", "tcp:"+strconv.Itoa(port)).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 && len(out) == 0 {
			return nil, nil
		}
		return nil, err
	}
	return parsePIDLines(string(out)), nil
}

func (unixLookup) Shutdown(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

func (unixLookup) Kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

func (unixLookup) Forced() bool { return false }

func parsePIDLines(s string) []int {
	seen := make(map[int]struct{})
	var pids []int
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid <= 0 {
			continue
		}
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		pids = append(pids, pid)
	}
	return pids
}

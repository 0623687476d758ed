//go:build windows

package portguard

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// windowsLookup inspects the socket table with netstat and kills owners
// tree-wide with taskkill /F. There is no cooperative step on this family;
// Shutdown already kills, so the escalation pass is skipped.
type windowsLookup struct{}

func newPlatformLookup() OwnerLookup { return windowsLookup{} }

func (windowsLookup) Owners(ctx context.Context, port int) ([]int, error) {
	out, err := exec.CommandContext(ctx, "netstat", "-ano").Output()
	if err != nil {
		return nil, err
	}
	needle := ":" + strconv.Itoa(port)
	seen := make(map[int]struct{})
	var pids []int
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		// Proto LocalAddress ForeignAddress State PID
		if len(fields) < 5 || !strings.EqualFold(fields[0], "tcp") {
			continue
		}
		if !strings.HasSuffix(fields[1], needle) {
			continue
		}
		pid, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || pid <= 0 {
			continue
		}
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		pids = append(pids, pid)
	}
	return pids, nil
}

func (windowsLookup) Shutdown(pid int) error {
	// #nosec G204 -- pid is numeric
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

func (windowsLookup) Kill(pid int) error {
	// #nosec G204 -- pid is numeric
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

func (windowsLookup) Forced() bool { return true }

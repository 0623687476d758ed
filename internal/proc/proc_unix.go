//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// setSysProcAttr places the child in its own process group so the whole
// tree can be signaled with one kill(-pgid).
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree sends SIGTERM to the child's process group.
func terminateTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// killTree sends SIGKILL to the child's process group.
func killTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

func exitSignal(ps *os.ProcessState) string {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return ws.Signal().String()
}

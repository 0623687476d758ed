//go:build windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
)

func setSysProcAttr(cmd *exec.Cmd) {
	// Windows has no process groups in the Unix sense; tree-wide
	// termination goes through taskkill /T instead.
}

// terminateTree asks taskkill to end the child's process tree cooperatively.
func terminateTree(pid int) error {
	// #nosec G204 -- pid is numeric
	return exec.Command("taskkill", "/T", "/PID", strconv.Itoa(pid)).Run()
}

// killTree forcefully ends the child's process tree.
func killTree(pid int) error {
	// #nosec G204 -- pid is numeric
	return exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}

func exitSignal(ps *os.ProcessState) string { return "" }

package proc

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Role identifies which child service a handle belongs to.
type Role string

const (
	RoleFrontend Role = "frontend"
	RoleBackend  Role = "backend"
	RoleOther    Role = "other"
)

// Stream identifies which pipe an output line was read from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// EventKind tags the variants carried on a handle's event channel.
type EventKind int

const (
	EventOutputLine EventKind = iota
	EventExited
)

// Event is the tagged variant emitted by a running handle. OutputLine events
// carry Stream and Line; Exited carries Code, Signal and Err. The channel is
// closed after the Exited event.
type Event struct {
	Kind   EventKind
	Stream Stream
	Line   string
	Code   int
	Signal string
	Err    error
}

// ExitState is the terminal status of a handle.
type ExitState struct {
	Code   int
	Signal string
	Err    error
}

// Handle owns one spawned child process: its command, output pipes and exit
// state. All lifecycle transitions are observable via Events and Done.
type Handle struct {
	role Role

	mu        sync.Mutex
	cmd       *exec.Cmd
	startedAt time.Time
	exited    bool
	exit      ExitState

	done    chan struct{} // closed when the waiter reaps the process
	events  chan Event
	capture io.WriteCloser // optional raw output tee, closed on exit
}

// SpawnOptions configures Spawn.
type SpawnOptions struct {
	Role    Role
	Path    string   // executable to run
	Args    []string
	Dir     string   // working directory, empty for inherited
	Env     []string // full child environment; nil inherits
	Capture io.WriteCloser
}

// Spawn starts the child in its own process group and begins streaming its
// output. The returned handle's event channel receives one Event per output
// line and a final Exited event, then closes. A start failure returns the
// OS error and no handle.
func Spawn(opts SpawnOptions) (*Handle, error) {
	// #nosec G204 -- command and args come from host configuration
	cmd := exec.Command(opts.Path, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	setSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	h := &Handle{
		role:    opts.Role,
		done:    make(chan struct{}),
		events:  make(chan Event, 64),
		capture: opts.Capture,
	}
	if err := cmd.Start(); err != nil {
		// The capture file is otherwise closed by the reaper, which never
		// runs for a child that failed to start.
		if opts.Capture != nil {
			_ = opts.Capture.Close()
		}
		return nil, err
	}
	h.mu.Lock()
	h.cmd = cmd
	h.startedAt = time.Now()
	h.mu.Unlock()

	var scanners sync.WaitGroup
	scanners.Add(2)
	go h.scanLines(stdout, StreamStdout, &scanners)
	go h.scanLines(stderr, StreamStderr, &scanners)
	go h.waitAndReap(cmd, &scanners)
	return h, nil
}

func (h *Handle) scanLines(r io.Reader, stream Stream, wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if h.capture != nil {
			_, _ = h.capture.Write(append([]byte(line), '\n'))
		}
		h.events <- Event{Kind: EventOutputLine, Stream: stream, Line: line}
	}
}

func (h *Handle) waitAndReap(cmd *exec.Cmd, scanners *sync.WaitGroup) {
	// Wait closes the pipes; drain the scanners before Wait returns state.
	scanners.Wait()
	err := cmd.Wait()
	state := ExitState{Err: err}
	if ps := cmd.ProcessState; ps != nil {
		state.Code = ps.ExitCode()
		state.Signal = exitSignal(ps)
	}
	if err == nil {
		state.Code = 0
	}

	h.mu.Lock()
	h.exited = true
	h.exit = state
	h.mu.Unlock()

	if h.capture != nil {
		_ = h.capture.Close()
	}
	h.events <- Event{Kind: EventExited, Code: state.Code, Signal: state.Signal, Err: err}
	close(h.events)
	close(h.done)
}

// Role returns the service role the handle was spawned for.
func (h *Handle) Role() Role { return h.role }

// PID returns the child's process id, or 0 before start.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// StartedAt reports when the child was spawned.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

// Exited reports whether the child has been reaped.
func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

// Exit returns the terminal state; valid only after Done is closed.
func (h *Handle) Exit() ExitState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exit
}

// Done is closed once the child has been reaped and its exit state recorded.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Events returns the handle's output/exit event stream.
func (h *Handle) Events() <-chan Event { return h.events }

// SignalTerm requests cooperative termination of the child's process tree.
func (h *Handle) SignalTerm() {
	if pid := h.PID(); pid > 0 {
		_ = terminateTree(pid)
	}
}

// Kill forcefully terminates the child's process tree.
func (h *Handle) Kill() {
	if pid := h.PID(); pid > 0 {
		_ = killTree(pid)
	}
}

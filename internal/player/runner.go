package player

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Handle controls a running decoder process.
type Handle interface {
	Signal(sig os.Signal) error
	Kill() error
	Wait() error
}

// Runner starts decoder processes for media files.
type Runner interface {
	Start(command, filename string) (Handle, error)
}

// ExecRunner runs decoders as real OS processes. The command string is
// split on spaces and the filename appended as the last argument. The
// child gets its own session and silent std streams.
type ExecRunner struct{}

func (ExecRunner) Start(command, filename string) (Handle, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	args = append(args, filename)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	// Stdin, Stdout and Stderr stay nil: exec connects them to /dev/null

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execHandle{cmd: cmd}, nil
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) Signal(sig os.Signal) error {
	return h.cmd.Process.Signal(sig)
}

func (h *execHandle) Kill() error {
	return h.cmd.Process.Kill()
}

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}

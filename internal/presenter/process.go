package presenter

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/julianstephens/lightsout/internal/logger"
)

// Process presents warnings by launching this executable again in its warn
// mode. Launches are fire-and-forget: the child is reaped in the background
// and its exit status is only logged.
type Process struct {
	// Executable defaults to the running binary.
	Executable string
	// Home is passed to the child as --home so it sees the same state.
	Home string
	// Debug is passed through as --debug.
	Debug bool

	start func(*exec.Cmd) error
}

func NewProcess(home string, debug bool) (*Process, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return &Process{Executable: exe, Home: home, Debug: debug}, nil
}

func (p *Process) globalArgs() []string {
	var args []string
	if p.Home != "" {
		args = append(args, "--home", p.Home)
	}
	if p.Debug {
		args = append(args, "--debug")
	}
	return args
}

// WarnArgs returns the command line of a warning popup.
func (p *Process) WarnArgs(title, body string, overrideOfferable bool) []string {
	args := append(p.globalArgs(), "warn", "--title", title, "--body", body)
	if overrideOfferable {
		args = append(args, "--allow-override")
	}
	return args
}

func (p *Process) PresentWarning(title, body string, overrideOfferable bool) error {
	return p.launch(p.WarnArgs(title, body, overrideOfferable))
}

func (p *Process) launch(args []string) error {
	cmd := exec.Command(p.Executable, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	start := p.start
	if start == nil {
		start = (*exec.Cmd).Start
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("failed to launch %s: %w", args[len(p.globalArgs())], err)
	}
	if cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid
	logger.Debug("Launched prompt", "pid", pid, "args", args)
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("Prompt exited", "pid", pid, "error", err)
		}
	}()
	return nil
}

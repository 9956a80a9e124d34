package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/lightsout/internal/constants"
)

// ErrAlreadyRunning is returned by AcquireInstance when another agent holds
// the pid file.
var ErrAlreadyRunning = errors.New("another lightsout agent is already running")

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
	executableFunc  = os.Executable
)

// Instance is the pid file claimed by a running agent.
type Instance struct {
	path string
	pid  int
}

// AcquireInstance claims the agent pid file in dir. A pid file left behind
// by a dead or unrelated process is taken over.
func AcquireInstance(ctx context.Context, dir string) (*Instance, error) {
	path := filepath.Join(dir, constants.AgentPIDFileName)

	lockCtx, cancel := context.WithTimeout(ctx, constants.CommitLockWait)
	defer cancel()
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(lockCtx, constants.CommitLockRetry)
	if err != nil || !locked {
		return nil, fmt.Errorf("failed to lock pid file: %w", err)
	}
	defer lock.Unlock()

	if pid, err := findAgentProcess(path); err == nil && pid != getpidFunc() {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	exe, err := executableFunc()
	if err != nil {
		exe = constants.AppName
	}
	pid := getpidFunc()
	content := fmt.Sprintf("%d|%s\n", pid, filepath.Base(exe))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return &Instance{path: path, pid: pid}, nil
}

// Release removes the pid file if it still names this process.
func (i *Instance) Release() error {
	content, err := os.ReadFile(i.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	pid, _, err := parsePIDFile(content)
	if err != nil || pid != i.pid {
		return nil
	}
	return os.Remove(i.path)
}

// findAgentProcess returns the pid recorded at path when that process is
// alive and is a lightsout executable.
func findAgentProcess(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.New("agent is not running")
	}
	pid, _, err := parsePIDFile(content)
	if err != nil {
		return 0, err
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return 0, errors.New("agent process not running")
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return 0, fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.AppName, process.Executable())
	}
	return pid, nil
}

func parsePIDFile(content []byte) (int, string, error) {
	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return 0, "", errors.New("pid file is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return 0, "", errors.New("invalid process ID in pid file")
	}
	return pid, parts[1], nil
}

package presenter

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/julianstephens/lightsout/internal/logger"
)

// Shutdown powers the machine off with the platform's shutdown command. A
// Shutdown issues the command at most once; later calls return the first
// call's result.
type Shutdown struct {
	once sync.Once
	err  error

	// DryRun logs the command instead of running it.
	DryRun bool

	run func(name string, args ...string) error
}

func NewShutdown(dryRun bool) *Shutdown {
	return &Shutdown{DryRun: dryRun}
}

func (s *Shutdown) ForceShutdown() error {
	s.once.Do(func() {
		name, args := shutdownCommand()
		cmdline := name + " " + strings.Join(args, " ")
		if s.DryRun {
			logger.Warn("Dry run: not shutting down", "command", cmdline)
			return
		}

		logger.Warn("Forcing shutdown", "command", cmdline)
		run := s.run
		if run == nil {
			run = func(name string, args ...string) error {
				out, err := exec.Command(name, args...).CombinedOutput()
				if err != nil {
					return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
				}
				return nil
			}
		}
		if err := run(name, args...); err != nil {
			s.err = fmt.Errorf("shutdown command failed: %w", err)
		}
	})
	return s.err
}

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/lightsout/internal/config"
	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/ledger"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/metrics"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/override"
	"github.com/julianstephens/lightsout/internal/storage"
)

// Context is what every command runs against.
type Context struct {
	Home       string
	Debug      bool
	ConfigPath string
	Config     models.Config
	Store      *storage.Store
	Clock      clockwork.Clock
}

// NewContext loads the configuration in home and opens its state store.
func NewContext(home string, debug bool) *Context {
	configPath := filepath.Join(home, constants.ConfigFileName)
	return &Context{
		Home:       home,
		Debug:      debug,
		ConfigPath: configPath,
		Config:     config.MustLoad(configPath),
		Store:      storage.New(home),
		Clock:      clockwork.NewRealClock(),
	}
}

// Logger returns a child of the global logger tagged with component.
func (c *Context) Logger(component string) *log.Logger {
	return logger.With("component", component)
}

// OpenJournal opens the ledger. A ledger that cannot be opened is logged
// and replaced by one that drops events; the returned close func is always
// safe to call.
func (c *Context) OpenJournal(ctx context.Context) (ledger.Journal, func()) {
	l, err := ledger.Open(ctx, filepath.Join(c.Home, constants.LedgerFileName))
	if err != nil {
		logger.Warn("Ledger unavailable, events will not be recorded", "error", err)
		return ledger.Discard, func() {}
	}
	return l, func() {
		if err := l.Close(); err != nil {
			logger.Warn("Failed to close ledger", "error", err)
		}
	}
}

// Gate builds the override gate over the shared store.
func (c *Context) Gate(j ledger.Journal, r metrics.Recorder) *override.Gate {
	return override.NewGate(c.Config, c.Store.Night, c.Store.Weekly).
		WithJournal(j).
		WithRecorder(r)
}

// exitError carries a process exit status for errors.Fatal.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func denied(msg string) error {
	return &exitError{code: 2, msg: fmt.Sprintf("override denied: %s", msg)}
}

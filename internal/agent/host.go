package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/ledger"
	"github.com/julianstephens/lightsout/internal/metrics"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/presenter"
	"github.com/julianstephens/lightsout/internal/scheduler"
	"github.com/julianstephens/lightsout/internal/storage"
	"github.com/julianstephens/lightsout/internal/timepolicy"
)

// NightStore is the part of the night record store the agent needs.
type NightStore interface {
	Peek(ctx context.Context) (storage.Snapshot[models.NightState], bool, error)
	ResolveBase(ctx context.Context, now, computed time.Time) (time.Time, error)
	Update(ctx context.Context, baseDeadline time.Time, mutate func(*models.NightState) error) (models.NightState, error)
}

// WeeklyReader reads the current week's override count.
type WeeklyReader interface {
	LoadOrCreateCurrentWeek(ctx context.Context, now time.Time) (storage.Snapshot[models.WeeklyState], error)
}

// Timers is one plan's set of armed timers.
type Timers interface {
	SchedulePlan(p scheduler.Plan, fn scheduler.Callback) (int, error)
	Dispose() error
}

// Options wires a Host to its collaborators. Nights, Weeks, Warnings and
// Shutdown are required.
type Options struct {
	Clock    clockwork.Clock
	Logger   *log.Logger
	Nights   NightStore
	Weeks    WeeklyReader
	Warnings presenter.WarningPresenter
	Shutdown presenter.ShutdownRequester
	Journal  ledger.Journal
	Metrics  metrics.Recorder
	// NewTimers builds an empty timer set; defaults to a gocron scheduler.
	NewTimers func() (Timers, error)
}

// Host is the long-running orchestrator: it plans tonight's warnings and
// shutdown, then polls the shared state and re-plans whenever another process
// changes the night or the configuration changes.
type Host struct {
	clock    clockwork.Clock
	log      *log.Logger
	nights   NightStore
	weeks    WeeklyReader
	warnings presenter.WarningPresenter
	shutdown presenter.ShutdownRequester
	journal  ledger.Journal
	metrics  metrics.Recorder
	newTimer func() (Timers, error)

	reload chan struct{}

	mu     sync.Mutex
	cfg    models.Config
	base   time.Time
	night  models.NightState // input of the current plan
	timers Timers
}

func New(cfg models.Config, opts Options) (*Host, error) {
	if opts.Nights == nil || opts.Weeks == nil || opts.Warnings == nil || opts.Shutdown == nil {
		return nil, errors.New("agent: nights, weeks, warnings and shutdown are required")
	}
	h := &Host{
		clock:    opts.Clock,
		log:      opts.Logger,
		nights:   opts.Nights,
		weeks:    opts.Weeks,
		warnings: opts.Warnings,
		shutdown: opts.Shutdown,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		newTimer: opts.NewTimers,
		reload:   make(chan struct{}, 1),
		cfg:      cfg,
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.log == nil {
		h.log = log.Default()
	}
	if h.journal == nil {
		h.journal = ledger.Discard
	}
	if h.metrics == nil {
		h.metrics = metrics.NoopRecorder{}
	}
	if h.newTimer == nil {
		h.newTimer = func() (Timers, error) {
			return scheduler.New(h.clock, h.log)
		}
	}
	return h, nil
}

// Run starts the agent and polls until ctx is done. It returns nil right
// after forcing a shutdown when started inside the restricted window.
func (h *Host) Run(ctx context.Context) error {
	done, err := h.Start(ctx)
	if err != nil || done {
		return err
	}
	defer h.Stop()

	cfg := h.config()
	interval := cfg.PollInterval()
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Agent stopping")
			return nil
		case <-ticker.Chan():
			if err := h.Poll(ctx); err != nil {
				h.log.Error("Poll failed", "error", err)
			}
		case <-h.reload:
			cfg := h.config()
			if next := cfg.PollInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				h.log.Debug("Poll interval changed", "interval", interval)
			}
			if err := h.Replan(ctx, metrics.CauseConfigChanged); err != nil {
				h.log.Error("Re-plan after config change failed", "error", err)
			}
		}
	}
}

// Start performs the startup check and the first plan. done reports that
// the agent forced a shutdown and has nothing more to do.
func (h *Host) Start(ctx context.Context) (done bool, err error) {
	now := h.clock.Now()
	cfg := h.config()

	if timepolicy.IsRestricted(now, &cfg) {
		h.log.Warn("Started inside restricted hours, shutting down",
			"now", now.Format(constants.TimeFormat),
			"window", cfg.RestrictedStart+"-"+cfg.RestrictedEnd)
		h.metrics.IncShutdown(false)
		ledger.Log(ctx, h.journal, ledger.Event{At: now, Kind: constants.EventShutdownRequested, Code: "restricted_hours"})
		if err := h.shutdown.ForceShutdown(); err != nil {
			return true, fmt.Errorf("forced shutdown failed: %w", err)
		}
		return true, nil
	}

	if err := h.Replan(ctx, metrics.CauseStartup); err != nil {
		return false, err
	}
	return false, nil
}

// Stop disposes the armed timers.
func (h *Host) Stop() {
	h.mu.Lock()
	timers := h.timers
	h.timers = nil
	h.mu.Unlock()

	if timers != nil {
		if err := timers.Dispose(); err != nil {
			h.log.Warn("Failed to dispose timers", "error", err)
		}
	}
}

// ReloadConfig swaps in a new configuration and asks the run loop to
// re-plan. The rebase rule makes a changed deadline apply to tonight.
func (h *Host) ReloadConfig(cfg models.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()

	h.log.Info("Configuration reloaded", "deadline", cfg.DailyDeadline)
	select {
	case h.reload <- struct{}{}:
	default:
	}
}

func (h *Host) config() models.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// Night returns the record the current plan was built from.
func (h *Host) Night() models.NightState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.night.Clone()
}

// Replan computes tonight's base deadline, reconciles the stored night with
// it and arms a fresh timer set. A stored night whose effective deadline is
// still ahead stays the current night.
func (h *Host) Replan(ctx context.Context, cause metrics.ReplanCause) error {
	now := h.clock.Now()
	cfg := h.config()
	base, err := h.nights.ResolveBase(ctx, now, timepolicy.ComputeBaseDeadline(now, &cfg))
	if err != nil {
		return fmt.Errorf("failed to read night state: %w", err)
	}

	night, err := h.rebase(ctx, base, cfg)
	if err != nil {
		return err
	}
	return h.plan(ctx, cause, base, night)
}

// rebase loads the night of base and, when its stored base deadline differs
// (the deadline setting changed), moves it onto base.
func (h *Host) rebase(ctx context.Context, base time.Time, cfg models.Config) (models.NightState, error) {
	extension := time.Duration(cfg.OverrideExtensionMinutes) * time.Minute
	night, err := h.nights.Update(ctx, base, func(n *models.NightState) error {
		if n.BaseDeadline.Equal(base) {
			return storage.ErrNoChange
		}
		h.log.Info("Rebasing night", "night", n.NightID,
			"from", n.BaseDeadline.Format(time.RFC3339), "to", base.Format(time.RFC3339))
		n.Rebase(base, extension)
		return nil
	})
	if err != nil {
		return models.NightState{}, fmt.Errorf("failed to load night state: %w", err)
	}
	return night, nil
}

// plan replaces the armed timers with the plan for night.
func (h *Host) plan(ctx context.Context, cause metrics.ReplanCause, base time.Time, night models.NightState) error {
	now := h.clock.Now()
	cfg := h.config()
	p := scheduler.BuildPlan(now, night.EffectiveDeadline, cfg.WarningMinutes(night.OverrideUsed))

	h.Stop()
	timers, err := h.newTimer()
	if err != nil {
		return fmt.Errorf("failed to create timers: %w", err)
	}
	armed, err := timers.SchedulePlan(p, h.onFire(base, night.EffectiveDeadline))
	if err != nil {
		h.log.Error("Some timers could not be armed", "error", err)
	}

	h.mu.Lock()
	h.base = base
	h.night = night
	h.timers = timers
	h.mu.Unlock()

	h.metrics.IncReplan(cause)
	h.metrics.ObservePlanSize(armed)
	h.log.Info("Plan built", "cause", cause, "night", night.NightID,
		"deadline", night.EffectiveDeadline.Format(time.RFC3339), "override", night.OverrideUsed, "timers", armed)
	ledger.Log(ctx, h.journal, ledger.Event{
		At:      now,
		Kind:    constants.EventPlanBuilt,
		NightID: night.NightID,
		Code:    string(cause),
		Detail:  fmt.Sprintf("deadline=%s timers=%d", night.EffectiveDeadline.Format(constants.TimeFormat), armed),
	})
	return nil
}

// Poll re-reads the night and re-plans when its deadline or override flag
// moved since the current plan was built. Once the night is over it moves
// on to the next one.
func (h *Host) Poll(ctx context.Context) error {
	start := h.clock.Now()
	defer func() {
		h.metrics.ObservePollDuration(h.clock.Since(start))
	}()

	h.mu.Lock()
	base, current := h.base, h.night
	h.mu.Unlock()

	cfg := h.config()
	if next := timepolicy.ComputeBaseDeadline(start, &cfg); !start.Before(current.EffectiveDeadline) && !next.Equal(base) {
		return h.Replan(ctx, metrics.CauseNewNight)
	}

	latest, ours, err := h.readNight(ctx, base)
	if err != nil {
		return fmt.Errorf("failed to reload night state: %w", err)
	}
	if !ours {
		h.log.Debug("Stored night is not the planned one, keeping the plan", "night", current.NightID)
		return nil
	}
	if latest.EffectiveDeadline.Equal(current.EffectiveDeadline) && latest.OverrideUsed == current.OverrideUsed {
		return nil
	}

	h.log.Info("Night state changed", "night", latest.NightID,
		"deadline", latest.EffectiveDeadline.Format(time.RFC3339), "override", latest.OverrideUsed)
	return h.plan(ctx, metrics.CauseStateChanged, base, latest)
}

// readNight returns the stored record when it belongs to the night of base.
// It never creates or supersedes a record.
func (h *Host) readNight(ctx context.Context, base time.Time) (models.NightState, bool, error) {
	snap, found, err := h.nights.Peek(ctx)
	if err != nil || !found {
		return models.NightState{}, false, err
	}
	if snap.Value.NightID != models.NightIDFor(base) {
		return models.NightState{}, false, nil
	}
	return snap.Value, true, nil
}

func (h *Host) onFire(base, deadline time.Time) scheduler.Callback {
	return func(ctx context.Context, e scheduler.Entry) {
		switch e.Kind {
		case scheduler.KindWarning:
			h.fireWarning(ctx, base, deadline, e.MinutesBefore)
		case scheduler.KindShutdown:
			h.fireShutdown(ctx, base, deadline)
		}
	}
}

// fireWarning presents one warning unless the plan it belongs to is stale or
// the warning was already recorded.
func (h *Host) fireWarning(ctx context.Context, base, deadline time.Time, minutes int) {
	now := h.clock.Now()
	cfg := h.config()

	latest, ours, err := h.readNight(ctx, base)
	if err != nil {
		h.metrics.IncWarning(metrics.WarningError)
		h.log.Error("Warning: failed to read night state", "minutes", minutes, "error", err)
		return
	}
	if ours && !latest.EffectiveDeadline.Equal(deadline) {
		h.metrics.IncWarning(metrics.WarningStale)
		h.log.Debug("Warning for an old deadline ignored", "minutes", minutes)
		return
	}
	if ours && latest.HasSentWarning(deadline, minutes) {
		h.metrics.IncWarning(metrics.WarningDuplicate)
		return
	}

	offerable := false
	used := 0
	weekly, err := h.weeks.LoadOrCreateCurrentWeek(ctx, now)
	if err != nil {
		h.log.Warn("Warning: failed to read weekly state", "error", err)
	} else {
		used = weekly.Value.OverrideCount
		offerable = cfg.OverrideEnabled && weekly.Value.QuotaOK(&cfg) && !latest.IsOverridden()
	}

	body := fmt.Sprintf("%d minute(s) remaining until shutdown at %s.\nWeekly overrides used: %d/%d",
		minutes, deadline.Format(constants.TimeFormat), used, cfg.MaxOverridesPerWeek)
	if err := h.warnings.PresentWarning(constants.WarningTitle, body, offerable); err != nil {
		h.metrics.IncWarning(metrics.WarningError)
		h.log.Error("Failed to present warning", "minutes", minutes, "error", err)
		return
	}

	if ours {
		_, err = h.nights.Update(ctx, base, func(n *models.NightState) error {
			if !n.EffectiveDeadline.Equal(deadline) {
				return storage.ErrNoChange
			}
			n.RecordWarning(deadline, minutes, now)
			return nil
		})
		if err != nil {
			h.log.Error("Failed to record warning", "minutes", minutes, "error", err)
		}
	}

	h.metrics.IncWarning(metrics.WarningPresented)
	h.log.Info("Warning presented", "minutes", minutes, "offerable", offerable)
	ledger.Log(ctx, h.journal, ledger.Event{
		At:      now,
		Kind:    constants.EventWarningPresented,
		NightID: models.NightIDFor(base),
		Code:    fmt.Sprintf("%dm", minutes),
	})
}

// fireShutdown forces the shutdown unless the deadline it was armed for has
// since moved. An unreadable or missing record does not prevent the shutdown.
func (h *Host) fireShutdown(ctx context.Context, base, deadline time.Time) {
	now := h.clock.Now()
	nightID := models.NightIDFor(base)

	latest, ours, err := h.readNight(ctx, base)
	if err != nil {
		h.log.Error("Shutdown: failed to read night state, shutting down anyway", "error", err)
	} else if ours && !latest.EffectiveDeadline.Equal(deadline) {
		h.metrics.IncShutdown(true)
		h.log.Info("Shutdown for an old deadline ignored",
			"armed", deadline.Format(time.RFC3339), "current", latest.EffectiveDeadline.Format(time.RFC3339))
		return
	}

	h.metrics.IncShutdown(false)
	ledger.Log(ctx, h.journal, ledger.Event{
		At:      now,
		Kind:    constants.EventShutdownRequested,
		NightID: nightID,
		Code:    "deadline",
	})
	if err := h.shutdown.ForceShutdown(); err != nil {
		h.log.Error("Forced shutdown failed", "error", err)
	}
}

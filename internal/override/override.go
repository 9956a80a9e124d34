package override

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/ledger"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/metrics"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/storage"
	"github.com/julianstephens/lightsout/internal/timepolicy"
)

// ReasonCode identifies the outcome of an override request.
type ReasonCode string

const (
	Granted         ReasonCode = "granted"
	QuotaExceeded   ReasonCode = "quota_exceeded"
	RestrictedHours ReasonCode = "restricted_hours"
	Disabled        ReasonCode = "disabled"
	PhraseMismatch  ReasonCode = "phrase_mismatch"
	ReasonTooShort  ReasonCode = "reason_too_short"
	AlreadyUsed     ReasonCode = "already_used"
)

// Decision is the result of evaluating an override request.
type Decision struct {
	Allowed bool
	Code    ReasonCode
	Message string
}

func deny(code ReasonCode, format string, args ...any) Decision {
	return Decision{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Evaluate applies the override policy. Checks run in a fixed order and the
// first failing one decides.
func Evaluate(cfg *models.Config, weekly models.WeeklyState, night models.NightState, now time.Time, typedPhrase, reason string) Decision {
	if d := evaluateRequest(cfg, weekly, now, typedPhrase, reason); !d.Allowed {
		return d
	}
	if night.IsOverridden() {
		return deny(AlreadyUsed, "Override has already been used tonight.")
	}
	return Decision{Allowed: true, Code: Granted}
}

// evaluateRequest runs every check that does not need the night record.
func evaluateRequest(cfg *models.Config, weekly models.WeeklyState, now time.Time, typedPhrase, reason string) Decision {
	if !weekly.QuotaOK(cfg) {
		return deny(QuotaExceeded, "Weekly override limit reached (%d/%d).", weekly.OverrideCount, cfg.MaxOverridesPerWeek)
	}
	if timepolicy.IsRestricted(now, cfg) {
		return deny(RestrictedHours, "Override is not allowed during restricted hours.")
	}
	if !cfg.OverrideEnabled {
		return deny(Disabled, "Override is disabled by configuration.")
	}
	if strings.TrimSpace(typedPhrase) != cfg.OverrideCommitmentPhrase {
		return deny(PhraseMismatch, "Commitment phrase does not match exactly.")
	}
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < cfg.OverrideReasonMinLength {
		return deny(ReasonTooShort, "Reason must be at least %d characters.", cfg.OverrideReasonMinLength)
	}
	return Decision{Allowed: true, Code: Granted}
}

// NightStore is the part of the night record store the gate needs.
type NightStore interface {
	Peek(ctx context.Context) (storage.Snapshot[models.NightState], bool, error)
	ResolveBase(ctx context.Context, now, computed time.Time) (time.Time, error)
	Update(ctx context.Context, baseDeadline time.Time, mutate func(*models.NightState) error) (models.NightState, error)
}

// WeeklyStore is the part of the weekly record store the gate needs.
type WeeklyStore interface {
	LoadOrCreateCurrentWeek(ctx context.Context, now time.Time) (storage.Snapshot[models.WeeklyState], error)
	IncrementOverrideCount(ctx context.Context, now time.Time) (models.WeeklyState, error)
}

// Result reports what Apply did.
type Result struct {
	Decision
	// Night is the record after the request, denied or not.
	Night models.NightState
	// Weekly is the week's record as last seen.
	Weekly models.WeeklyState
	// WeeklyErr is set when a granted override could not be counted. The
	// override still stands.
	WeeklyErr error
}

// denial aborts the night update without writing.
type denial struct {
	decision Decision
	night    models.NightState
	weekly   models.WeeklyState
}

func (d *denial) Error() string { return string(d.decision.Code) }

// Gate evaluates and applies override requests against the shared stores.
type Gate struct {
	cfg      models.Config
	nights   NightStore
	weeks    WeeklyStore
	journal  ledger.Journal
	recorder metrics.Recorder
}

func NewGate(cfg models.Config, nights NightStore, weeks WeeklyStore) *Gate {
	return &Gate{
		cfg:      cfg,
		nights:   nights,
		weeks:    weeks,
		journal:  ledger.Discard,
		recorder: metrics.NoopRecorder{},
	}
}

// WithJournal records every decision on j.
func (g *Gate) WithJournal(j ledger.Journal) *Gate {
	if j != nil {
		g.journal = j
	}
	return g
}

// WithRecorder counts decisions on r.
func (g *Gate) WithRecorder(r metrics.Recorder) *Gate {
	if r != nil {
		g.recorder = r
	}
	return g
}

// Apply evaluates the request against freshly read state and, if allowed,
// extends tonight's deadline. A request failing a check that needs no night
// record is denied before the night store is touched. The remaining check runs
// inside the night record's conditional update, so a concurrent override seen
// only at write time is re-evaluated and denied. Denials are reported in the
// Result; the error is reserved for storage failures.
func (g *Gate) Apply(ctx context.Context, now time.Time, typedPhrase, reason string) (Result, error) {
	cfg := g.cfg
	extension := time.Duration(cfg.OverrideExtensionMinutes) * time.Minute
	reason = strings.TrimSpace(reason)

	snap, err := g.weeks.LoadOrCreateCurrentWeek(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load weekly state: %w", err)
	}
	weekly := snap.Value
	if d := evaluateRequest(&cfg, weekly, now, typedPhrase, reason); !d.Allowed {
		res := Result{Decision: d, Weekly: weekly}
		if current, found, err := g.nights.Peek(ctx); err == nil && found {
			res.Night = current.Value
		}
		g.record(ctx, now, res)
		return res, nil
	}

	base, err := g.nights.ResolveBase(ctx, now, timepolicy.ComputeBaseDeadline(now, &cfg))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read night state: %w", err)
	}

	night, err := g.nights.Update(ctx, base, func(n *models.NightState) error {
		snap, err := g.weeks.LoadOrCreateCurrentWeek(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to load weekly state: %w", err)
		}
		weekly = snap.Value

		d := Evaluate(&cfg, weekly, *n, now, typedPhrase, reason)
		if !d.Allowed {
			return &denial{decision: d, night: *n, weekly: weekly}
		}
		if !n.BaseDeadline.Equal(base) {
			n.Rebase(base, extension)
		}
		return n.ApplyOverride(extension, now, reason)
	})

	var denied *denial
	if errors.As(err, &denied) {
		res := Result{Decision: denied.decision, Night: denied.night, Weekly: denied.weekly}
		g.record(ctx, now, res)
		return res, nil
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Decision: Decision{
			Allowed: true,
			Code:    Granted,
			Message: fmt.Sprintf("Override applied. New shutdown time: %s.", night.EffectiveDeadline.Format(constants.TimeFormat)),
		},
		Night:  night,
		Weekly: weekly,
	}

	// The night update above is already durable; the count is best effort.
	updated, err := g.weeks.IncrementOverrideCount(ctx, now)
	if err != nil {
		res.WeeklyErr = err
		logger.Error("Override granted but weekly count not updated", "night", night.NightID, "error", err)
		ledger.Log(ctx, g.journal, ledger.Event{
			At:      now,
			Kind:    constants.EventWeeklyCountDiscrepancy,
			NightID: night.NightID,
			Detail:  err.Error(),
		})
	} else {
		res.Weekly = updated
	}

	g.record(ctx, now, res)
	return res, nil
}

func (g *Gate) record(ctx context.Context, now time.Time, res Result) {
	g.recorder.IncOverrideDecision(string(res.Code))

	kind := constants.EventOverrideDenied
	detail := res.Message
	if res.Allowed {
		kind = constants.EventOverrideGranted
		if res.Night.OverrideReason != nil {
			detail = *res.Night.OverrideReason
		}
		logger.Info("Override granted", "night", res.Night.NightID,
			"effective", res.Night.EffectiveDeadline.Format(time.RFC3339), "weekly", res.Weekly.OverrideCount)
	} else {
		logger.Info("Override denied", "code", res.Code)
	}

	ledger.Log(ctx, g.journal, ledger.Event{
		At:      now,
		Kind:    kind,
		NightID: res.Night.NightID,
		Code:    string(res.Code),
		Detail:  detail,
	})
}

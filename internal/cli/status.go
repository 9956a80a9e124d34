package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/models"
	"github.com/julianstephens/lightsout/internal/timepolicy"
)

type StatusCmd struct{}

func (cmd *StatusCmd) Run(ctx *Context) error {
	bg := context.Background()
	now := ctx.Clock.Now()
	cfg := ctx.Config

	snap, found, err := ctx.Store.Night.Peek(bg)
	if err != nil {
		return fmt.Errorf("failed to read night state: %w", err)
	}
	weekly, err := ctx.Store.Weekly.LoadOrCreateCurrentWeek(bg, now)
	if err != nil {
		return fmt.Errorf("failed to read weekly state: %w", err)
	}

	base := timepolicy.ComputeBaseDeadline(now, &cfg)
	night := models.NewNightState(base)
	if found && snap.Value.NightID == night.NightID {
		night = snap.Value
	}

	fmt.Print(formatStatus(now, &cfg, night, weekly.Value))
	return nil
}

func formatStatus(now time.Time, cfg *models.Config, night models.NightState, weekly models.WeeklyState) string {
	var b strings.Builder

	restricted := "inactive"
	if timepolicy.IsRestricted(now, cfg) {
		restricted = "ACTIVE"
	}
	fmt.Fprintf(&b, "Now:               %s\n", now.Format(constants.DateFormat+" "+constants.TimeFormat))
	fmt.Fprintf(&b, "Restricted hours:  %s-%s (%s)\n", cfg.RestrictedStart, cfg.RestrictedEnd, restricted)
	fmt.Fprintf(&b, "Night:             %s\n", night.NightID)
	fmt.Fprintf(&b, "Shutdown at:       %s (base %s)\n",
		night.EffectiveDeadline.Format(constants.TimeFormat), night.BaseDeadline.Format(constants.TimeFormat))

	switch {
	case night.IsOverridden() && night.OverrideAt != nil && night.OverrideReason != nil:
		fmt.Fprintf(&b, "Override:          used at %s (%s)\n", night.OverrideAt.Format(constants.TimeFormat), *night.OverrideReason)
	case night.IsOverridden():
		b.WriteString("Override:          used\n")
	case !cfg.OverrideEnabled:
		b.WriteString("Override:          disabled\n")
	default:
		b.WriteString("Override:          available\n")
	}

	var sent []string
	for _, m := range cfg.WarningMinutes(night.OverrideUsed) {
		if night.HasSentWarning(night.EffectiveDeadline, m) {
			sent = append(sent, fmt.Sprintf("%dm", m))
		}
	}
	if len(sent) == 0 {
		sent = []string{"none"}
	}
	fmt.Fprintf(&b, "Warnings sent:     %s\n", strings.Join(sent, ", "))

	limit := "unlimited"
	if cfg.WeeklyOverrideLimitEnabled {
		limit = fmt.Sprint(cfg.MaxOverridesPerWeek)
	}
	fmt.Fprintf(&b, "Weekly overrides:  %d/%s (week of %s)\n", weekly.OverrideCount, limit, weekly.WeekStart)
	return b.String()
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/lightsout/internal/metrics"
	"github.com/julianstephens/lightsout/internal/override"
	"github.com/julianstephens/lightsout/internal/tui"
)

// WarnCmd is launched by the agent to show one warning.
type WarnCmd struct {
	Title         string `help:"Popup title." required:""`
	Body          string `help:"Popup body." required:""`
	AllowOverride bool   `help:"Offer the override dialog." name:"allow-override"`
}

func (cmd *WarnCmd) Run(ctx *Context) error {
	opts := ctx.popupOptions()
	opts.Title = cmd.Title
	opts.Body = cmd.Body
	opts.Offerable = cmd.AllowOverride
	return tui.Run(tui.NewWarning(opts))
}

// OverrideCmd requests tonight's override, interactively unless both
// --phrase and --reason are given.
type OverrideCmd struct {
	Phrase string `help:"Commitment phrase, typed exactly."`
	Reason string `help:"Why the extension is needed."`
}

func (cmd *OverrideCmd) Run(ctx *Context) error {
	if strings.TrimSpace(cmd.Phrase) == "" || strings.TrimSpace(cmd.Reason) == "" {
		return tui.Run(tui.NewOverride(ctx.popupOptions()))
	}

	res, err := ctx.applyOverride(cmd.Phrase, cmd.Reason)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denied(res.Message)
	}
	fmt.Println(res.Message)
	if res.WeeklyErr != nil {
		fmt.Printf("Warning: the weekly override count could not be updated: %v\n", res.WeeklyErr)
	}
	return nil
}

func (c *Context) popupOptions() tui.Options {
	return tui.Options{
		AutoClose:       time.Duration(c.Config.PopupAutoCloseSeconds) * time.Second,
		Phrase:          c.Config.OverrideCommitmentPhrase,
		ReasonMinLength: c.Config.OverrideReasonMinLength,
		Apply:           c.applyOverride,
	}
}

func (c *Context) applyOverride(phrase, reason string) (override.Result, error) {
	bg := context.Background()
	journal, closeJournal := c.OpenJournal(bg)
	defer closeJournal()
	return c.Gate(journal, metrics.NoopRecorder{}).Apply(bg, c.Clock.Now(), phrase, reason)
}

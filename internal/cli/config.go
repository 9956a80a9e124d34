package cli

import (
	"context"
	"fmt"

	"github.com/julianstephens/lightsout/internal/config"
	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/ledger"
	"github.com/julianstephens/lightsout/internal/logger"
	"github.com/julianstephens/lightsout/internal/models"
)

type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration." default:"1"`
	Set  ConfigSetCmd  `cmd:"" help:"Change one setting (once per week)."`
}

type ConfigShowCmd struct{}

func (cmd *ConfigShowCmd) Run(ctx *Context) error {
	data, err := config.Encode(ctx.Config)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", ctx.ConfigPath, data)
	return nil
}

type ConfigSetCmd struct {
	Key   string `arg:"" help:"Setting name, e.g. dailyDeadline."`
	Value string `arg:"" help:"New value. Minute lists are comma-separated."`
}

func (cmd *ConfigSetCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if err := models.SetConfigValue(&cfg, cmd.Key, cmd.Value); err != nil {
		return err
	}
	bg := context.Background()
	now := ctx.Clock.Now()
	if err := config.Save(bg, ctx.Store, cfg, now); err != nil {
		return err
	}
	logger.Info("Configuration saved", "key", cmd.Key, "value", cmd.Value)

	journal, closeJournal := ctx.OpenJournal(bg)
	defer closeJournal()
	ledger.Log(bg, journal, ledger.Event{At: now, Kind: constants.EventConfigSaved, Code: cmd.Key, Detail: cmd.Value})
	fmt.Printf("Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

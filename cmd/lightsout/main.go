package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/lightsout/internal/cli"
	"github.com/julianstephens/lightsout/internal/config"
	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/errors"
	"github.com/julianstephens/lightsout/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Home    string `help:"State directory. Defaults to $LIGHTSOUT_HOME or the user config dir." type:"path"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Agent    cli.AgentCmd    `cmd:"" help:"Run the nightly shutdown agent." default:"1"`
	Warn     cli.WarnCmd     `cmd:"" hidden:"" help:"Show a shutdown warning (launched by the agent)."`
	Override cli.OverrideCmd `cmd:"" help:"Request tonight's one-time extension."`
	Status   cli.StatusCmd   `cmd:"" help:"Show tonight's deadline and override state."`
	History  cli.HistoryCmd  `cmd:"" help:"List recorded events."`
	Config   cli.ConfigCmd   `cmd:"" help:"Show or change settings."`
	DebugCmd cli.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Nightly computer-usage cutoff"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	home, err := config.HomeDir(CLI.Home)
	if err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{Debug: CLI.Debug, HomeDir: home, Role: strings.Fields(ctx.Command())[0]}); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.Formatf("failed to initialize logger: %v", err))
		os.Exit(1)
	}
	config.LoadEnv(home)

	appCtx := cli.NewContext(home, CLI.Debug)
	errors.Fatal(ctx.Run(appCtx))
}

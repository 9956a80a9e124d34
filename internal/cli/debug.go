package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/lightsout/internal/constants"
)

type DebugCmd struct {
	Paths     DebugPathsCmd     `cmd:"" help:"Show state file paths."`
	DumpState DebugDumpStateCmd `cmd:"" name:"dump-state" help:"Dump raw state records as JSON."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *Context) error {
	output := map[string]string{
		"home":   ctx.Home,
		"config": ctx.ConfigPath,
		"ledger": ctx.Store.Files.Path(constants.LedgerFileName),
		"night":  ctx.Store.Files.Path(constants.NightStateFileName),
		"weekly": ctx.Store.Files.Path(constants.WeeklyFileName),
	}
	return printJSON(output)
}

type DebugDumpStateCmd struct{}

func (cmd *DebugDumpStateCmd) Run(ctx *Context) error {
	output := map[string]any{}
	for _, name := range []string{
		constants.NightStateFileName,
		constants.WeeklyFileName,
		constants.ConfigMetaFileName,
	} {
		data, version, err := ctx.Store.Files.Read(name)
		switch {
		case err != nil:
			output[name] = map[string]string{"error": err.Error()}
		case data == nil:
			output[name] = nil
		case !json.Valid(data):
			output[name] = map[string]string{"version": string(version), "raw": string(data)}
		default:
			output[name] = map[string]any{"version": string(version), "record": json.RawMessage(data)}
		}
	}
	return printJSON(output)
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

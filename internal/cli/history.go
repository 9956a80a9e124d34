package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/julianstephens/lightsout/internal/constants"
	"github.com/julianstephens/lightsout/internal/ledger"
)

type HistoryCmd struct {
	Limit int `help:"Number of events to show." default:"20"`
}

func (cmd *HistoryCmd) Run(ctx *Context) error {
	bg := context.Background()
	l, err := ledger.Open(bg, filepath.Join(ctx.Home, constants.LedgerFileName))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer l.Close()

	events, err := l.Recent(bg, cmd.Limit)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tNIGHT\tCODE\tDETAIL")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(constants.DateFormat+" "+constants.TimeFormat),
			e.Kind, dash(e.NightID), dash(e.Code), e.Detail)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgewatch/edgewatch/internal/app"
	"github.com/edgewatch/edgewatch/internal/config"
	"github.com/edgewatch/edgewatch/internal/providers"
	"github.com/edgewatch/edgewatch/internal/store"
)

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one refresh cycle and print the ranked candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context())
		},
	}
}

func runScan(ctx context.Context) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	client, err := providers.NewClient("coingecko", cfg.ProviderConfig(), nil)
	if err != nil {
		return err
	}

	engine := app.New(cfg, app.Sources{Snapshots: client, Intraday: client, Candles: client}, store.NewMemory(), nil)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	if err := engine.Refresh(ctx); err != nil {
		return err
	}

	st := engine.State()
	fmt.Printf("session %s (%s)  next change in %s\n\n", st.Session.Name, st.Session.Quality, st.Session.Countdown)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSYMBOL\tPRICE\tCHG24H\tSCORE\tENTRY\tSTRUCTURE\tROOM\tNOTES")
	for i, a := range st.Assets {
		entry := "-"
		if a.Micro != nil {
			entry = string(a.Micro.Quality)
		}
		structure, room := "-", "-"
		var notes []string
		if a.Structure != nil {
			structure = string(a.Structure.Label)
			if a.Structure.RoomTo2R != nil {
				room = fmt.Sprintf("%.2fR", *a.Structure.RoomTo2R)
			}
			notes = a.Structure.Reasons
		}
		fmt.Fprintf(w, "%d\t%s\t%.4g\t%+.2f%%\t%.1f\t%s\t%s\t%s\t%s\n",
			i+1, a.Snapshot.Symbol, a.Snapshot.Price, a.Snapshot.Change24hPct,
			a.Score.Combined, entry, structure, room, strings.Join(notes, "; "))
	}
	return w.Flush()
}

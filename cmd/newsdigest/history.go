package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/deusflow/newsdigest/internal/app"
	"github.com/deusflow/newsdigest/internal/storage"
)

const insightWidth = 60

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cfg, cats)
		if err != nil {
			return err
		}
		runs, err := a.History(historyLimit)
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show (0 for all)")
}

func writeHistory(w io.Writer, runs []*storage.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No archived runs")
		return
	}
	for _, run := range runs {
		insight := "-"
		if run.Insight != nil && run.Insight.StrategicInsight != "" {
			insight = strings.Join(strings.Fields(run.Insight.StrategicInsight), " ")
		}
		fmt.Fprintf(w, "%s  %s  %4d  %s\n",
			run.GeneratedAt.Format("2006-01-02 15:04"),
			run.RunID[:8],
			run.UniqueCount,
			runewidth.Truncate(insight, insightWidth, "…"))
	}
}

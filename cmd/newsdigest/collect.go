package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/deusflow/newsdigest/internal/app"
	"github.com/deusflow/newsdigest/internal/article"
	"github.com/deusflow/newsdigest/internal/pipeline"
)

const (
	titleWidth  = 56
	sourceWidth = 14
)

var collectJSON bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the collection pipeline and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(cfg, cats)
		if err != nil {
			return err
		}
		res, err := a.Collect(ctx)
		if err != nil {
			return err
		}

		if collectJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		writeTable(cmd.OutOrStdout(), res, app.Names(cats))
		return nil
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectJSON, "json", false, "print the result as JSON")
}

type jsonCategory struct {
	Key      string           `json:"key"`
	Articles []article.Record `json:"articles"`
}

type jsonResult struct {
	Categories  []jsonCategory `json:"categories"`
	UniqueCount int            `json:"unique_count"`
}

func writeJSON(w io.Writer, res *pipeline.Result) error {
	out := jsonResult{UniqueCount: res.UniqueCount()}
	for _, key := range res.Order {
		records := res.Categories[key]
		if records == nil {
			records = []article.Record{}
		}
		out.Categories = append(out.Categories, jsonCategory{Key: key, Articles: records})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeTable prints one block per category with columns padded by display
// width, so wide Hangul titles line up with ASCII ones.
func writeTable(w io.Writer, res *pipeline.Result, names map[string]string) {
	for _, key := range res.Order {
		records := res.Categories[key]
		name := names[key]
		if name == "" {
			name = key
		}
		fmt.Fprintf(w, "\n[%s] %s (%d)\n", key, name, len(records))
		fmt.Fprintln(w, strings.Repeat("-", 4+sourceWidth+titleWidth+30))

		for i, r := range records {
			published := "-"
			if r.Published != nil {
				published = r.Published.Format("01-02 15:04")
			}
			fmt.Fprintf(w, "%3d %s %s %s %s\n",
				i+1,
				runewidth.FillRight(string(r.Source), sourceWidth),
				runewidth.FillRight(runewidth.Truncate(r.Title, titleWidth, "…"), titleWidth),
				runewidth.FillRight(published, 11),
				r.Link)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d listed, %d unique\n", res.Total(), res.UniqueCount())
}

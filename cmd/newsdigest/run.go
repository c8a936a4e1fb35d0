package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdigest/internal/app"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, summarize, render, archive and deliver the daily digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.EnableMonitoring {
			go startMonitoringServer(cfg.MonitoringPort)
		}

		a, err := app.New(cfg, cats)
		if err != nil {
			metrics.Global.SetError(err.Error())
			return err
		}
		if err := a.Run(ctx); err != nil {
			metrics.Global.SetError(err.Error())
			logger.Error("Run failed", "error", err)
			return err
		}
		return nil
	},
}

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:     "scan [dir]",
	Aliases: []string{"load"},
	Short:   "Import new tagged statements (qfx, ofx) from a directory",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		return a.scan(cmd, scanDir(a, args))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Scan a directory now and then on a schedule until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		dir := scanDir(a, args)
		var running sync.Mutex
		run := func() {
			if !running.TryLock() {
				a.logger.Warn("previous scan still running, skipping", "dir", dir)
				return
			}
			defer running.Unlock()
			if err := a.scan(cmd, dir); err != nil {
				a.logger.Error("scan failed", "dir", dir, "error", err)
			}
		}

		c := cron.New()
		if err := c.AddFunc(a.cfg.WatchSchedule, run); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", a.cfg.WatchSchedule, err)
		}

		run()
		c.Start()
		defer c.Stop()

		a.logger.Info("watching for statements", "dir", dir, "schedule", a.cfg.WatchSchedule)
		<-cmd.Context().Done()
		return nil
	},
}

func scanDir(a *app, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return a.cfg.StatementsDir
}

func (a *app) scan(cmd *cobra.Command, dir string) error {
	summaries, err := a.engine.ScanDirectory(cmd.Context(), dir)
	for _, s := range summaries {
		printSummary(cmd.OutOrStdout(), s)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	scanCmd.Flags().String("dir", "", "Statements directory (default from config)")
	watchCmd.Flags().String("dir", "", "Statements directory (default from config)")
	watchCmd.Flags().String("schedule", "", "Cron spec, e.g. '@every 10m' or '0 0 * * * *'")

	rootCmd.AddCommand(scanCmd, watchCmd)
}

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cron runs one pass over the due jobs; an external scheduler invokes it
// every minute. watch is the long-lived equivalent for hosts without cron.

func newCronCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cron",
		Short: "Run all due sniper jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			eng, err := d.newEngine()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			batch, err := eng.RunScheduledJobs(runCtx)
			if err != nil {
				return err
			}
			if batch.JobsRun == 0 {
				return nil
			}
			fmt.Fprintf(os.Stdout, "ran %d job(s)\n", batch.JobsRun)
			for id, res := range batch.Results {
				fmt.Fprintf(os.Stdout, "  job #%d: %s\n", id, res.Outcome)
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var schedule string

	c := &cobra.Command{
		Use:   "watch",
		Short: "Run as a long-lived worker, processing due jobs on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			eng, err := d.newEngine()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cr := cron.New()
			_, err = cr.AddFunc(schedule, func() {
				batch, err := eng.RunScheduledJobs(runCtx)
				if err != nil {
					d.log.Error("scheduled run failed", zap.Error(err))
					return
				}
				if batch.JobsRun > 0 {
					d.log.Info("scheduled run finished", zap.Int("jobs_run", batch.JobsRun))
				}
			})
			if err != nil {
				return fmt.Errorf("invalid --schedule: %w", err)
			}

			d.log.Info("watch mode started", zap.String("schedule", schedule))
			cr.Start()
			<-runCtx.Done()
			d.log.Info("shutdown signal received, finishing current poll...")

			// Wait for any in-flight cron invocation to drain. Running jobs
			// observe the cancelled context and revert to pending.
			<-cr.Stop().Done()
			return nil
		},
	}

	c.Flags().StringVar(&schedule, "schedule", "* * * * *", "cron schedule for due-job sweeps")
	return c
}

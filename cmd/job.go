package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/resy-sniper/internal/engine"
	"github.com/example/resy-sniper/internal/snipe"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage sniper jobs",
	}
	cmd.AddCommand(newJobCreateCmd())
	cmd.AddCommand(newJobListCmd())
	cmd.AddCommand(newJobRunCmd())
	cmd.AddCommand(newJobCancelCmd())
	return cmd
}

func newJobCreateCmd() *cobra.Command {
	var (
		venue       string
		date        string
		times       []string
		partySize   int
		window      int
		maxAttempts int
		at          string
		autoResolve bool
		notes       string
		runNow      bool
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a sniper job (optionally run it immediately)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			// venue accepts either a slug or a display name; normalization
			// is a no-op on an already-normalized slug
			spec := snipe.JobSpec{
				VenueSlug:      snipe.NormalizeSlug(venue),
				Date:           date,
				PreferredTimes: times,
				PartySize:      partySize,
				MaxAttempts:    maxAttempts,
				ScheduledAt:    at,
				Notes:          notes,
			}
			if cmd.Flags().Changed("window") {
				spec.TimeWindowMinutes = &window
			}
			if cmd.Flags().Changed("auto-resolve") {
				spec.AutoResolveConflicts = &autoResolve
			}

			id, err := d.store.CreateJob(ctx, spec)
			if err != nil {
				return err
			}

			if at != "" && !runNow {
				fmt.Fprintf(os.Stdout, "sniper job #%d scheduled, fires at %s\n", id, at)
				fmt.Fprintln(os.Stdout, "set up cron to run: resysniper cron")
				return nil
			}
			if !runNow && at == "" {
				fmt.Fprintf(os.Stdout, "sniper job #%d created\n", id)
				return nil
			}

			fmt.Fprintf(os.Stdout, "sniper job #%d created, running now...\n", id)
			eng, err := d.newEngine()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			res, err := eng.RunJob(runCtx, id)
			if err != nil {
				return err
			}
			printResult(id, res)
			return nil
		},
	}

	c.Flags().StringVar(&venue, "venue", "", "venue slug or restaurant name (e.g. fish-cheeks)")
	c.Flags().StringVar(&date, "date", "", "reservation date YYYY-MM-DD")
	c.Flags().StringSliceVar(&times, "times", nil, "preferred times in priority order (e.g. '7:00 PM,7:30 PM')")
	c.Flags().IntVar(&partySize, "party-size", 0, "number of guests (default from config)")
	c.Flags().IntVar(&window, "window", 0, "accept slots within this many minutes of a preferred time")
	c.Flags().IntVar(&maxAttempts, "max-attempts", 0, "maximum poll attempts before giving up")
	c.Flags().StringVar(&at, "at", "", "ISO datetime when polling may begin (default: now)")
	c.Flags().BoolVar(&autoResolve, "auto-resolve", true, "cancel conflicting reservations automatically")
	c.Flags().StringVar(&notes, "notes", "", "free-text notes")
	c.Flags().BoolVar(&runNow, "run", false, "run the job synchronously after creating it")

	_ = c.MarkFlagRequired("venue")
	_ = c.MarkFlagRequired("date")
	return c
}

func newJobListCmd() *cobra.Command {
	var due bool

	c := &cobra.Command{
		Use:   "list",
		Short: "List sniper jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			var jobs []snipe.Job
			if due {
				jobs, err = d.store.ListPendingDue(ctx, time.Now().UTC())
			} else {
				jobs, err = d.store.ListJobs(ctx)
			}
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(os.Stdout, "no sniper jobs found")
				return nil
			}
			for _, j := range jobs {
				times := strings.Join(j.PreferredTimes, ", ")
				if times == "" {
					times = "(any)"
				}
				fmt.Fprintf(os.Stdout, "id=%d status=%s venue=%s date=%s times=%q scheduled_at=%s polls=%d/%d\n",
					j.ID, j.Status, j.VenueSlug, j.Date, times,
					j.ScheduledAt.Format("2006-01-02 15:04"), j.PollCount, j.MaxAttempts)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&due, "due", false, "only pending jobs whose scheduled time has passed")
	return c
}

func newJobRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Run a sniper job synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

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
			res, err := eng.RunJob(runCtx, id)
			if err != nil {
				return err
			}
			printResult(id, res)
			return nil
		},
	}
}

func newJobCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a sniper job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			ctx := cmd.Context()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			return cancelJob(ctx, d, id)
		},
	}
}

func cancelJob(ctx context.Context, d *deps, id int64) error {
	job, err := d.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job #%d is already %s", id, job.Status)
	}
	cancelled := snipe.StatusCancelled
	if _, err := d.store.UpdateJob(ctx, id, snipe.JobPatch{Status: &cancelled}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "job #%d cancelled\n", id)
	return nil
}

func printResult(id int64, res engine.Result) {
	fmt.Fprintf(os.Stdout, "job #%d: %s\n", id, res.Outcome)
	switch res.Outcome {
	case engine.OutcomeCompleted:
		fmt.Fprintf(os.Stdout, "  time: %s\n  confirmation: %s\n", res.TimeSlot, res.ConfirmationID)
	case engine.OutcomeFailed:
		fmt.Fprintf(os.Stdout, "  reason: %s\n", res.Reason)
	}
}

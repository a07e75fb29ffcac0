// Package engine runs the rapid-poll acquisition loop: claim a due job,
// poll the provider until a slot is booked, the attempt budget runs out,
// the job is cancelled, or shutdown is requested.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/example/resy-sniper/internal/snipe"
)

// Store is the slice of the job store the engine needs.
type Store interface {
	GetJob(ctx context.Context, id int64) (snipe.Job, error)
	UpdateJob(ctx context.Context, id int64, patch snipe.JobPatch) (bool, error)
	IncrementPollCount(ctx context.Context, id int64) (bool, error)
	ClaimNextDue(ctx context.Context, now time.Time) (*snipe.Job, error)
	CancelSiblingJobs(ctx context.Context, excludeID int64, venueSlug, date string) (int64, error)
	AddReservation(ctx context.Context, r snipe.Reservation) (int64, error)
}

// Outcome of a RunJob invocation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeShutdown means the loop stopped on a shutdown request; the job
	// reverted to pending and a later claim resumes where this left off.
	OutcomeShutdown Outcome = "shutdown"
)

// Result describes how a job run ended.
type Result struct {
	Outcome        Outcome
	Reason         string
	TimeSlot       string
	ConfirmationID string
	ReservationID  int64
	PollCount      int
}

// BatchResult is the summary of one RunScheduledJobs pass.
type BatchResult struct {
	JobsRun int
	Results map[int64]Result
}

type Engine struct {
	store    Store
	provider snipe.Provider
	notifier snipe.Notifier
	clock    clockwork.Clock
	log      *zap.Logger

	pollInterval time.Duration
	platform     string
}

// Options tune an Engine; zero values get sensible defaults.
type Options struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Logger       *zap.Logger
}

func New(st Store, p snipe.Provider, n snipe.Notifier, opts Options) *Engine {
	e := &Engine{
		store:        st,
		provider:     p,
		notifier:     n,
		clock:        opts.Clock,
		log:          opts.Logger,
		pollInterval: opts.PollInterval,
		platform:     p.Name(),
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.pollInterval <= 0 {
		e.pollInterval = 5 * time.Second
	}
	return e
}

// RunJob executes one sniper job to an outcome. Provider and notifier
// failures never escape; only store errors (and unknown job ids, as
// snipe.ErrNotFound) propagate.
func (e *Engine) RunJob(ctx context.Context, jobID int64) (Result, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return Result{}, fmt.Errorf("load job %d: %w", jobID, err)
	}

	// Status writes run detached from the cancellable run context: a
	// shutdown mid-write would otherwise strand the job in active, which no
	// claim can ever pick up again.
	if err := e.setStatus(context.WithoutCancel(ctx), jobID, snipe.StatusActive); err != nil {
		return Result{}, err
	}
	e.log.Info("sniper job started",
		zap.Int64("job_id", jobID),
		zap.String("venue", job.VenueSlug),
		zap.String("date", job.Date))

	errCounts := make(map[string]int)
	var errOrder []string
	eventOnlyPolls := 0

	for {
		if ctx.Err() != nil {
			// Shutdown requested: release the job so a later claim resumes it.
			if err := e.setStatus(context.WithoutCancel(ctx), jobID, snipe.StatusPending); err != nil {
				return Result{}, err
			}
			e.log.Info("sniper job paused for shutdown", zap.Int64("job_id", jobID))
			return Result{Outcome: OutcomeShutdown, PollCount: job.PollCount}, nil
		}

		// Refresh for the current poll_count and to observe operator cancels.
		job, err = e.store.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				continue // shutdown raced the reload; handled at the top
			}
			return Result{}, fmt.Errorf("reload job %d: %w", jobID, err)
		}
		if job.Status == snipe.StatusCancelled {
			e.log.Info("sniper job cancelled, stopping", zap.Int64("job_id", jobID))
			return Result{Outcome: OutcomeCancelled, PollCount: job.PollCount}, nil
		}

		if job.PollCount >= job.MaxAttempts {
			reason := exhaustionReason(job.MaxAttempts, errCounts, errOrder, eventOnlyPolls)
			dctx := context.WithoutCancel(ctx)
			if err := e.setStatus(dctx, jobID, snipe.StatusFailed); err != nil {
				return Result{}, err
			}
			e.notifier.NotifyFailure(dctx, job, reason)
			e.log.Warn("sniper job exhausted",
				zap.Int64("job_id", jobID),
				zap.Int("poll_count", job.PollCount))
			return Result{Outcome: OutcomeFailed, Reason: reason, PollCount: job.PollCount}, nil
		}

		if _, err := e.store.IncrementPollCount(ctx, jobID); err != nil {
			if ctx.Err() != nil {
				continue
			}
			return Result{}, err
		}

		poll := e.pollOnce(ctx, job)
		if poll.booked {
			return e.finishBooked(ctx, job, poll)
		}

		if poll.eventOnly {
			eventOnlyPolls++
		}
		if poll.errMsg != "" {
			if errCounts[poll.errMsg] == 0 {
				errOrder = append(errOrder, poll.errMsg)
			}
			errCounts[poll.errMsg]++
			e.log.Warn("poll error",
				zap.Int64("job_id", jobID),
				zap.String("error", poll.errMsg))
		}

		select {
		case <-ctx.Done():
			// handled at the top of the loop
		case <-e.clock.After(e.pollInterval):
		}
	}
}

func (e *Engine) finishBooked(ctx context.Context, job snipe.Job, poll pollResult) (Result, error) {
	// The booking already happened provider-side; the reservation record,
	// terminal status, and notification have to land even if shutdown
	// cancelled the run context while the round-trip was in flight.
	ctx = context.WithoutCancel(ctx)

	res := snipe.Reservation{
		Platform:       e.platform,
		RestaurantName: job.VenueSlug,
		Date:           job.Date,
		Time:           poll.timeSlot,
		PartySize:      job.PartySize,
		Status:         snipe.ReservationConfirmed,
	}
	if poll.confirmationID != "" {
		res.ConfirmationNumber = &poll.confirmationID
	} else {
		res.Status = snipe.ReservationPendingConfirmation
	}
	if poll.confirmationToken != "" {
		res.ConfirmationToken = &poll.confirmationToken
	}

	resID, err := e.store.AddReservation(ctx, res)
	if err != nil {
		return Result{}, err
	}

	completed := snipe.StatusCompleted
	if _, err := e.store.UpdateJob(ctx, job.ID, snipe.JobPatch{
		Status:        &completed,
		ReservationID: &resID,
	}); err != nil {
		return Result{}, err
	}

	cancelled, err := e.store.CancelSiblingJobs(ctx, job.ID, job.VenueSlug, job.Date)
	if err != nil {
		return Result{}, err
	}
	if cancelled > 0 {
		e.log.Info("cancelled sibling jobs",
			zap.Int64("job_id", job.ID),
			zap.Int64("count", cancelled))
	}

	job, err = e.store.GetJob(ctx, job.ID)
	if err != nil {
		return Result{}, err
	}
	e.notifier.NotifySuccess(ctx, job, snipe.BookingOutcome{
		TimeSlot:       poll.timeSlot,
		ConfirmationID: poll.confirmationID,
	})
	e.log.Info("sniper job booked",
		zap.Int64("job_id", job.ID),
		zap.String("venue", job.VenueSlug),
		zap.String("time", poll.timeSlot))

	return Result{
		Outcome:        OutcomeCompleted,
		TimeSlot:       poll.timeSlot,
		ConfirmationID: poll.confirmationID,
		ReservationID:  resID,
		PollCount:      job.PollCount,
	}, nil
}

// RunScheduledJobs claims and runs due jobs until none remain or shutdown
// is requested. This is the entry point a minutely trigger calls.
func (e *Engine) RunScheduledJobs(ctx context.Context) (BatchResult, error) {
	batch := BatchResult{Results: make(map[int64]Result)}
	for ctx.Err() == nil {
		job, err := e.store.ClaimNextDue(ctx, e.clock.Now().UTC())
		if err != nil {
			return batch, err
		}
		if job == nil {
			break
		}
		e.log.Info("running scheduled sniper job", zap.Int64("job_id", job.ID))
		res, err := e.RunJob(ctx, job.ID)
		if err != nil {
			return batch, err
		}
		batch.Results[job.ID] = res
		batch.JobsRun++
	}
	if batch.JobsRun == 0 {
		e.log.Debug("no pending sniper jobs to run")
	}
	return batch, nil
}

func (e *Engine) setStatus(ctx context.Context, jobID int64, status snipe.Status) error {
	_, err := e.store.UpdateJob(ctx, jobID, snipe.JobPatch{Status: &status})
	return err
}

// exhaustionReason aggregates the transient errors seen across the run:
// most frequent first, ties in first-seen order, plus a note when every
// listing ever observed was an event card rather than a bookable slot.
func exhaustionReason(maxAttempts int, errCounts map[string]int, errOrder []string, eventOnlyPolls int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "max attempts (%d) reached", maxAttempts)

	if len(errCounts) > 0 {
		msgs := append([]string(nil), errOrder...)
		sort.SliceStable(msgs, func(i, j int) bool {
			return errCounts[msgs[i]] > errCounts[msgs[j]]
		})
		b.WriteString("\n\nPoll errors:")
		for _, m := range msgs {
			fmt.Fprintf(&b, "\n- %s (%dx)", m, errCounts[m])
		}
	}
	if eventOnlyPolls > 0 {
		fmt.Fprintf(&b,
			"\n\nNote: %d poll(s) found only event-style listings instead of standard time slots. "+
				"This venue may only have special event bookings for this date.", eventOnlyPolls)
	}
	return b.String()
}

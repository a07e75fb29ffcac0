// Package store is the durable home of sniper jobs and reservations.
// All cross-worker coordination funnels through ClaimNextDue's
// conditional update; nothing here relies on in-process locking.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/resy-sniper/internal/db"
	"github.com/example/resy-sniper/internal/snipe"
)

// Defaults fill omitted optional fields at job creation.
type Defaults struct {
	TimeWindowMinutes    int
	MaxAttempts          int
	PartySize            int
	AutoResolveConflicts bool
}

type Store struct {
	db       *db.DB
	defaults Defaults
}

func New(d *db.DB, defaults Defaults) *Store {
	return &Store{db: d, defaults: defaults}
}

const jobColumns = `id, venue_slug, date, preferred_times, party_size, time_window_minutes,
status, poll_count, max_attempts, scheduled_at, auto_resolve_conflicts,
reservation_id, notes, created_at, updated_at`

func scanJob(row db.Row) (snipe.Job, error) {
	var j snipe.Job
	var status string
	err := row.Scan(
		&j.ID, &j.VenueSlug, &j.Date, &j.PreferredTimes, &j.PartySize, &j.TimeWindowMinutes,
		&status, &j.PollCount, &j.MaxAttempts, &j.ScheduledAt, &j.AutoResolveConflicts,
		&j.ReservationID, &j.Notes, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snipe.Job{}, snipe.ErrNotFound
		}
		return snipe.Job{}, err
	}
	j.Status = snipe.Status(status)
	return j, nil
}

// CreateJob validates the request, applies configured defaults, and
// persists the job as pending with a zero poll count.
func (s *Store) CreateJob(ctx context.Context, spec snipe.JobSpec) (int64, error) {
	if spec.VenueSlug == "" {
		return 0, fmt.Errorf("%w: venue_slug required", snipe.ErrValidation)
	}
	if !snipe.ValidDate(spec.Date) {
		return 0, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", snipe.ErrValidation, spec.Date)
	}

	scheduledAt := time.Now().UTC()
	if spec.ScheduledAt != "" {
		var err error
		scheduledAt, err = snipe.ParseScheduleTime(spec.ScheduledAt)
		if err != nil {
			return 0, err
		}
	}

	partySize := spec.PartySize
	if partySize <= 0 {
		partySize = s.defaults.PartySize
	}
	windowMinutes := s.defaults.TimeWindowMinutes
	if spec.TimeWindowMinutes != nil {
		if *spec.TimeWindowMinutes < 0 {
			return 0, fmt.Errorf("%w: time_window_minutes must be >= 0", snipe.ErrValidation)
		}
		windowMinutes = *spec.TimeWindowMinutes
	}
	maxAttempts := spec.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.defaults.MaxAttempts
	}
	autoResolve := s.defaults.AutoResolveConflicts
	if spec.AutoResolveConflicts != nil {
		autoResolve = *spec.AutoResolveConflicts
	}
	preferred := spec.PreferredTimes
	if preferred == nil {
		preferred = []string{}
	}
	var notes *string
	if spec.Notes != "" {
		notes = &spec.Notes
	}

	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO sniper_jobs (venue_slug, date, preferred_times, party_size, time_window_minutes,
	status, poll_count, max_attempts, scheduled_at, auto_resolve_conflicts, notes)
VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7,$8,$9)
RETURNING id`,
		spec.VenueSlug, spec.Date, preferred, partySize, windowMinutes,
		maxAttempts, scheduledAt, autoResolve, notes,
	).Scan(&id)
	return id, err
}

func (s *Store) GetJob(ctx context.Context, id int64) (snipe.Job, error) {
	return scanJob(s.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM sniper_jobs WHERE id=$1`, id))
}

// UpdateJob applies a partial patch and refreshes updated_at. It reports
// false for an empty patch or an unknown id.
func (s *Store) UpdateJob(ctx context.Context, id int64, patch snipe.JobPatch) (bool, error) {
	if patch.Empty() {
		return false, nil
	}

	set := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.PollCount != nil {
		add("poll_count", *patch.PollCount)
	}
	if patch.MaxAttempts != nil {
		add("max_attempts", *patch.MaxAttempts)
	}
	if patch.PreferredTimes != nil {
		add("preferred_times", *patch.PreferredTimes)
	}
	if patch.ReservationID != nil {
		add("reservation_id", *patch.ReservationID)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}

	n, err := s.db.Exec(ctx,
		`UPDATE sniper_jobs SET `+strings.Join(set, ", ")+` WHERE id=$1`, args...)
	return n > 0, err
}

// IncrementPollCount atomically bumps poll_count by one.
func (s *Store) IncrementPollCount(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.Exec(ctx,
		`UPDATE sniper_jobs SET poll_count = poll_count + 1, updated_at = now() WHERE id=$1`, id)
	return n > 0, err
}

// ListPendingDue returns pending jobs whose scheduled_at has passed,
// earliest first.
func (s *Store) ListPendingDue(ctx context.Context, now time.Time) ([]snipe.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM sniper_jobs
WHERE status='pending' AND scheduled_at <= $1
ORDER BY scheduled_at`, now)
}

// ListJobs returns every job, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]snipe.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM sniper_jobs ORDER BY created_at DESC`)
}

func (s *Store) listJobs(ctx context.Context, sql string, args ...any) ([]snipe.Job, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []snipe.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ClaimNextDue atomically claims one pending, due job by flipping it to
// active. The UPDATE is conditional on status still being pending, so two
// workers racing on the same row see exactly one success; the loser
// retries selection until the due set drains.
func (s *Store) ClaimNextDue(ctx context.Context, now time.Time) (*snipe.Job, error) {
	for {
		var id int64
		err := s.db.QueryRow(ctx, `
SELECT id FROM sniper_jobs
WHERE status='pending' AND scheduled_at <= $1
ORDER BY scheduled_at LIMIT 1`, now).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		n, err := s.db.Exec(ctx, `
UPDATE sniper_jobs SET status='active', updated_at=now()
WHERE id=$1 AND status='pending'`, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue // another worker claimed it first
		}

		j, err := s.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		return &j, nil
	}
}

// CancelSiblingJobs cancels other non-terminal jobs for the same venue and
// date, so one booked table does not turn into two.
func (s *Store) CancelSiblingJobs(ctx context.Context, excludeID int64, venueSlug, date string) (int64, error) {
	return s.db.Exec(ctx, `
UPDATE sniper_jobs SET status='cancelled', updated_at=now()
WHERE id <> $1 AND venue_slug=$2 AND date=$3
  AND status IN ('pending','active')`, excludeID, venueSlug, date)
}

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

const reservationColumns = `id, platform, venue_id, restaurant_name, date, time, party_size,
confirmation_number, confirmation_token, status, notes, created_at, updated_at`

func scanReservation(row db.Row) (snipe.Reservation, error) {
	var r snipe.Reservation
	err := row.Scan(
		&r.ID, &r.Platform, &r.VenueID, &r.RestaurantName, &r.Date, &r.Time, &r.PartySize,
		&r.ConfirmationNumber, &r.ConfirmationToken, &r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snipe.Reservation{}, snipe.ErrNotFound
		}
		return snipe.Reservation{}, err
	}
	return r, nil
}

// AddReservation persists a reservation and returns its id. An empty
// status defaults to confirmed.
func (s *Store) AddReservation(ctx context.Context, r snipe.Reservation) (int64, error) {
	status := r.Status
	if status == "" {
		status = snipe.ReservationConfirmed
	}
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO reservations (platform, venue_id, restaurant_name, date, time, party_size,
	confirmation_number, confirmation_token, status, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id`,
		r.Platform, r.VenueID, r.RestaurantName, r.Date, r.Time, r.PartySize,
		r.ConfirmationNumber, r.ConfirmationToken, status, r.Notes,
	).Scan(&id)
	return id, err
}

func (s *Store) GetReservation(ctx context.Context, id int64) (snipe.Reservation, error) {
	return scanReservation(s.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
}

// ReservationFilters narrows ListReservations. Zero values are ignored.
type ReservationFilters struct {
	Platform string
	Status   string
	DateFrom string // YYYY-MM-DD inclusive
	DateTo   string // YYYY-MM-DD inclusive
}

func (s *Store) ListReservations(ctx context.Context, f ReservationFilters) ([]snipe.Reservation, error) {
	where := []string{"1=1"}
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.DateFrom != "" {
		add("date >= $%d", f.DateFrom)
	}
	if f.DateTo != "" {
		add("date <= $%d", f.DateTo)
	}

	rows, err := s.db.Query(ctx, `
SELECT `+reservationColumns+` FROM reservations
WHERE `+strings.Join(where, " AND ")+`
ORDER BY date DESC, time DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []snipe.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpcomingReservations lists confirmed reservations within the next days.
func (s *Store) UpcomingReservations(ctx context.Context, now time.Time, days int) ([]snipe.Reservation, error) {
	return s.ListReservations(ctx, ReservationFilters{
		Status:   snipe.ReservationConfirmed,
		DateFrom: now.Format("2006-01-02"),
		DateTo:   now.AddDate(0, 0, days).Format("2006-01-02"),
	})
}

func (s *Store) UpdateReservationStatus(ctx context.Context, id int64, status string, notes *string) (bool, error) {
	if notes != nil {
		n, err := s.db.Exec(ctx,
			`UPDATE reservations SET status=$2, notes=$3, updated_at=now() WHERE id=$1`, id, status, *notes)
		return n > 0, err
	}
	n, err := s.db.Exec(ctx,
		`UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	return n > 0, err
}

func (s *Store) DeleteReservation(ctx context.Context, id int64) (bool, error) {
	n, err := s.db.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	return n > 0, err
}

package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance events, the shift window, and terminal
// registrations in Postgres. It implements EventStore and ShiftConfigStore.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ExistsForIdentity reports a prior event for the same identity, floor,
// shift, and date.
func (r *Repository) ExistsForIdentity(ctx context.Context, nationalID string, floor int, shift Shift, date time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM attendance_events
		WHERE national_id = $1 AND floor = $2 AND shift = $3 AND event_date = $4
		LIMIT 1
	`, nationalID, floor, shift, date).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ExistsForCode reports a prior event for the same kind+code, floor, shift,
// and date. Only consulted for scans with no roster match.
func (r *Repository) ExistsForCode(ctx context.Context, kind CodeKind, rawCode string, floor int, shift Shift, date time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM attendance_events
		WHERE code_kind = $1 AND raw_code = $2 AND floor = $3 AND shift = $4 AND event_date = $5
		LIMIT 1
	`, kind, rawCode, floor, shift, date).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Insert writes a new event. A unique-index violation maps to
// ErrDuplicateEvent so a race lost to a concurrent scan reads as a duplicate,
// not a failure.
func (r *Repository) Insert(ctx context.Context, evt Event) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events
			(id, occurred_at, event_date, floor, shift, code_kind, raw_code, national_id, lookup)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, evt.ID, evt.OccurredAt, evt.Date, evt.Floor, evt.Shift, evt.CodeKind,
		evt.RawCode, evt.NationalID, evt.Lookup)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Event{}, ErrDuplicateEvent
		}
		return Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, occurred_at, event_date, floor, shift, code_kind, raw_code, national_id, lookup, created_at
		FROM attendance_events WHERE id = $1
	`, id)
	var evt Event
	err := row.Scan(&evt.ID, &evt.OccurredAt, &evt.Date, &evt.Floor, &evt.Shift,
		&evt.CodeKind, &evt.RawCode, &evt.NationalID, &evt.Lookup, &evt.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// CountForDate counts events on a calendar date; floor 0 counts all floors.
func (r *Repository) CountForDate(ctx context.Context, date time.Time, floor int) (int, error) {
	var n int
	var err error
	if floor > 0 {
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM attendance_events WHERE event_date = $1 AND floor = $2
		`, date, floor).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM attendance_events WHERE event_date = $1
		`, date).Scan(&n)
	}
	return n, err
}

// ActiveWindow returns the earliest shift window row, or nil when none
// exists. The TIME columns arrive from the pgx driver as "HH:MM:SS" text, so
// they are scanned as strings and parsed here.
func (r *Repository) ActiveWindow(ctx context.Context) (*ShiftWindow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT morning_start, morning_end, afternoon_start, afternoon_end
		FROM shift_windows
		ORDER BY id ASC
		LIMIT 1
	`)
	var ms, me, as, ae string
	if err := row.Scan(&ms, &me, &as, &ae); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	w := &ShiftWindow{}
	for _, b := range []struct {
		raw  string
		dest *int
	}{
		{ms, &w.MorningStart},
		{me, &w.MorningEnd},
		{as, &w.AfternoonStart},
		{ae, &w.AfternoonEnd},
	} {
		n, err := parseClock(b.raw)
		if err != nil {
			return nil, fmt.Errorf("shift window boundary %q: %w", b.raw, err)
		}
		*b.dest = n
	}
	return w, nil
}

// parseClock converts "HH:MM", "HH:MM:SS", or "HH:MM:SS.ffffff" to minutes
// since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return 0, errors.New("not a time of day")
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.New("not a time of day")
	}
	return h*60 + m, nil
}

// RegisterTerminal ensures a terminal record exists and notes its floor.
func (r *Repository) RegisterTerminal(ctx context.Context, terminalID string, floor int) error {
	if terminalID == "" {
		return errors.New("terminal id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO terminals (terminal_id, floor)
		VALUES ($1, $2)
		ON CONFLICT (terminal_id) DO UPDATE SET floor = EXCLUDED.floor, last_seen = NOW()
	`, terminalID, floor)
	return err
}

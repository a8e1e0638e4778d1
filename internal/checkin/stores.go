package checkin

import (
	"context"
	"errors"
	"time"

	"kiosk/internal/roster"
)

// LookupStatus records whether a scan resolved to a roster entry.
type LookupStatus string

const (
	LookupFound    LookupStatus = "FOUND"
	LookupNotFound LookupStatus = "NOT_FOUND"
)

// Event is one accepted check-in. Immutable once stored.
type Event struct {
	ID         string
	OccurredAt time.Time
	Date       time.Time // calendar day, midnight-truncated
	Floor      int
	Shift      Shift
	CodeKind   CodeKind
	RawCode    string
	NationalID *string // nil when the roster had no match
	Lookup     LookupStatus
	CreatedAt  time.Time
}

// ErrDuplicateEvent is returned by EventStore.Insert when the uniqueness
// backstop rejects a second event for the same identity-or-code, floor,
// shift, and date.
var ErrDuplicateEvent = errors.New("attendance event already recorded")

// EventStore persists attendance events.
type EventStore interface {
	ExistsForIdentity(ctx context.Context, nationalID string, floor int, shift Shift, date time.Time) (bool, error)
	ExistsForCode(ctx context.Context, kind CodeKind, rawCode string, floor int, shift Shift, date time.Time) (bool, error)
	Insert(ctx context.Context, evt Event) (Event, error)
	CountForDate(ctx context.Context, date time.Time, floor int) (int, error)
}

// RosterStore resolves scanned codes to identities. Read-only.
type RosterStore interface {
	FindByNationalID(ctx context.Context, nationalID string) (*roster.Identity, error)
	FindByEnrollmentCode(ctx context.Context, code string) (*roster.Identity, error)
}

// ShiftConfigStore reads the externally administered shift window. A nil
// window without error means no configuration exists.
type ShiftConfigStore interface {
	ActiveWindow(ctx context.Context) (*ShiftWindow, error)
}

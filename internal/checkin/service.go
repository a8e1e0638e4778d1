package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/roster"
)

// ErrInvalidFloor rejects scans from floors outside the configured set.
var ErrInvalidFloor = errors.New("floor is not a kiosk location")

// Result is the outcome of one scan.
type Result struct {
	Accepted      bool
	Duplicate     bool
	Shift         Shift
	Time          time.Time
	IdentityFound bool
	Identity      *roster.Summary
	Message       string
	EventID       string
}

// Service orchestrates a scan: classify, resolve shift, look up the roster,
// consult the duplicate guard, and record the event.
type Service struct {
	roster         RosterStore
	events         EventStore
	shifts         ShiftConfigStore
	floors         map[int]struct{}
	fallbackCutoff int
	now            func() time.Time
}

// NewService creates a service. floors is the allowed kiosk set and
// fallbackCutoff (minutes since midnight) applies when no shift window row
// exists; zero selects 13:30.
func NewService(rosterStore RosterStore, events EventStore, shifts ShiftConfigStore, floors []int, fallbackCutoff int) *Service {
	fs := make(map[int]struct{}, len(floors))
	for _, f := range floors {
		fs[f] = struct{}{}
	}
	if fallbackCutoff <= 0 {
		fallbackCutoff = 13*60 + 30
	}
	return &Service{
		roster:         rosterStore,
		events:         events,
		shifts:         shifts,
		floors:         fs,
		fallbackCutoff: fallbackCutoff,
		now:            time.Now,
	}
}

// RegisterScan handles one scan from a floor terminal. Rejections (bad floor,
// bad code, duplicate) never write; the returned error is reserved for
// persistence failures.
func (s *Service) RegisterScan(ctx context.Context, floor int, rawCode string) (Result, error) {
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if _, ok := s.floors[floor]; !ok {
		return Result{}, ErrInvalidFloor
	}

	rawCode = strings.TrimSpace(rawCode)
	kind := Classify(rawCode)
	if kind == KindInvalid {
		return Result{
			Time:    now,
			Message: "invalid code: national ID has 8 digits, enrollment code has 10",
		}, nil
	}

	window, err := s.shifts.ActiveWindow(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("shift window: %w", err)
	}
	shift := ResolveShift(now, window, s.fallbackCutoff)

	var ident *roster.Identity
	switch kind {
	case KindNationalID:
		ident, err = s.roster.FindByNationalID(ctx, rawCode)
	case KindEnrollmentCode:
		ident, err = s.roster.FindByEnrollmentCode(ctx, rawCode)
	}
	if err != nil {
		return Result{}, fmt.Errorf("roster lookup: %w", err)
	}

	var nationalID *string
	lookup := LookupNotFound
	if ident != nil {
		id := roster.PadNationalID(ident.NationalID)
		nationalID = &id
		lookup = LookupFound
	}

	dup, err := s.alreadyRegistered(ctx, nationalID, kind, rawCode, floor, shift, date)
	if err != nil {
		return Result{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return duplicateResult(shift, now), nil
	}

	evt := Event{
		ID:         uuid.NewString(),
		OccurredAt: now,
		Date:       date,
		Floor:      floor,
		Shift:      shift,
		CodeKind:   kind,
		RawCode:    rawCode,
		NationalID: nationalID,
		Lookup:     lookup,
	}
	stored, err := s.events.Insert(ctx, evt)
	if errors.Is(err, ErrDuplicateEvent) {
		// Lost a race with a concurrent scan; the unique index decided.
		return duplicateResult(shift, now), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("record event: %w", err)
	}

	res := Result{
		Accepted: true,
		Shift:    shift,
		Time:     now,
		EventID:  stored.ID,
		Message:  "check-in recorded",
	}
	if ident != nil {
		res.IdentityFound = true
		res.Identity = &roster.Summary{
			FullName: ident.FullName,
			School:   ident.School,
			Faculty:  ident.Faculty,
		}
	} else {
		res.Message = "student not in roster, check-in recorded"
	}
	return res, nil
}

// alreadyRegistered is the duplicate guard. A resolved identity dedups by
// national ID so a student alternating between two valid codes is still one
// person; unresolved scans fall back to the exact kind+code.
func (s *Service) alreadyRegistered(ctx context.Context, nationalID *string, kind CodeKind, rawCode string, floor int, shift Shift, date time.Time) (bool, error) {
	if nationalID != nil {
		return s.events.ExistsForIdentity(ctx, *nationalID, floor, shift, date)
	}
	return s.events.ExistsForCode(ctx, kind, rawCode, floor, shift, date)
}

func duplicateResult(shift Shift, now time.Time) Result {
	return Result{
		Duplicate: true,
		Shift:     shift,
		Time:      now,
		Message:   "already checked in on this floor for this shift",
	}
}

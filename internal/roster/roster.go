package roster

import (
	"strings"
	"time"
)

// Status is a student's administrative condition.
type Status string

const (
	StatusRegular   Status = "REGULAR"
	StatusGraduated Status = "GRADUATED"
)

// ParseStatus validates an externally supplied status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusRegular:
		return StatusRegular, true
	case StatusGraduated:
		return StatusGraduated, true
	}
	return "", false
}

// Identity is one roster entry, keyed by national ID. National IDs are 8
// digits and enrollment codes 10 digits, both globally unique.
type Identity struct {
	NationalID         string
	EnrollmentCode     string
	FullName           string
	School             string
	Faculty            string
	InstitutionalEmail *string
	PersonalEmail      *string
	Semester           *int
	Status             Status
	CreatedAt          time.Time
}

// Summary is the subset of an identity shown on the kiosk screen after a
// successful check-in.
type Summary struct {
	FullName string `json:"name"`
	School   string `json:"school"`
	Faculty  string `json:"faculty"`
}

// PadNationalID left-pads an all-digit national ID to 8 characters. Legacy
// imports stored some IDs without leading zeros.
func PadNationalID(id string) string {
	if len(id) >= 8 {
		return id
	}
	return strings.Repeat("0", 8-len(id)) + id
}

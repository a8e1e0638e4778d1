package checkin

import "strings"

// CodeKind classifies a raw scanned string.
type CodeKind string

const (
	KindNationalID     CodeKind = "NATIONAL_ID"
	KindEnrollmentCode CodeKind = "ENROLLMENT_CODE"
	KindInvalid        CodeKind = "INVALID"
)

// Classify maps a scanned string to its code kind: exactly 8 digits is a
// national ID, exactly 10 an enrollment code, anything else invalid. Purely
// syntactic, so bad input is rejected before any store access.
func Classify(code string) CodeKind {
	code = strings.TrimSpace(code)
	if !allDigits(code) {
		return KindInvalid
	}
	switch len(code) {
	case 8:
		return KindNationalID
	case 10:
		return KindEnrollmentCode
	}
	return KindInvalid
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

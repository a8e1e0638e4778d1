package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxErrorSamples bounds the error detail returned for a single import run.
const maxErrorSamples = 10

// ImportStore is the persistence surface the importer needs.
type ImportStore interface {
	ExistsByNationalIDOrCode(ctx context.Context, nationalID, code string) (bool, error)
	// Insert reports false when the entry already existed, e.g. when a
	// concurrent import won the insert race.
	Insert(ctx context.Context, ident Identity) (bool, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Accepted       bool     `json:"accepted"`
	Inserted       int      `json:"inserted"`
	AlreadyExisted int      `json:"already_existed"`
	Errors         int      `json:"errors"`
	ErrorSamples   []string `json:"error_samples,omitempty"`
	MissingColumns []string `json:"missing_required_columns,omitempty"`
}

// Importer reads roster spreadsheets and inserts previously-unseen entries.
// Existing entries are never updated; re-importing the same file is a no-op.
type Importer struct {
	store   ImportStore
	aliases map[string][]string
}

// NewImporter creates an importer. Overrides replace the default alias list
// for the fields they name; other fields keep the defaults, so a partial
// table never forgets a required column.
func NewImporter(store ImportStore, overrides map[string][]string) *Importer {
	aliases := DefaultAliases()
	for field, names := range overrides {
		aliases[field] = names
	}
	return &Importer{store: store, aliases: aliases}
}

// Import reads an .xlsx workbook from r and inserts each valid, unseen row.
// A malformed row is counted and skipped; only missing required columns abort
// the run, before any row is processed. Each insert commits on its own, so a
// mid-run failure keeps the rows already inserted.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return ImportResult{}, errors.New("workbook has no header row")
	}

	headers := rows[0]
	cols, missing := ResolveColumns(headers, im.aliases)
	if len(missing) > 0 {
		return ImportResult{
			MissingColumns: missing,
			ErrorSamples: []string{fmt.Sprintf(
				"missing required columns %v, headers found: %v", missing, headers)},
		}, nil
	}

	res := ImportResult{Accepted: true}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		if blankRow(row) {
			continue
		}

		ident, rowErr := buildIdentity(row, cols)
		if rowErr != nil {
			res.addError(fmt.Sprintf("row %d: %v", rowNum, rowErr))
			continue
		}

		exists, err := im.store.ExistsByNationalIDOrCode(ctx, ident.NationalID, ident.EnrollmentCode)
		if err != nil {
			return ImportResult{}, fmt.Errorf("row %d: existence check: %w", rowNum, err)
		}
		if exists {
			res.AlreadyExisted++
			continue
		}

		inserted, err := im.store.Insert(ctx, ident)
		if err != nil {
			res.addError(fmt.Sprintf("row %d: insert dni=%s: %v", rowNum, ident.NationalID, err))
			continue
		}
		if !inserted {
			res.AlreadyExisted++
			continue
		}
		res.Inserted++
	}
	return res, nil
}

func (r *ImportResult) addError(sample string) {
	r.Errors++
	if len(r.ErrorSamples) < maxErrorSamples {
		r.ErrorSamples = append(r.ErrorSamples, sample)
	}
}

// buildIdentity normalizes and validates one spreadsheet row.
func buildIdentity(row []string, cols map[string]int) (Identity, error) {
	cell := func(field string) *string {
		idx, ok := cols[field]
		if !ok || idx >= len(row) {
			return nil
		}
		return cleanCell(row[idx])
	}

	nationalID, err := normalizeCode(cell(FieldNationalID), 8)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %v", FieldNationalID, err)
	}
	code, err := normalizeCode(cell(FieldEnrollmentCode), 10)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %v", FieldEnrollmentCode, err)
	}

	name := cell(FieldFullName)
	school := cell(FieldSchool)
	faculty := cell(FieldFaculty)
	if name == nil || school == nil || faculty == nil {
		return Identity{}, errors.New("required fields are blank")
	}

	return Identity{
		NationalID:         nationalID,
		EnrollmentCode:     code,
		FullName:           *name,
		School:             *school,
		Faculty:            *faculty,
		InstitutionalEmail: cell(FieldInstitutionalEmail),
		PersonalEmail:      cell(FieldPersonalEmail),
		Semester:           parseSemester(cell(FieldSemester)),
		Status:             StatusRegular,
	}, nil
}

// cleanCell trims a cell and treats blank and pandas-style "nan" as absent.
func cleanCell(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	return &s
}

// normalizeCode strips non-digit characters and left-pads the result to
// width. Over-length input is rejected rather than truncated: a garbled scan
// column must not silently collide with a real ID.
func normalizeCode(s *string, width int) (string, error) {
	if s == nil {
		return "", errors.New("blank")
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, *s)
	if digits == "" {
		return "", fmt.Errorf("%q has no digits", *s)
	}
	if len(digits) > width {
		return "", fmt.Errorf("%q has more than %d digits", *s, width)
	}
	return strings.Repeat("0", width-len(digits)) + digits, nil
}

// parseSemester accepts integers 1-10; anything else normalizes to absent.
func parseSemester(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil || n < 1 || n > 10 {
		return nil
	}
	return &n
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

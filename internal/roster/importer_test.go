package roster_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"kiosk/internal/roster"
)

// storeFake mirrors the roster table's two unique keys in memory.
type storeFake struct {
	mu      sync.Mutex
	entries []roster.Identity
}

func (s *storeFake) ExistsByNationalIDOrCode(_ context.Context, nationalID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.NationalID == nationalID || e.EnrollmentCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *storeFake) Insert(_ context.Context, ident roster.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.NationalID == ident.NationalID || e.EnrollmentCode == ident.EnrollmentCode {
			return false, nil
		}
	}
	s.entries = append(s.entries, ident)
	return true, nil
}

// sheet builds an in-memory .xlsx with the given header row and data rows.
func sheet(t *testing.T, rows ...[]string) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	name := f.GetSheetName(0)
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

var fullHeaders = []string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS Y NOMBRES", "ESCUELA", "FACULTAD", "SEMESTRE"}

func TestImport_InsertsNewEntries(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"87654321", "2021004567", "QUISPE MAMANI, ROSA", "Sistemas", "Ingenieria", "5"},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res)
	}
	if res.Inserted != 1 || res.AlreadyExisted != 0 || res.Errors != 0 {
		t.Fatalf("counts = %+v", res)
	}

	ident := store.entries[0]
	if ident.NationalID != "87654321" || ident.EnrollmentCode != "2021004567" {
		t.Errorf("stored keys = %q/%q", ident.NationalID, ident.EnrollmentCode)
	}
	if ident.Status != roster.StatusRegular {
		t.Errorf("status = %q, want REGULAR", ident.Status)
	}
	if ident.Semester == nil || *ident.Semester != 5 {
		t.Errorf("semester = %v, want 5", ident.Semester)
	}
}

func TestImport_ReimportCountsAsExisting(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)
	file := func() io.Reader {
		return sheet(t,
			fullHeaders,
			[]string{"87654321", "2021004567", "QUISPE MAMANI, ROSA", "Sistemas", "Ingenieria", ""},
		)
	}

	if _, err := im.Import(context.Background(), file()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	res, err := im.Import(context.Background(), file())
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if res.Inserted != 0 || res.AlreadyExisted != 1 || res.Errors != 0 {
		t.Fatalf("counts = %+v", res)
	}
	if len(store.entries) != 1 {
		t.Errorf("expected 1 stored entry, got %d", len(store.entries))
	}
}

func TestImport_MissingFacultyColumnAborts(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		[]string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS_NOMBRES", "ESCUELA"},
		[]string{"87654321", "2021004567", "QUISPE MAMANI, ROSA", "Sistemas"},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Accepted {
		t.Error("expected accepted=false")
	}
	found := false
	for _, m := range res.MissingColumns {
		if m == "facultad" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing columns = %v, want facultad listed", res.MissingColumns)
	}
	if len(store.entries) != 0 {
		t.Error("expected zero inserts when a required column is missing")
	}
}

func TestImport_PadsShortCodes(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"1234567", "123", "HUAMAN ROJAS, LUIS", "Derecho", "Derecho", ""},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("counts = %+v", res)
	}
	ident := store.entries[0]
	if ident.NationalID != "01234567" {
		t.Errorf("national id = %q, want 01234567", ident.NationalID)
	}
	if ident.EnrollmentCode != "0000000123" {
		t.Errorf("enrollment code = %q, want 0000000123", ident.EnrollmentCode)
	}
}

func TestImport_RejectsOverlengthCodes(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"123456789", "20210045671", "HUAMAN ROJAS, LUIS", "Derecho", "Derecho", ""},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 0 || res.Errors != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if len(res.ErrorSamples) != 1 {
		t.Fatalf("expected one error sample, got %v", res.ErrorSamples)
	}
}

func TestImport_RowErrorsAreIsolated(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"", "2021000001", "SIN DNI", "Sistemas", "Ingenieria", ""},
		[]string{"11112222", "2021000002", "PEREZ, ANA", "Sistemas", "Ingenieria", "2"},
		[]string{"33334444", "2021000003", "", "Sistemas", "Ingenieria", ""},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 1 || res.Errors != 2 {
		t.Fatalf("counts = %+v", res)
	}
	if store.entries[0].NationalID != "11112222" {
		t.Errorf("wrong row inserted: %+v", store.entries[0])
	}
}

func TestImport_SemesterOutOfRangeIsAbsentNotError(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"11112222", "2021000002", "PEREZ, ANA", "Sistemas", "Ingenieria", "15"},
		[]string{"33334444", "2021000003", "LOPE VEGA, JUAN", "Sistemas", "Ingenieria", "x"},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Inserted != 2 || res.Errors != 0 {
		t.Fatalf("counts = %+v", res)
	}
	for _, e := range store.entries {
		if e.Semester != nil {
			t.Errorf("semester for %s = %v, want absent", e.NationalID, *e.Semester)
		}
	}
}

func TestImport_ErrorSamplesBounded(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	rows := [][]string{fullHeaders}
	for i := 0; i < 15; i++ {
		rows = append(rows, []string{"", fmt.Sprintf("20210000%02d", i), "SIN DNI", "Sistemas", "Ingenieria", ""})
	}
	res, err := im.Import(context.Background(), sheet(t, rows...))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Errors != 15 {
		t.Errorf("errors = %d, want 15", res.Errors)
	}
	if len(res.ErrorSamples) != 10 {
		t.Errorf("samples = %d, want capped at 10", len(res.ErrorSamples))
	}
}

func TestImport_NanCellsTreatedAsBlank(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, nil)

	res, err := im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"11112222", "2021000002", "PEREZ, ANA", "nan", "Ingenieria", ""},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Errors != 1 || res.Inserted != 0 {
		t.Fatalf("counts = %+v", res)
	}
	if !strings.Contains(res.ErrorSamples[0], "required") {
		t.Errorf("sample = %q", res.ErrorSamples[0])
	}
}

func TestImport_AliasOverridesReplaceOneField(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, map[string][]string{
		roster.FieldFaculty: {"UNIDAD ACADEMICA"},
	})

	headers := []string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS Y NOMBRES", "ESCUELA", "UNIDAD ACADEMICA", "SEMESTRE"}
	res, err := im.Import(context.Background(), sheet(t,
		headers,
		[]string{"87654321", "2021004567", "QUISPE MAMANI, ROSA", "Sistemas", "Ingenieria", "5"},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected accepted with overridden header, got %+v", res)
	}
	if res.Inserted != 1 {
		t.Fatalf("counts = %+v", res)
	}
	if got := store.entries[0].Faculty; got != "Ingenieria" {
		t.Errorf("faculty = %q, want Ingenieria", got)
	}

	// The overridden list no longer matches the stock header.
	res, err = im.Import(context.Background(), sheet(t,
		fullHeaders,
		[]string{"11223344", "2022009876", "HUAMAN TORRES, LUIS", "Civil", "Ingenieria", "3"},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Accepted {
		t.Fatalf("expected FACULTAD header to miss after override, got %+v", res)
	}
	if len(res.MissingColumns) != 1 || res.MissingColumns[0] != roster.FieldFaculty {
		t.Errorf("missing columns = %v", res.MissingColumns)
	}
}

func TestImport_PartialOverrideKeepsOtherDefaults(t *testing.T) {
	store := &storeFake{}
	im := roster.NewImporter(store, map[string][]string{
		roster.FieldFaculty: {"FACULTY"},
	})

	headers := []string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS Y NOMBRES", "ESCUELA", "FACULTY", "SEMESTRE"}
	res, err := im.Import(context.Background(), sheet(t,
		headers,
		[]string{"87654321", "2021004567", "QUISPE MAMANI, ROSA", "Sistemas", "Engineering", ""},
	))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !res.Accepted || res.Inserted != 1 {
		t.Fatalf("expected the non-overridden fields to keep matching, got %+v", res)
	}
}

package roster_test

import (
	"testing"

	"kiosk/internal/roster"
)

func TestResolveColumns_AliasTolerance(t *testing.T) {
	variants := [][]string{
		{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS Y NOMBRES", "ESCUELA", "FACULTAD"},
		{"dni", "codigo de matricula", "apellidos_nombres", "escuela", "facultad"},
		{"Dni", "Codigo_Matricula", "Apellidos y Nombres", "Escuela", "Facultad"},
	}
	for _, headers := range variants {
		cols, missing := roster.ResolveColumns(headers, roster.DefaultAliases())
		if len(missing) != 0 {
			t.Errorf("headers %v: unexpected missing %v", headers, missing)
			continue
		}
		if cols[roster.FieldFullName] != 2 {
			t.Errorf("headers %v: name column = %d, want 2", headers, cols[roster.FieldFullName])
		}
		if cols[roster.FieldNationalID] != 0 {
			t.Errorf("headers %v: dni column = %d, want 0", headers, cols[roster.FieldNationalID])
		}
	}
}

func TestResolveColumns_MissingRequired(t *testing.T) {
	headers := []string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS_NOMBRES", "ESCUELA"}
	_, missing := roster.ResolveColumns(headers, roster.DefaultAliases())
	if len(missing) != 1 || missing[0] != roster.FieldFaculty {
		t.Errorf("missing = %v, want [facultad]", missing)
	}
}

func TestResolveColumns_OptionalFieldsNotRequired(t *testing.T) {
	headers := []string{"DNI", "CODIGO_DE_MATRICULA", "APELLIDOS_NOMBRES", "ESCUELA", "FACULTAD"}
	cols, missing := roster.ResolveColumns(headers, roster.DefaultAliases())
	if len(missing) != 0 {
		t.Fatalf("unexpected missing %v", missing)
	}
	if _, ok := cols[roster.FieldSemester]; ok {
		t.Error("semester should be unresolved when absent, not defaulted")
	}
}

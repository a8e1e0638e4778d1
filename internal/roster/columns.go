package roster

import "strings"

// Canonical spreadsheet fields. The names follow the registrar's exports;
// they double as the identifiers reported back for missing columns.
const (
	FieldNationalID         = "dni"
	FieldEnrollmentCode     = "codigo_matricula"
	FieldFullName           = "apellidos_nombres"
	FieldSchool             = "escuela"
	FieldFaculty            = "facultad"
	FieldInstitutionalEmail = "correo_institucional"
	FieldPersonalEmail      = "correo_personal"
	FieldSemester           = "semestre"
)

// RequiredFields must all resolve to a header or the import aborts.
var RequiredFields = []string{
	FieldNationalID,
	FieldEnrollmentCode,
	FieldFullName,
	FieldSchool,
	FieldFaculty,
}

// DefaultAliases maps each canonical field to the header spellings seen in
// registrar exports over the years. Matching is case-insensitive.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		FieldFullName:           {"APELLIDOS_NOMBRES", "APELLIDOS Y NOMBRES", "APELLIDOS Y NOMBRE", "apellidos_y_nombre", "apellidos_nombres"},
		FieldNationalID:         {"DNI", "dni"},
		FieldEnrollmentCode:     {"CODIGO_DE_MATRICULA", "CODIGO DE MATRICULA", "codigo_de_matricula", "codigo_matricula"},
		FieldInstitutionalEmail: {"CORREO_INSTITUCIONAL", "correo_institucional"},
		FieldPersonalEmail:      {"CORREO_PERSONAL", "correo_personal"},
		FieldSchool:             {"ESCUELA", "escuela"},
		FieldFaculty:            {"FACULTAD", "facultad"},
		FieldSemester:           {"SEMESTRE", "semestre"},
	}
}

// ResolveColumns maps observed header names to canonical fields. It returns
// the column index per resolved field and the required fields that matched no
// header. Pure; the caller decides whether missing fields abort the import.
func ResolveColumns(headers []string, aliases map[string][]string) (map[string]int, []string) {
	byLower := make(map[string]int, len(headers))
	for i, h := range headers {
		byLower[strings.ToLower(strings.TrimSpace(h))] = i
	}

	resolved := make(map[string]int)
	for field, names := range aliases {
		for _, name := range names {
			if idx, ok := byLower[strings.ToLower(name)]; ok {
				resolved[field] = idx
				break
			}
		}
	}

	var missing []string
	for _, field := range RequiredFields {
		if _, ok := resolved[field]; !ok {
			missing = append(missing, field)
		}
	}
	return resolved, missing
}

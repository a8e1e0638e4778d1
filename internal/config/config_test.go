package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"kiosk/internal/config"
)

func TestLoad_ColumnAliasesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	body := `{"facultad": ["UNIDAD ACADEMICA"], "escuela": ["PROGRAMA", "ESCUELA PROFESIONAL"]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	t.Setenv("ROSTER_COLUMN_ALIASES_FILE", path)

	cfg := config.Load()
	if got := cfg.ColumnAliases["facultad"]; len(got) != 1 || got[0] != "UNIDAD ACADEMICA" {
		t.Errorf("facultad aliases = %v", got)
	}
	if got := cfg.ColumnAliases["escuela"]; len(got) != 2 {
		t.Errorf("escuela aliases = %v", got)
	}
}

func TestLoad_ColumnAliasesUnsetIsNil(t *testing.T) {
	t.Setenv("ROSTER_COLUMN_ALIASES_FILE", "")

	cfg := config.Load()
	if cfg.ColumnAliases != nil {
		t.Errorf("expected nil aliases without a file, got %v", cfg.ColumnAliases)
	}
}

func TestLoad_ColumnAliasesBadFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write alias file: %v", err)
	}
	t.Setenv("ROSTER_COLUMN_ALIASES_FILE", path)

	cfg := config.Load()
	if cfg.ColumnAliases != nil {
		t.Errorf("expected nil aliases for an unreadable file, got %v", cfg.ColumnAliases)
	}
}

package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists roster entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const identityColumns = `national_id, enrollment_code, full_name, school, faculty,
	institutional_email, personal_email, semester, status, created_at`

func scanIdentity(row *sql.Row) (*Identity, error) {
	var ident Identity
	err := row.Scan(&ident.NationalID, &ident.EnrollmentCode, &ident.FullName,
		&ident.School, &ident.Faculty, &ident.InstitutionalEmail,
		&ident.PersonalEmail, &ident.Semester, &ident.Status, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

// FindByNationalID returns the entry for a national ID, or nil.
func (r *Repository) FindByNationalID(ctx context.Context, nationalID string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM roster_entries WHERE national_id = $1
	`, nationalID)
	return scanIdentity(row)
}

// FindByEnrollmentCode returns the entry for an enrollment code, or nil.
func (r *Repository) FindByEnrollmentCode(ctx context.Context, code string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM roster_entries WHERE enrollment_code = $1
	`, code)
	return scanIdentity(row)
}

// ExistsByNationalIDOrCode reports whether any entry already claims the ID or
// the code.
func (r *Repository) ExistsByNationalIDOrCode(ctx context.Context, nationalID, code string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM roster_entries
		WHERE national_id = $1 OR enrollment_code = $2
		LIMIT 1
	`, nationalID, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Insert creates a new entry. It reports false without error when a
// concurrent import already inserted the same ID or code; the unique
// constraints decide, not the caller's earlier existence check.
func (r *Repository) Insert(ctx context.Context, ident Identity) (bool, error) {
	if ident.Status == "" {
		ident.Status = StatusRegular
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO roster_entries
			(national_id, enrollment_code, full_name, school, faculty,
			 institutional_email, personal_email, semester, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT DO NOTHING
	`, ident.NationalID, ident.EnrollmentCode, ident.FullName, ident.School,
		ident.Faculty, ident.InstitutionalEmail, ident.PersonalEmail,
		ident.Semester, ident.Status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus changes a student's condition. Reports false when the national
// ID is unknown.
func (r *Repository) UpdateStatus(ctx context.Context, nationalID string, status Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE roster_entries SET status = $2 WHERE national_id = $1
	`, nationalID, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Search finds a single entry by national ID, enrollment code, or a name
// fragment, in that order of intent.
func (r *Repository) Search(ctx context.Context, q string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM roster_entries
		WHERE national_id = $1 OR enrollment_code = $1 OR full_name ILIKE '%' || $1 || '%'
		LIMIT 1
	`, q)
	return scanIdentity(row)
}

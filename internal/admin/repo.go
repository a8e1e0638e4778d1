package admin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// User is an administrator account. Password hashes never leave this package.
type User struct {
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrUserExists is returned when creating a user whose username is taken.
var ErrUserExists = errors.New("admin user already exists")

// Repository persists admin users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new admin user.
func (r *Repository) Create(ctx context.Context, username string, email *string, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (username, email, password_hash)
		VALUES ($1, $2, $3)
	`, username, email, passwordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

// Credentials returns the stored hash and active flag for a username, or
// (nil values, no error) when the user does not exist.
func (r *Repository) Credentials(ctx context.Context, username string) (hash string, active bool, found bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT password_hash, active FROM admin_users WHERE username = $1
	`, username).Scan(&hash, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, err
	}
	return hash, active, true, nil
}

// List returns all admin users, oldest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT username, email, active, created_at
		FROM admin_users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Username, &u.Email, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetActive toggles a user. Reports false for an unknown username.
func (r *Repository) SetActive(ctx context.Context, username string, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_users SET active = $2 WHERE username = $1
	`, username, active)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

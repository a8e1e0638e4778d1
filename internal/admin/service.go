package admin

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown users, inactive users, and wrong
// passwords alike, so login responses leak nothing.
var ErrInvalidCredentials = errors.New("invalid credentials")

// masterUser is the account checked by the kiosk-unlock verify endpoint.
const masterUser = "admin"

// Service wraps admin-user operations with password hashing.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateUser hashes the password and stores a new active admin.
func (s *Service) CreateUser(ctx context.Context, username string, email *string, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, username, email, string(hash))
}

// Login checks a username/password pair against the stored hash.
func (s *Service) Login(ctx context.Context, username, password string) error {
	hash, active, found, err := s.repo.Credentials(ctx, username)
	if err != nil {
		return err
	}
	if !found || !active {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// VerifyMasterPassword checks the master account's password. Used by kiosk
// screens to leave locked floor mode; no session is required or created.
func (s *Service) VerifyMasterPassword(ctx context.Context, password string) (bool, error) {
	err := s.Login(ctx, masterUser, password)
	if errors.Is(err, ErrInvalidCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all admin users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// SetActive toggles an account.
func (s *Service) SetActive(ctx context.Context, username string, active bool) (bool, error) {
	return s.repo.SetActive(ctx, username, active)
}

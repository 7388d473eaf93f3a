// Package operator implements registration and login for the law-firm staff
// accounts that operate the intake service.
package operator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/matiasleandrokruk/iris/pkg/auth"
)

// ErrInvalidCredentials is returned by Login when email or password is
// incorrect. A single error for both cases avoids leaking whether an email
// exists.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailAlreadyExists is returned by Register when the email is taken.
var ErrEmailAlreadyExists = errors.New("email already registered")

// Roles an operator account can hold.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// RegisterInput holds the data needed to create an operator account.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned after successful Register or Login. Token is a
// signed JWT carrying the operator ID and role.
type AuthResult struct {
	Token      string
	OperatorID string
	Role       string
}

// Service defines the operator account operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
}

type service struct {
	db *sql.DB
}

// NewService creates a Service backed by the provided DB.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

// Register creates an operator account and returns a JWT. The password is
// hashed with bcrypt before storage; plaintext is never stored.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = RoleOperator
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO operator (id, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, strings.ToLower(input.Email), hash, role, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	token, err := pkgauth.GenerateJWT(id, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, OperatorID: id, Role: role}, nil
}

// Login verifies credentials and returns a JWT.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var (
		id   string
		hash string
		role string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash, role FROM operator WHERE email = ?`,
		strings.ToLower(input.Email)).Scan(&id, &hash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up operator: %w", err)
	}

	if !pkgauth.VerifyPassword(hash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := pkgauth.GenerateJWT(id, role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, OperatorID: id, Role: role}, nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. modernc.org/sqlite surfaces it in the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAdminUnauthorized indicates a failed admin login attempt.
	ErrAdminUnauthorized = errors.New("auth: admin credentials rejected")

	errMissingAdminEmail = errors.New("auth: admin email required")
	errMissingAdminHash  = errors.New("auth: admin password hash required")
)

// AdminGate verifies the single configured admin principal. Credentials are
// supplied through configuration, never compiled in.
type AdminGate struct {
	email        string
	passwordHash []byte
}

// NewAdminGate constructs the gate from a configured email and bcrypt hash.
func NewAdminGate(email, passwordHash string) (*AdminGate, error) {
	trimmedEmail := strings.ToLower(strings.TrimSpace(email))
	if trimmedEmail == "" {
		return nil, errMissingAdminEmail
	}
	trimmedHash := strings.TrimSpace(passwordHash)
	if trimmedHash == "" {
		return nil, errMissingAdminHash
	}
	if _, err := bcrypt.Cost([]byte(trimmedHash)); err != nil {
		return nil, err
	}
	return &AdminGate{
		email:        trimmedEmail,
		passwordHash: []byte(trimmedHash),
	}, nil
}

// Verify checks a submitted email/password pair against the configured
// principal. Both inputs must match; the error never says which failed.
func (g *AdminGate) Verify(email, password string) error {
	submitted := strings.ToLower(strings.TrimSpace(email))
	emailMatches := subtle.ConstantTimeCompare([]byte(submitted), []byte(g.email)) == 1

	// Always run the bcrypt comparison so timing does not leak whether
	// the email matched.
	hashErr := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password))

	if !emailMatches || hashErr != nil {
		return ErrAdminUnauthorized
	}
	return nil
}

// Subject returns the principal name carried in admin tokens.
func (g *AdminGate) Subject() string {
	return g.email
}

package identity

import (
	"errors"
	"time"
)

// Actor is an authenticated dashboard account.
type Actor struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"display_name"`
	PasswordHash     string     `json:"-"`
	IsActive         bool       `json:"is_active"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Confirmed reports whether the account's email address has been verified.
func (a Actor) Confirmed() bool {
	return a.EmailConfirmedAt != nil
}

var (
	// ErrEmailTaken indicates a sign-up against an existing address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrTokenInvalid indicates an unknown or expired reset/confirmation token.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrAlreadyConfirmed indicates a redundant confirmation attempt.
	ErrAlreadyConfirmed = errors.New("email already confirmed")
)

package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

const (
	resetTokenTTL        = time.Hour
	confirmationTokenTTL = 48 * time.Hour
)

// Repository defines persistence operations for the identity module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Actor, error)
	FindByID(ctx context.Context, id int64) (*Actor, error)
	Create(ctx context.Context, actor Actor) (*Actor, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	MarkConfirmed(ctx context.Context, id int64, at time.Time) error

	CreateToken(ctx context.Context, actorID int64, token, purpose string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, token, purpose string) (int64, error)

	CreateSession(ctx context.Context, id string, actorID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Mailer delivers account lifecycle mail, typically by enqueueing a job.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
	SendConfirmation(ctx context.Context, email, token string) error
}

const (
	tokenPurposeReset   = "password_reset"
	tokenPurposeConfirm = "email_confirmation"
)

// Service wraps account business rules.
type Service struct {
	repo   Repository
	mailer Mailer
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, mailer Mailer) *Service {
	return &Service{repo: repo, mailer: mailer, now: time.Now}
}

// Authenticate validates email/password credentials. Inactive accounts and
// unknown addresses fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Actor, error) {
	actor, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !actor.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return actor, nil
}

// SignUp registers a new account and sends the confirmation token.
func (s *Service) SignUp(ctx context.Context, email, displayName, password string) (*Actor, error) {
	email = normalizeEmail(email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	actor, err := s.repo.Create(ctx, Actor{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.issueConfirmation(ctx, actor); err != nil {
		return actor, err
	}
	return actor, nil
}

// RequestPasswordReset issues a reset token. Unknown addresses are silently
// accepted so the endpoint does not leak which emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	actor, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil
	}
	token := uuid.NewString()
	if err := s.repo.CreateToken(ctx, actor.ID, token, tokenPurposeReset, s.now().Add(resetTokenTTL)); err != nil {
		return err
	}
	if s.mailer != nil {
		return s.mailer.SendPasswordReset(ctx, actor.Email, token)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	actorID, err := s.repo.ConsumeToken(ctx, token, tokenPurposeReset)
	if err != nil {
		return ErrTokenInvalid
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, actorID, string(hash))
}

// UpdatePassword changes the password of a logged-in actor after verifying
// the current one.
func (s *Service) UpdatePassword(ctx context.Context, actorID int64, current, next string) error {
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		return shared.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(actor.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, actorID, string(hash))
}

// ConfirmEmail consumes a confirmation token.
func (s *Service) ConfirmEmail(ctx context.Context, token string) error {
	actorID, err := s.repo.ConsumeToken(ctx, token, tokenPurposeConfirm)
	if err != nil {
		return ErrTokenInvalid
	}
	return s.repo.MarkConfirmed(ctx, actorID, s.now())
}

// ResendConfirmation issues a fresh confirmation token for an unconfirmed
// account.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	actor, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil
	}
	if actor.Confirmed() {
		return ErrAlreadyConfirmed
	}
	return s.issueConfirmation(ctx, actor)
}

// RegisterSession persists session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, actorID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, actorID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) issueConfirmation(ctx context.Context, actor *Actor) error {
	token := uuid.NewString()
	if err := s.repo.CreateToken(ctx, actor.ID, token, tokenPurposeConfirm, s.now().Add(confirmationTokenTTL)); err != nil {
		return err
	}
	if s.mailer != nil {
		return s.mailer.SendConfirmation(ctx, actor.Email, token)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

type memRepo struct {
	actors   map[int64]*Actor
	byEmail  map[string]int64
	tokens   map[string]memToken
	sessions map[string]int64
	nextID   int64
}

type memToken struct {
	actorID   int64
	purpose   string
	expiresAt time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		actors:   make(map[int64]*Actor),
		byEmail:  make(map[string]int64),
		tokens:   make(map[string]memToken),
		sessions: make(map[string]int64),
	}
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*Actor, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copy := *m.actors[id]
	return &copy, nil
}

func (m *memRepo) FindByID(ctx context.Context, id int64) (*Actor, error) {
	actor, ok := m.actors[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copy := *actor
	return &copy, nil
}

func (m *memRepo) Create(ctx context.Context, actor Actor) (*Actor, error) {
	m.nextID++
	actor.ID = m.nextID
	actor.CreatedAt = time.Now()
	actor.UpdatedAt = actor.CreatedAt
	m.actors[actor.ID] = &actor
	m.byEmail[actor.Email] = actor.ID
	copy := actor
	return &copy, nil
}

func (m *memRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	actor, ok := m.actors[id]
	if !ok {
		return shared.ErrNotFound
	}
	actor.PasswordHash = hash
	return nil
}

func (m *memRepo) MarkConfirmed(ctx context.Context, id int64, at time.Time) error {
	actor, ok := m.actors[id]
	if !ok {
		return shared.ErrNotFound
	}
	actor.EmailConfirmedAt = &at
	return nil
}

func (m *memRepo) CreateToken(ctx context.Context, actorID int64, token, purpose string, expiresAt time.Time) error {
	m.tokens[token] = memToken{actorID: actorID, purpose: purpose, expiresAt: expiresAt}
	return nil
}

func (m *memRepo) ConsumeToken(ctx context.Context, token, purpose string) (int64, error) {
	entry, ok := m.tokens[token]
	if !ok || entry.purpose != purpose || entry.expiresAt.Before(time.Now()) {
		return 0, ErrTokenInvalid
	}
	delete(m.tokens, token)
	return entry.actorID, nil
}

func (m *memRepo) CreateSession(ctx context.Context, id string, actorID int64, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = actorID
	return nil
}

func (m *memRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type capturedMail struct {
	email string
	token string
}

type stubMailer struct {
	resets        []capturedMail
	confirmations []capturedMail
}

func (s *stubMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	s.resets = append(s.resets, capturedMail{email, token})
	return nil
}

func (s *stubMailer) SendConfirmation(ctx context.Context, email, token string) error {
	s.confirmations = append(s.confirmations, capturedMail{email, token})
	return nil
}

func seedActor(t *testing.T, repo *memRepo, email, password string, active bool) *Actor {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	actor, err := repo.Create(context.Background(), Actor{Email: email, DisplayName: "Test", PasswordHash: string(hash), IsActive: active})
	require.NoError(t, err)
	return actor
}

func TestAuthenticate(t *testing.T) {
	repo := newMemRepo()
	seedActor(t, repo, "ops@seletto.test", "hunter2hunter2", true)
	svc := NewService(repo, nil)

	actor, err := svc.Authenticate(context.Background(), " OPS@seletto.test ", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ops@seletto.test", actor.Email)

	_, err = svc.Authenticate(context.Background(), "ops@seletto.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@seletto.test", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMemRepo()
	seedActor(t, repo, "gone@seletto.test", "hunter2hunter2", false)
	svc := NewService(repo, nil)

	_, err := svc.Authenticate(context.Background(), "gone@seletto.test", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSignUpSendsConfirmation(t *testing.T) {
	repo := newMemRepo()
	mailer := &stubMailer{}
	svc := NewService(repo, mailer)

	actor, err := svc.SignUp(context.Background(), "New@Seletto.Test", "New Operator", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "new@seletto.test", actor.Email)
	assert.False(t, actor.Confirmed())
	require.Len(t, mailer.confirmations, 1)

	_, err = svc.SignUp(context.Background(), "new@seletto.test", "Dup", "longenough1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestConfirmEmailConsumesToken(t *testing.T) {
	repo := newMemRepo()
	mailer := &stubMailer{}
	svc := NewService(repo, mailer)

	actor, err := svc.SignUp(context.Background(), "new@seletto.test", "New", "longenough1")
	require.NoError(t, err)

	token := mailer.confirmations[0].token
	require.NoError(t, svc.ConfirmEmail(context.Background(), token))

	stored, err := repo.FindByID(context.Background(), actor.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed())

	assert.ErrorIs(t, svc.ConfirmEmail(context.Background(), token), ErrTokenInvalid, "token is single use")
	assert.ErrorIs(t, svc.ResendConfirmation(context.Background(), "new@seletto.test"), ErrAlreadyConfirmed)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newMemRepo()
	mailer := &stubMailer{}
	svc := NewService(repo, mailer)
	seedActor(t, repo, "ops@seletto.test", "oldpassword1", true)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ops@seletto.test"))
	require.Len(t, mailer.resets, 1)

	require.NoError(t, svc.ResetPassword(context.Background(), mailer.resets[0].token, "newpassword1"))

	_, err := svc.Authenticate(context.Background(), "ops@seletto.test", "newpassword1")
	assert.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "ops@seletto.test", "oldpassword1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestPasswordResetUnknownEmailAccepted(t *testing.T) {
	repo := newMemRepo()
	mailer := &stubMailer{}
	svc := NewService(repo, mailer)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@seletto.test"))
	assert.Empty(t, mailer.resets, "no token issued, no error leaked")
}

func TestUpdatePasswordVerifiesCurrent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	actor := seedActor(t, repo, "ops@seletto.test", "oldpassword1", true)

	err := svc.UpdatePassword(context.Background(), actor.ID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.NoError(t, svc.UpdatePassword(context.Background(), actor.ID, "oldpassword1", "newpassword1"))
	_, err = svc.Authenticate(context.Background(), "ops@seletto.test", "newpassword1")
	assert.NoError(t, err)
}

package identity_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/ViniciusChelli/Seletto-sub001/internal/identity"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
	_ "github.com/ViniciusChelli/Seletto-sub001/testing"
)

type stubRepo struct {
	actor    *identity.Actor
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*identity.Actor, error) {
	if s.actor == nil || s.actor.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.actor, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*identity.Actor, error) {
	if s.actor == nil || s.actor.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.actor, nil
}

func (s *stubRepo) Create(ctx context.Context, actor identity.Actor) (*identity.Actor, error) {
	actor.ID = 99
	return &actor, nil
}

func (s *stubRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error { return nil }

func (s *stubRepo) MarkConfirmed(ctx context.Context, id int64, at time.Time) error { return nil }

func (s *stubRepo) CreateToken(ctx context.Context, actorID int64, token, purpose string, expiresAt time.Time) error {
	return nil
}

func (s *stubRepo) ConsumeToken(ctx context.Context, token, purpose string) (int64, error) {
	return 0, identity.ErrTokenInvalid
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, actorID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = actorID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newIdentityRouter(t *testing.T, repo identity.Repository) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := identity.NewHandler(logger, identity.NewService(repo, nil), sessionManager, nil)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, sessionManager
}

func doJSON(t *testing.T, handler http.Handler, sessionManager *shared.SessionManager, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{actor: &identity.Actor{ID: 7, Email: "ops@seletto.test", PasswordHash: string(hashed), IsActive: true}}
	router, sessionManager := newIdentityRouter(t, repo)

	res := doJSON(t, router, sessionManager, http.MethodPost, "/auth/login", `{"email":"ops@seletto.test","password":"correctpass1"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}

	var view struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.ID != 7 || view.Email != "ops@seletto.test" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one registered session, got %d", len(repo.sessions))
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubRepo{actor: &identity.Actor{ID: 7, Email: "ops@seletto.test", PasswordHash: string(hashed), IsActive: true}}
	router, sessionManager := newIdentityRouter(t, repo)

	res := doJSON(t, router, sessionManager, http.MethodPost, "/auth/login", `{"email":"ops@seletto.test","password":"wrongpass99"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("no session should be registered on failure")
	}
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	router, sessionManager := newIdentityRouter(t, &stubRepo{})

	res := doJSON(t, router, sessionManager, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"x"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

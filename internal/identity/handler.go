package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/httpx"
	"github.com/ViniciusChelli/Seletto-sub001/internal/rbac"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

// Handler wires HTTP endpoints for account flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	rbac           *rbac.Service
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbacService *rbac.Service) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		rbac:           rbacService,
		validator:      validator.New(),
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/login", h.handleLogin)
		ar.Post("/logout", h.handleLogout)
		ar.Post("/signup", h.handleSignUp)
		ar.Post("/password/forgot", h.handleForgotPassword)
		ar.Post("/password/reset", h.handleResetPassword)
		ar.Post("/password", h.handleUpdatePassword)
		ar.Post("/confirm", h.handleConfirm)
		ar.Post("/confirm/resend", h.handleResendConfirmation)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type actorView struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Confirmed   bool   `json:"confirmed"`
}

func viewOf(actor *Actor) actorView {
	return actorView{ID: actor.ID, Email: actor.Email, DisplayName: actor.DisplayName, Confirmed: actor.Confirmed()}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(actor.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, actor.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	// Warm the permission set so the first guarded request after login does
	// not observe a loading state.
	if h.rbac != nil {
		h.rbac.ResolverFor(r.Context(), sess.ID, actor.ID)
	}

	httpx.JSON(w, http.StatusOK, viewOf(actor))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		if h.rbac != nil {
			h.rbac.Drop(sess.ID)
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

type signUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,min=2"`
	Password    string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, err := h.service.SignUp(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "email already registered")
			return
		}
		h.logger.Error("sign up", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(actor))
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("request password reset", slog.Any("error", err))
	}
	// Always accepted so the endpoint does not reveal registered addresses.
	w.WriteHeader(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token invalid or expired")
			return
		}
		h.logger.Error("reset password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updatePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=8"`
}

func (h *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req updatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdatePassword(r.Context(), actorID, req.Current, req.Next); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "current password incorrect")
			return
		}
		h.logger.Error("update password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ConfirmEmail(r.Context(), req.Token); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "token invalid or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		if errors.Is(err, ErrAlreadyConfirmed) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "email already confirmed")
			return
		}
		h.logger.Error("resend confirmation", slog.Any("error", err))
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

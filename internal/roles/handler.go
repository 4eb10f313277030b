package roles

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

// Handler manages role management endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbacService *rbac.Service
	rbac        rbac.Middleware
	validator   *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacService *rbac.Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbacService: rbacService, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.RequireAny(shared.PermRolesView))
		gr.Get("/roles", h.listRoles)
		gr.Get("/users/{id}/roles", h.listAssignments)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		gr.Post("/roles", h.createRole)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(h.rbac.RequireAny(shared.PermRolesAssign))
		gr.Post("/users/{id}/roles", h.grantRole)
		gr.Delete("/assignments/{id}", h.revokeAssignment)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level" validate:"min=0,max=100"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.DisplayName, req.Level)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	assignments, err := h.service.ListAssignments(r.Context(), actorID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

type grantRoleRequest struct {
	RoleID    int64  `json:"role_id" validate:"required,gt=0"`
	ExpiresAt string `json:"expires_at"`
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req grantRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed expires_at")
			return
		}
		expiresAt = &parsed
	}
	granterID, granterLevel, ok := h.granter(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.Grant(r.Context(), targetID, req.RoleID, granterID, granterLevel, expiresAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		case errors.Is(err, ErrLevelTooHigh):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "cannot grant a role at or above your own level")
		default:
			h.logger.Error("grant role", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) revokeAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "assignment not found")
			return
		}
		h.logger.Error("revoke assignment", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// granter resolves the calling actor's id and role level from the session.
func (h *Handler) granter(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	sess := shared.SessionFromContext(r.Context())
	granterID, ok := shared.ActorIDFromContext(r.Context())
	if sess == nil || !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return 0, 0, false
	}
	resolver := h.rbacService.ResolverFor(r.Context(), sess.ID, granterID)
	return granterID, resolver.HighestLevel(), true
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

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed id")
		return 0, false
	}
	return id, true
}

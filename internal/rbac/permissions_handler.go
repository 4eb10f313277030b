package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/httpx"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

// PermissionsHandler exposes the current actor's resolved authorization view.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/me", h.currentActorPermissions)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPermissionsView))
		r.Get("/check", h.checkPermission)
	})
}

type effectiveView struct {
	ActorID      int64    `json:"actor_id"`
	State        string   `json:"state"`
	Permissions  []string `json:"permissions"`
	HighestLevel int      `json:"highest_level"`
}

func (h *PermissionsHandler) currentActorPermissions(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || strings.TrimSpace(sess.User()) == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	actorID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	resolver := h.service.ResolverFor(r.Context(), sess.ID, actorID)
	httpx.JSON(w, http.StatusOK, effectiveView{
		ActorID:      actorID,
		State:        resolver.State().String(),
		Permissions:  resolver.PermissionNames(),
		HighestLevel: resolver.HighestLevel(),
	})
}

type decisionView struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
}

// checkPermission evaluates a single permission for the current actor and
// returns the guard decision without side effects.
func (h *PermissionsHandler) checkPermission(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("permission"))
	if name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission query parameter required")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	actorID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	resolver := h.service.ResolverFor(r.Context(), sess.ID, actorID)
	decision := resolver.DecidePermission(name)
	httpx.JSON(w, http.StatusOK, decisionView{Verdict: decision.Verdict.String(), Reason: decision.Reason})
}

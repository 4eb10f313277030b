package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/ViniciusChelli/Seletto-sub001/internal/audit/http"
	"github.com/ViniciusChelli/Seletto-sub001/internal/identity"
	"github.com/ViniciusChelli/Seletto-sub001/internal/observability"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/httpx"
	"github.com/ViniciusChelli/Seletto-sub001/internal/rbac"
	"github.com/ViniciusChelli/Seletto-sub001/internal/roles"
	"github.com/ViniciusChelli/Seletto-sub001/internal/security"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
	"github.com/ViniciusChelli/Seletto-sub001/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	IdentityHandler    *identity.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	SecurityHandler    *security.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *rbac.PermissionsHandler

	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	// JobsHandler exposes queue observability; mounted under /jobs.
	JobsHandler interface{ MountRoutes(chi.Router) }
}

// NewRouter constructs the chi.Router with Seletto defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Token priming for browser clients; mutations send it back in the
	// X-CSRF-Token header.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("ensure csrf token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.IdentityHandler != nil {
		params.IdentityHandler.MountRoutes(r)
	}
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r)
	}
	if params.RolesHandler != nil {
		params.RolesHandler.MountRoutes(r)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.SecurityHandler != nil {
		params.SecurityHandler.MountRoutes(r)
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}

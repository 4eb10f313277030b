package security

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ViniciusChelli/Seletto-sub001/internal/audit"
	"github.com/ViniciusChelli/Seletto-sub001/internal/platform/httpx"
	"github.com/ViniciusChelli/Seletto-sub001/internal/rbac"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

const idempotencyHeader = "X-Idempotency-Key"

// Handler serves the security dashboard API.
type Handler struct {
	logger   *slog.Logger
	agg      *Aggregator
	reactor  *Reactor
	rbac     rbac.Middleware
	validate *validator.Validate
	audit    *audit.Logger
	idem     *shared.IdempotencyStore
}

// NewHandler constructs the security HTTP handler.
func NewHandler(logger *slog.Logger, agg *Aggregator, reactor *Reactor, rbacMW rbac.Middleware, auditLog *audit.Logger, idem *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:   logger,
		agg:      agg,
		reactor:  reactor,
		rbac:     rbacMW,
		validate: validator.New(),
		audit:    auditLog,
		idem:     idem,
	}
}

// MountRoutes registers all security routes under /security.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/security", func(sr chi.Router) {
		sr.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireAny(shared.PermSecurityView))
			gr.Get("/overview", h.handleOverview)
			gr.Get("/posture", h.handlePosture)
		})

		sr.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireAny(shared.PermSecurityManage))
			gr.Post("/refresh", h.handleRefresh)
			gr.Post("/policies", h.handleCreatePolicy)
			gr.Post("/policies/{id}/toggle", h.handleTogglePolicy)
			gr.Post("/whitelist", h.handleAddWhitelist)
			gr.Delete("/whitelist/{id}", h.handleRemoveWhitelist)
			gr.Post("/blacklist", h.handleAddBlacklist)
			gr.Delete("/blacklist/{id}", h.handleRemoveBlacklist)
		})

		sr.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireAny(shared.PermActivitiesTriage))
			gr.Post("/activities/{id}/investigate", h.handleInvestigate)
			gr.Post("/activities/{id}/resolve", h.handleResolveActivity)
			gr.Post("/activities/{id}/false-positive", h.handleFalsePositive)
		})

		sr.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireAny(shared.PermIncidentsManage))
			gr.Post("/incidents", h.handleReportIncident)
			gr.Post("/incidents/{id}/advance", h.handleAdvanceIncident)
		})

		sr.Group(func(gr chi.Router) {
			gr.Use(h.rbac.RequireAny(shared.PermBackupsManage))
			gr.Post("/backups", h.handleStartBackup)
			gr.Post("/backups/{id}/finish", h.handleFinishBackup)
		})
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.agg.Snapshot())
}

func (h *Handler) handlePosture(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.agg.Posture())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.agg.LoadAll(r.Context()); err != nil {
		h.logger.Error("security refresh", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, h.agg.Snapshot())
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var input CreatePolicyInput
	if !h.decode(w, r, &input) {
		return
	}
	if !h.claimIdempotency(w, r, "security.policy") {
		return
	}
	policy, err := h.agg.CreatePolicy(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "policy.create", "security_policy", strconv.FormatInt(policy.ID, 10), map[string]any{"name": policy.Name})
	httpx.JSON(w, http.StatusCreated, policy)
}

func (h *Handler) handleTogglePolicy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	policy, err := h.agg.TogglePolicy(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "policy.toggle", "security_policy", strconv.FormatInt(id, 10), map[string]any{"enabled": policy.Enabled})
	httpx.JSON(w, http.StatusOK, policy)
}

func (h *Handler) handleAddWhitelist(w http.ResponseWriter, r *http.Request) {
	var input AddIPInput
	if !h.decode(w, r, &input) {
		return
	}
	entry, err := h.agg.AddWhitelistEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "whitelist.add", "ip_whitelist", strconv.FormatInt(entry.ID, 10), map[string]any{"address": entry.Address})
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleRemoveWhitelist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.agg.RemoveWhitelistEntry(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "whitelist.remove", "ip_whitelist", strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddBlacklist(w http.ResponseWriter, r *http.Request) {
	var input AddIPInput
	if !h.decode(w, r, &input) {
		return
	}
	entry, err := h.agg.AddBlacklistEntry(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if overlap := h.agg.Snapshot().DualListed; len(overlap) > 0 {
		h.logger.Warn("address present in both ip lists", slog.Any("addresses", overlap))
	}
	h.record(r, "blacklist.add", "ip_blacklist", strconv.FormatInt(entry.ID, 10), map[string]any{"address": entry.Address, "reason": entry.Reason})
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleRemoveBlacklist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.agg.RemoveBlacklistEntry(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "blacklist.remove", "ip_blacklist", strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}

type triageRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req triageRequest
	if !h.decode(w, r, &req) {
		return
	}
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	activity, err := h.reactor.StartInvestigation(r.Context(), id, actorID, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "activity.investigate", "suspicious_activity", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) handleResolveActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req triageRequest
	if !h.decode(w, r, &req) {
		return
	}
	activity, err := h.reactor.ResolveActivity(r.Context(), id, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "activity.resolve", "suspicious_activity", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) handleFalsePositive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req triageRequest
	if !h.decode(w, r, &req) {
		return
	}
	activity, err := h.reactor.MarkFalsePositive(r.Context(), id, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "activity.false_positive", "suspicious_activity", strconv.FormatInt(id, 10), nil)
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) handleReportIncident(w http.ResponseWriter, r *http.Request) {
	var input ReportIncidentInput
	if !h.decode(w, r, &input) {
		return
	}
	if !h.claimIdempotency(w, r, "security.incident") {
		return
	}
	incident, err := h.reactor.ReportIncident(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "incident.report", "security_incident", strconv.FormatInt(incident.ID, 10), map[string]any{"number": incident.Number, "severity": incident.Severity})
	httpx.JSON(w, http.StatusCreated, incident)
}

type advanceIncidentRequest struct {
	Status     string `json:"status" validate:"required"`
	Resolution string `json:"resolution"`
}

func (h *Handler) handleAdvanceIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req advanceIncidentRequest
	if !h.decode(w, r, &req) {
		return
	}
	target, err := ParseIncidentStatus(req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	incident, err := h.reactor.AdvanceIncident(r.Context(), id, target, req.Resolution)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "incident.advance", "security_incident", strconv.FormatInt(id, 10), map[string]any{"status": incident.Status})
	httpx.JSON(w, http.StatusOK, incident)
}

func (h *Handler) handleStartBackup(w http.ResponseWriter, r *http.Request) {
	var input StartBackupInput
	if !h.decode(w, r, &input) {
		return
	}
	if !h.claimIdempotency(w, r, "security.backup") {
		return
	}
	backup, err := h.agg.StartBackup(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "backup.start", "backup_log", strconv.FormatInt(backup.ID, 10), map[string]any{"scope": backup.Scope, "type": backup.Type})
	httpx.JSON(w, http.StatusCreated, backup)
}

type finishBackupRequest struct {
	Status    string `json:"status" validate:"required"`
	SizeBytes int64  `json:"size_bytes"`
}

func (h *Handler) handleFinishBackup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req finishBackupRequest
	if !h.decode(w, r, &req) {
		return
	}
	backup, err := h.agg.FinishBackup(r.Context(), id, BackupStatus(req.Status), req.SizeBytes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.record(r, "backup.finish", "backup_log", strconv.FormatInt(id, 10), map[string]any{"status": backup.Status})
	httpx.JSON(w, http.StatusOK, backup)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) claimIdempotency(w http.ResponseWriter, r *http.Request, module string) bool {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" {
		return true
	}
	if err := h.idem.CheckAndInsert(r.Context(), key, module); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "request already processed")
			return false
		}
		h.logger.Error("idempotency check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
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

func (h *Handler) actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := shared.ActorIDFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return 0, false
	}
	return id, true
}

func (h *Handler) record(r *http.Request, action, entity, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	actorID, _ := shared.ActorIDFromContext(r.Context())
	if err := h.audit.Record(r.Context(), audit.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	}); err != nil {
		h.logger.Error("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrTransition):
		httpx.Problem(w, http.StatusConflict, "Transition Not Permitted", err.Error())
	case errors.Is(err, ErrMutation):
		h.logger.Error("security mutation", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Write Failed", "the change was not applied")
	default:
		h.logger.Error("security handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

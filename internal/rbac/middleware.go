package rbac

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/ViniciusChelli/Seletto-sub001/internal/observability"
	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

// Middleware wires guard decisions into HTTP handlers. A Pending decision is
// rendered as 503 with Retry-After so callers can show a neutral state
// instead of an error.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireAny ensures the current actor has at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			resolver, ok := m.currentResolver(w, r)
			if !ok {
				return
			}
			decision := pending
			if resolver.State() == StateReady {
				decision = deny("missing permission: " + strings.Join(normalized, "|"))
				for _, p := range normalized {
					if d := resolver.DecidePermission(p); d.Allowed() {
						decision = d
						break
					}
				}
			} else if resolver.State() == StateError {
				decision = deny("permission data unavailable")
			}
			m.respond(w, r, next, decision)
		})
	}
}

// RequireAll ensures the current actor has every listed permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			resolver, ok := m.currentResolver(w, r)
			if !ok {
				return
			}
			decision := allow
			for _, p := range normalized {
				if d := resolver.DecidePermission(p); !d.Allowed() {
					decision = d
					break
				}
			}
			m.respond(w, r, next, decision)
		})
	}
}

// RequireRoles gates a route on role membership with the given mode.
func (m Middleware) RequireRoles(mode Mode, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolver, ok := m.currentResolver(w, r)
			if !ok {
				return
			}
			m.respond(w, r, next, resolver.DecideRoles(mode, roles...))
		})
	}
}

func (m Middleware) respond(w http.ResponseWriter, r *http.Request, next http.Handler, decision Decision) {
	if m.Metrics != nil {
		m.Metrics.CountGuardDecision(decision.Verdict.String())
	}
	switch decision.Verdict {
	case VerdictAllow:
		next.ServeHTTP(w, r)
	case VerdictPending:
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		if m.Logger != nil {
			m.Logger.Warn("guard deny", slog.String("path", r.URL.Path), slog.String("reason", decision.Reason))
		}
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	}
}

func (m Middleware) currentResolver(w http.ResponseWriter, r *http.Request) (*Resolver, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return nil, false
	}
	actorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse actor id", slog.String("value", raw))
		}
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return nil, false
	}
	return m.Service.ResolverFor(r.Context(), sess.ID, actorID), true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Mugambi-md/Orion-sub000/internal/platform/httpx"
	"github.com/Mugambi-md/Orion-sub000/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Authorizer Authorizer
	Logger     *slog.Logger
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), false)
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), true)
}

func (m Middleware) require(required []string, all bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor := shared.ActorFromContext(r.Context())
			if actor == shared.SystemActor || m.Authorizer == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			matched := 0
			for _, perm := range required {
				ok, err := m.Authorizer.Granted(r.Context(), actor, perm)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("rbac check", slog.String("actor", actor), slog.String("permission", perm), slog.Any("error", err))
					}
					httpx.RespondError(w, errors.New("rbac unavailable"))
					return
				}
				if ok {
					matched++
				}
			}
			if (all && matched == len(required)) || (!all && matched > 0) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.String("actor", actor), slog.String("required", strings.Join(required, ",")))
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

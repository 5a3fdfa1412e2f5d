package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"marketplace/db"
	"marketplace/internal/auth"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	projectKey
)

// ContextWithIdentity attaches a validated identity to the context. Exported
// for handler tests that bypass the token middleware.
func ContextWithIdentity(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, identityKey, claims)
}

// IdentityFromContext returns the identity placed by CheckToken.
func IdentityFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(identityKey).(*auth.Claims)
	return claims
}

func contextWithProject(ctx context.Context, p *db.Project) context.Context {
	return context.WithValue(ctx, projectKey, p)
}

// ProjectFromContext returns the project loaded by RequireProjectOwnership.
func ProjectFromContext(ctx context.Context) *db.Project {
	p, _ := ctx.Value(projectKey).(*db.Project)
	return p
}

// CheckToken validates the access token from the accessToken cookie or the
// Authorization header and injects the identity into the request context.
func (h *Handler) CheckToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie("accessToken"); err == nil {
			token = c.Value
		} else if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
			token = strings.TrimPrefix(v, "Bearer ")
		}
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}

		claims, err := h.Tokens.ValidateAccess(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), claims)))
	})
}

// RequireRole rejects callers whose role does not match.
func (h *Handler) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := IdentityFromContext(r.Context())
			if claims == nil || claims.Role != role {
				writeMessage(w, http.StatusForbidden, "Access forbidden: wrong role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireProjectOwnership loads the {id} project and checks the caller is
// its buyer: 404 when absent, 403 when owned by someone else. The loaded
// project is stashed in the context for the handler.
func (h *Handler) RequireProjectOwnership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil || projectID <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid project ID")
			return
		}

		project, err := h.Store.GetProject(r.Context(), projectID)
		if err != nil {
			h.storeError(w, r, err)
			return
		}

		claims := IdentityFromContext(r.Context())
		if claims == nil || project.BuyerID != claims.UserID {
			writeMessage(w, http.StatusForbidden, "You are not the owner of this project")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithProject(r.Context(), project)))
	})
}

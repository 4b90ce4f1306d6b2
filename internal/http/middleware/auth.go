package middleware

import (
	"context"
	"net/http"
	"strings"

	"hireflow/internal/common"
	"hireflow/internal/http/response"
	"hireflow/internal/security"
)

type contextKey string

const (
	ContextStaffKey contextKey = "staff"
)

// Staff is the authenticated caller of the internal API.
type Staff struct {
	ID           common.UUID
	Name         string
	Email        string
	Capabilities []security.Capability
}

type AuthMiddleware struct {
	jwt *security.JWTProvider
}

func NewAuthMiddleware(jwt *security.JWTProvider) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid authorization header", nil))
			return
		}
		claims, err := m.jwt.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid token", err))
			return
		}
		staffID, err := common.ParseUUID(claims.Subject)
		if err != nil {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid staff id", err))
			return
		}
		staff := Staff{
			ID:           staffID,
			Name:         claims.Name,
			Email:        claims.Email,
			Capabilities: security.ParseCapabilities(claims.Capabilities),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextStaffKey, staff)))
	})
}

func RequireCapability(need security.Capability) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staff, ok := StaffFromContext(r.Context())
			if !ok {
				response.Error(w, common.NewError(common.CodeUnauthorized, "not authenticated", nil))
				return
			}
			if !security.Allows(staff.Capabilities, need) {
				response.Error(w, common.NewError(common.CodeForbidden, "missing capability "+string(need), nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func StaffFromContext(ctx context.Context) (Staff, bool) {
	staff, ok := ctx.Value(ContextStaffKey).(Staff)
	return staff, ok
}

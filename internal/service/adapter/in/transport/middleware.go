package transport

import (
	"context"
	"net/http"
	"strings"

	"roadrescue/internal/shared/auth"
	"roadrescue/internal/shared/logger"

	constants "roadrescue/internal/shared/const"
)

type contextKey string

const (
	ctxKeyUserID contextKey = "user_id"
	ctxKeyRole   contextKey = "role"
)

// UserIDFromContext возвращает ID principal-а, если запрос аутентифицирован
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(string)
	return id, ok && id != ""
}

// RoleFromContext возвращает роль principal-а
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ctxKeyRole).(string)
	return role, ok && role != ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Middleware — фабрика auth-оберток вокруг JWTService
type Middleware struct {
	jwt *auth.JWTService
	log *logger.Logger
}

func NewMiddleware(jwt *auth.JWTService, log *logger.Logger) *Middleware {
	return &Middleware{jwt: jwt, log: log}
}

func (m *Middleware) withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
	ctx = context.WithValue(ctx, ctxKeyRole, claims.Role)
	return r.WithContext(ctx)
}

// Authenticated требует валидный Bearer-токен
func (m *Middleware) Authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, m.withClaims(r, claims))
	}
}

// TechnicianOnly требует токен с ролью technician
func (m *Middleware) TechnicianOnly(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticated(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if role != constants.RoleTechnician {
			respondError(w, http.StatusForbidden, "technician role required")
			return
		}
		next(w, r)
	})
}

// Optional пропускает запрос в любом случае, но при наличии валидного
// токена кладет principal в контекст (создание заявки без аутентификации
// сохранено для совместимости).
func (m *Middleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if claims, err := m.jwt.ValidateToken(token); err == nil {
				r = m.withClaims(r, claims)
			}
		}
		next(w, r)
	}
}

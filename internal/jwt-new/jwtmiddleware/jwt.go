package jwtmiddleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/linemk/farm-shop/internal/domain/models"
	security "github.com/linemk/farm-shop/internal/jwt-new"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

// TokenCookie имя cookie, в которой витрина хранит токен
const TokenCookie = "token"

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token format")
)

// NewJWTMiddleware создаёт middleware, которое пропускает только запросы с валидным токеном.
func NewJWTMiddleware(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalJWTMiddleware кладёт пользователя в контекст, если токен валиден,
// иначе запрос обрабатывается как анонимный.
func NewOptionalJWTMiddleware(secret string) func(http.Handler) http.Handler {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, err := authenticate(r, secret); err == nil {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole пропускает только пользователей с одной из ролей. Ставится после NewJWTMiddleware.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// tokenFromRequest извлекает токен из заголовка Authorization (формат: "Bearer <token>") или из cookie
func tokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errTokenFormat
		}
		return parts[1], nil
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errMissingToken
}

func authenticate(r *http.Request, secret string) (context.Context, error) {
	tokenStr, err := tokenFromRequest(r)
	if err != nil {
		return nil, err
	}

	claims, err := security.Parse(tokenStr, secret)
	if err != nil || security.IsResetToken(claims) {
		return nil, security.ErrInvalidToken
	}

	userID, err := security.SubjectID(claims)
	if err != nil {
		return nil, errors.New("invalid token claims: invalid user id")
	}

	role := models.RoleClient
	if s, ok := claims["role"].(string); ok && models.Role(s).Valid() {
		role = models.Role(s)
	}

	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx, nil
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// RoleFromContext извлекает роль пользователя из контекста.
func RoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/shop-service/internal/domain"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

// UserID returns the authenticated user id attached by AccessGuard, or 0.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey).(int64)
	return id
}

// AccessGuard checks CSRF token presence, resolves the bearer identity and
// rejects anonymous mutations under prefix. It runs before any handler.
func AccessGuard(tokens domain.TokenService, prefix string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasCSRFToken(r) {
			writeMessage(w, http.StatusForbidden, "CSRF token missing")
			return
		}
		var uid int64
		if raw, ok := bearer(r); ok {
			id, err := tokens.Verify(raw, domain.TokenAccess)
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}
			uid = id
		}
		if uid == 0 && mutating(r.Method) && strings.HasPrefix(r.URL.Path, prefix) {
			writeMessage(w, http.StatusUnauthorized, "User not authenticated")
			return
		}
		if uid != 0 {
			r = r.WithContext(context.WithValue(r.Context(), userKey, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func hasCSRFToken(r *http.Request) bool {
	if r.Header.Get("X-CSRFToken") != "" {
		return true
	}
	c, err := r.Cookie("csrftoken")
	return err == nil && c.Value != ""
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, _ := strings.Cut(h, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

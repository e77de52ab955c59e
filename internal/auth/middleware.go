package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"plantpal-backend/internal/analytics"
)

// LocalUserID is the identity given to unauthenticated callers while the
// development fallback is enabled. Not suitable for production.
const LocalUserID = "local-user"

type ctxKey string

const userIDKey ctxKey = "user_id"

type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type Middleware struct {
	verifiers   []Verifier
	devFallback bool
	logger      *log.Logger
}

func New(devFallback bool, logger *log.Logger, verifiers ...Verifier) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return Middleware{verifiers: verifiers, devFallback: devFallback, logger: logger}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.authenticate(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := WithUserID(r.Context(), userID)
		ctx = analytics.WithUserID(ctx, userID)

		next(w, r.WithContext(ctx))
	}
}

func (m Middleware) authenticate(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		if m.devFallback {
			m.logger.Warn("no auth token provided, using local user", "path", r.URL.Path)
			return LocalUserID, true
		}
		return "", false
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	var lastErr error
	for _, v := range m.verifiers {
		uid, err := v.Verify(r.Context(), tokenString)
		if err == nil {
			return uid, true
		}
		lastErr = err
	}

	if m.devFallback {
		m.logger.Warn("invalid token, using local user", "path", r.URL.Path, "err", lastErr)
		return LocalUserID, true
	}
	return "", false
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}

package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFromContext returns the claims attached by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*models.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey).(*models.AccessClaims)
	return c, ok
}

// WithRequestID reuses an inbound X-Request-ID or generates one, echoes it
// in the response and stores it in the request context for logging.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// Logging records one line per request. Panics in handlers are logged and
// turned into a 500.
func Logging(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					l.Error(r.Context(), "panic in handler", "panic", p, "path", r.URL.Path)
					if sw.status == 0 {
						writeErrorMessage(sw, http.StatusInternalServerError, "internal server error")
					}
				}
				l.Info(r.Context(), "request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", sw.status,
					"size", sw.size,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// RequireAuth rejects requests without a valid, non-revoked bearer token
// with 401 and otherwise puts the claims into the request context.
func RequireAuth(v TokenValidator, l logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r.Header.Get(common.AuthorizationHeaderName))
		if raw == "" {
			writeErrorMessage(w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
			return
		}

		claims, err := v.ValidateToken(r.Context(), raw)
		if err != nil {
			status, public := statusFor(err)
			if !public {
				l.Error(r.Context(), "token validation failed", "error", err)
				writeErrorMessage(w, status, "internal server error")
				return
			}
			msg := common.ErrorUnauthorized.Error()
			if errors.Is(err, common.ErrTokenExpired) || errors.Is(err, common.ErrTokenRevoked) {
				msg = err.Error()
			}
			writeErrorMessage(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func extractBearer(h string) string {
	if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}

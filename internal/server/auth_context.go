package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tudor/internal/models"
)

type authContextKey struct{}

func contextWithPrincipal(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, authContextKey{}, user)
}

// principalFromContext returns the authenticated user, or nil for anonymous
// requests.
func principalFromContext(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(authContextKey{}).(*models.User)
	return user
}

// withAuth resolves HTTP Basic credentials to a user. Requests without
// credentials continue anonymously; wrong credentials are rejected.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r) + "|" + strings.ToLower(strings.TrimSpace(email))
		now := time.Now()
		if s.authFailures.Blocked(key, now) {
			err := apiError{
				status:  http.StatusTooManyRequests,
				code:    "resource_exhausted",
				errCode: ErrCodeResourceExhausted,
				err:     fmt.Errorf("too many failed logins; retry later"),
			}
			s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
			return
		}

		user, err := s.svc.Authenticate(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, models.ErrForbidden) {
				s.authFailures.Fail(key, now)
				w.Header().Set("WWW-Authenticate", `Basic realm="tudor"`)
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid credentials")))
				return
			}
			s.writeServiceError(w, r, err)
			return
		}
		s.authFailures.Succeed(key)
		next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), user)))
	})
}

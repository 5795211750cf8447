package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"finance-hub/internal/data"
	"finance-hub/internal/logger"
	"finance-hub/internal/session"

	"github.com/casbin/casbin/v2"
)

// UserLoader resolves the user id kept in the session to a principal.
type UserLoader interface {
	UserInfo(ctx context.Context, userID string) (*session.UserInfo, error)
}

// LoadUser adds the signed-in user to the request context. Requests without
// a session user carry an anonymous UserInfo. A session that points at a
// deleted account is cleared.
func LoadUser(sm session.Manager, users UserLoader, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userInfo := &session.UserInfo{}
			if id := sm.GetString(ctx, session.KeyUserID); id != "" {
				u, err := users.UserInfo(ctx, id)
				switch {
				case err == nil:
					userInfo = u
				case errors.Is(err, data.ErrNotFound):
					sm.Remove(ctx, session.KeyUserID)
				default:
					log.Error(err, "Failed to load session user")
				}
			}
			next.ServeHTTP(w, r.WithContext(session.SetUserInfo(ctx, userInfo)))
		})
	}
}

// Authorizer creates a new middleware for authorization.
// It checks the user's permissions using Casbin. Anonymous visitors who are
// denied are sent to the login page; signed-in users get 403.
func Authorizer(e casbin.IEnforcer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo := session.GetUserInfo(r.Context())

			allowed, err := e.Enforce(userInfo.Subject(), r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization error")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				if userInfo.IsAnonymous() {
					http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

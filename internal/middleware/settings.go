package middleware

import (
	"net/http"

	"finance-hub/internal/view"
)

// Settings puts the site settings into the request context so that the
// layout can show the site name and the optional SSO button.
func Settings(s view.Settings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(view.WithSettings(r.Context(), s)))
		})
	}
}

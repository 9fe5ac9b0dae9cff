package web

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// authMiddleware guards a route with HTTP basic auth. The configured
// password is stored as a bcrypt hash, never in the clear.
func (handler *HttpRouteHandler) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	if !handler.UseAuth {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !handler.validCredentials(username, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="pgbackup"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (handler *HttpRouteHandler) validCredentials(username, password string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(handler.UserName)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(handler.PasswordHash), []byte(password))
	return userMatch && passErr == nil
}

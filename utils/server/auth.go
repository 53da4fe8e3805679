package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/config"
)

func checkAuth(serverConfig *config.ServerConfig, w http.ResponseWriter, r *http.Request) bool {
	if !serverConfig.Enabled {
		config.DebugLog("Auth check skipped: server auth is disabled")
		return true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		config.VerboseLog("Missing Authorization header")
		writeError(w, http.StatusUnauthorized, "Authorization header required")
		return false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		config.VerboseLog("Invalid authorization header format")
		config.DebugLog("Auth failed: malformed Authorization header: %s", config.MaskKey(authHeader))
		writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(serverConfig.BearerToken)) != 1 {
		config.VerboseLog("Invalid bearer token")
		writeError(w, http.StatusUnauthorized, "Invalid bearer token")
		return false
	}

	config.DebugLog("Auth successful: valid bearer token")
	return true
}

// withAuth wraps a handler with request logging and bearer authentication
func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return logRequest(func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(s.config, w, r) {
			return
		}
		handler(w, r)
	})
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/kris-hansen/scrollystory/utils/config"
)

func logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		authInfo := maskAuthorization(r.Header.Get("Authorization"))

		config.DebugLog("Request details: remote=%s tls=%v content_length=%d host=%s",
			r.RemoteAddr, r.TLS != nil, r.ContentLength, r.Host)
		config.VerboseLog("Incoming request: %s %s", r.Method, r.URL.String())

		handler(wrapped, r)

		duration := time.Since(start)
		config.VerboseLog("Response: status=%d bytes=%d duration=%v",
			wrapped.statusCode, wrapped.written, duration)

		if wrapped.statusCode >= 400 {
			config.DebugLog("Error response: status=%d path=%s query=%s",
				wrapped.statusCode, r.URL.Path, r.URL.RawQuery)
		}

		requestLogger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"auth", authInfo,
			"status", wrapped.statusCode,
			"duration", duration)
	}
}

// maskAuthorization keeps the scheme and hides the whole credential
func maskAuthorization(header string) string {
	if header == "" {
		return ""
	}
	scheme, _, found := strings.Cut(header, " ")
	if !found {
		return "********"
	}
	return scheme + " ********"
}

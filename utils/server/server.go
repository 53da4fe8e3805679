package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/models"
)

// Server represents the HTTP server
type Server struct {
	mux       *http.ServeMux
	config    *config.ServerConfig
	envConfig *config.EnvConfig
	client    *models.Client
	sessions  *sessionStore
}

func requestLogger() *log.Logger {
	return config.Logger().WithPrefix("scrollystory/http")
}

func newServer(envConfig *config.EnvConfig, client *models.Client) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		config:    envConfig.GetServerConfig(),
		envConfig: envConfig,
		client:    client,
		sessions:  newSessionStore(),
	}
	s.routes()
	return s
}

// New creates a new HTTP server with the given configuration
func New(envConfig *config.EnvConfig) (*http.Server, error) {
	s := newServer(envConfig, models.NewClient(nil))
	if s.config.Enabled && s.config.BearerToken == "" {
		return nil, fmt.Errorf("server authentication is enabled but no bearer token is configured")
	}

	// Generation requests stay open for as long as the model takes to answer
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// routes sets up the server routes
func (s *Server) routes() {
	s.mux.HandleFunc("/health", logRequest(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}))

	s.mux.HandleFunc("/generate", s.withAuth(allow(http.MethodPost, s.handleGenerate)))
	s.mux.HandleFunc("/generate/stream", s.withAuth(allow(http.MethodPost, s.handleGenerateStream)))
	s.mux.HandleFunc("/refactor", s.withAuth(allow(http.MethodPost, s.handleRefactor)))
	s.mux.HandleFunc("/document", s.withAuth(allow(http.MethodGet, s.handleDocument)))
	s.mux.HandleFunc("/providers", s.withAuth(allow(http.MethodGet, s.handleGetProviders)))
	s.mux.HandleFunc("/providers/validate", s.withAuth(allow(http.MethodPost, s.handleValidateProvider)))
}

func allow(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method not allowed. Use %s.", method))
			return
		}
		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		config.DebugLog("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// Run creates and starts the HTTP server with the given configuration
func Run(envConfig *config.EnvConfig) error {
	server, err := New(envConfig)
	if err != nil {
		return err
	}

	serverConfig := envConfig.GetServerConfig()
	fmt.Printf("Starting server on port %d...\n", serverConfig.Port)
	if serverConfig.Enabled {
		fmt.Println("Authentication is enabled. Bearer token required.")
		fmt.Printf("Example usage: curl -H 'Authorization: Bearer %s' -d '{\"csv\":\"a,b\\n1,2\",\"fileName\":\"data.csv\"}' http://localhost:%d/generate\n",
			config.MaskKey(serverConfig.BearerToken), serverConfig.Port)
	} else {
		fmt.Printf("Example usage: curl -d '{\"csv\":\"a,b\\n1,2\",\"fileName\":\"data.csv\"}' http://localhost:%d/generate\n", serverConfig.Port)
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

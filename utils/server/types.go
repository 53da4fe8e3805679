package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/profile"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse represents a generic error API response
type ErrorResponse struct {
	Success bool   `json:"success"` // Should always be false
	Error   string `json:"error"`
}

// GenerateRequest is the body of /generate and /generate/stream
type GenerateRequest struct {
	CSV          string   `json:"csv"`
	FileName     string   `json:"fileName,omitempty"`
	StoryStyle   string   `json:"storyStyle,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Session      string   `json:"session,omitempty"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Stream       bool     `json:"stream,omitempty"`
}

// RefactorRequest is the body of /refactor
type RefactorRequest struct {
	Session      string   `json:"session"`
	Instructions string   `json:"instructions"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Stream       bool     `json:"stream,omitempty"`
}

// GenerateResponse is returned by generate and refactor, and sent as the SSE complete event
type GenerateResponse struct {
	Success  bool             `json:"success"`
	Session  string           `json:"session,omitempty"`
	FileName string           `json:"fileName,omitempty"`
	HTML     string           `json:"html,omitempty"`
	Model    string           `json:"model,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Profile  *profile.Profile `json:"profile,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ProviderInfo describes a configured provider; the API key is masked
type ProviderInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	BaseURL string   `json:"baseUrl"`
	Model   string   `json:"model"`
	APIKey  string   `json:"apiKey,omitempty"`
	Models  []string `json:"models,omitempty"`
	Default bool     `json:"default"`
	Usable  bool     `json:"usable"`
}

// ProviderListResponse represents the response for provider listing
type ProviderListResponse struct {
	Success   bool           `json:"success"`
	Providers []ProviderInfo `json:"providers"`
	Error     string         `json:"error,omitempty"`
}

// ValidateRequest checks either a configured provider by name or an ad hoc base URL and key
type ValidateRequest struct {
	Provider string `json:"provider,omitempty"`
	BaseURL  string `json:"baseUrl,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ValidateResponse is the result of a provider check
type ValidateResponse struct {
	Success bool     `json:"success"`
	Kind    string   `json:"kind,omitempty"`
	Models  []string `json:"models,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// fragmentEvent is the payload of an SSE fragment event
type fragmentEvent struct {
	Content string `json:"content"`
	Chars   int    `json:"chars"`
}

// responseWriter wraps http.ResponseWriter to capture the status code and implement http.Flusher
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	headersSent bool
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.headersSent {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.headersSent = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headersSent {
		// If no status has been set before first write, use 200 OK
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// sseWriter formats output as Server-Sent Events, flushing after each event
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (sw *sseWriter) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		config.DebugLog("[SSE] Error marshaling %s event: %v", event, err)
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		config.DebugLog("[SSE] Error writing %s event: %v", event, err)
		return err
	}
	sw.f.Flush()
	return nil
}

// SendProgress sends a progress message such as the start of a run
func (sw *sseWriter) SendProgress(message string) error {
	return sw.send("progress", map[string]string{"message": message})
}

// SendFragment sends one piece of streamed model output
func (sw *sseWriter) SendFragment(content string, chars int) error {
	return sw.send("fragment", fragmentEvent{Content: content, Chars: chars})
}

// SendComplete sends the final document
func (sw *sseWriter) SendComplete(resp GenerateResponse) error {
	config.DebugLog("[SSE] Sending complete event: %d characters", len(resp.HTML))
	return sw.send("complete", resp)
}

// SendError sends a failure; the status is the code a JSON response would have used
func (sw *sseWriter) SendError(err error, status int) error {
	config.DebugLog("[SSE] Sending error event: %v", err)
	return sw.send("error", map[string]interface{}{
		"success": false,
		"error":   err.Error(),
		"status":  status,
	})
}

// SendHeartbeat keeps idle connections open
func (sw *sseWriter) SendHeartbeat() error {
	if _, err := fmt.Fprint(sw.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	sw.f.Flush()
	return nil
}

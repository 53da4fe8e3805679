package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/models"
	"github.com/kris-hansen/scrollystory/utils/story"
)

const (
	testCSV   = "a,b\n1,2\n3,4\n"
	testHTML  = "<!DOCTYPE html><html><head></head><body>chart</body></html>"
	testToken = "test-token"
)

// fakeLLM is an OpenAI-compatible endpoint returning a fixed document
type fakeLLM struct {
	*httptest.Server
	mu      sync.Mutex
	reply   string
	status  int
	prompts []string
}

func newFakeLLM(t *testing.T) *fakeLLM {
	t.Helper()
	f := &fakeLLM{reply: testHTML, status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		reply, status := f.reply, f.status
		f.mu.Unlock()

		if r.URL.Path == "/v1/models" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"mock-model"}]}`)
			return
		}

		var body struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		if len(body.Messages) > 0 {
			f.prompts = append(f.prompts, body.Messages[0].Content)
		}
		f.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "upstream failure", status)
			return
		}

		if body.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			half := len(reply) / 2
			for _, part := range []string{reply[:half], reply[half:]} {
				chunk, _ := json.Marshal(map[string]interface{}{
					"choices": []map[string]interface{}{{"delta": map[string]string{"content": part}}},
				})
				_, _ = io.WriteString(w, "data: "+string(chunk)+"\n\n")
			}
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		data, _ := json.Marshal(map[string]interface{}{
			"model":   "mock-model",
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
		_, _ = w.Write(data)
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeLLM) set(reply string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply, f.status = reply, status
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func newTestServer(t *testing.T, llm *fakeLLM, auth bool) *Server {
	t.Helper()
	t.Setenv(config.APIKeyVariable, "")

	env := &config.EnvConfig{DefaultProvider: "mock"}
	if llm != nil {
		env.AddProvider("mock", config.Provider{
			BaseURL: llm.URL + "/v1",
			APIKey:  "sk-mock-provider-key",
			Model:   "mock-model",
		})
	}
	env.UpdateServerConfig(config.ServerConfig{Enabled: auth, BearerToken: testToken})

	var client *http.Client
	if llm != nil {
		client = llm.Client()
	}
	return newServer(env, models.NewClient(client))
}

func do(t *testing.T, s *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeGenerate(t *testing.T, rec *httptest.ResponseRecorder) GenerateResponse {
	t.Helper()
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "" && current.name != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	return events
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, true)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, newFakeLLM(t), true)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + testToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/providers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.mux.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestGenerateAndDownload(t *testing.T) {
	llm := newFakeLLM(t)
	s := newTestServer(t, llm, true)

	rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: testCSV, FileName: "t.csv"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeGenerate(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, testHTML, resp.HTML)
	assert.Equal(t, "t.csv", resp.FileName)
	assert.Equal(t, "mock-model", resp.Model)
	require.NotEmpty(t, resp.Session)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, 2, resp.Profile.RowCount)
	assert.Contains(t, llm.lastPrompt(), "File name: t.csv")

	rec = do(t, s, http.MethodGet, "/document?session="+resp.Session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testHTML, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+story.DefaultFileName+`"`, rec.Header().Get("Content-Disposition"))

	rec = do(t, s, http.MethodGet, "/document?session="+resp.Session+"&inline=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestGenerateStream(t *testing.T) {
	s := newTestServer(t, newFakeLLM(t), false)

	rec := do(t, s, http.MethodPost, "/generate/stream", GenerateRequest{CSV: testCSV, FileName: "t.csv"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(t, rec.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, "progress", events[0].name)

	var streamed strings.Builder
	var complete *GenerateResponse
	for _, e := range events {
		switch e.name {
		case "fragment":
			var f fragmentEvent
			require.NoError(t, json.Unmarshal([]byte(e.data), &f))
			streamed.WriteString(f.Content)
		case "complete":
			var resp GenerateResponse
			require.NoError(t, json.Unmarshal([]byte(e.data), &resp))
			complete = &resp
		}
	}
	assert.Equal(t, testHTML, streamed.String())
	require.NotNil(t, complete)
	assert.Equal(t, testHTML, complete.HTML)
	assert.Equal(t, rec.Header().Get("X-Session-Id"), complete.Session)
}

func TestRefactorUsesSessionDocument(t *testing.T) {
	llm := newFakeLLM(t)
	s := newTestServer(t, llm, false)

	rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: testCSV, FileName: "t.csv"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeGenerate(t, rec).Session

	refactored := strings.Replace(testHTML, "chart", "red chart", 1)
	llm.set(refactored, http.StatusOK)

	rec = do(t, s, http.MethodPost, "/refactor", RefactorRequest{Session: session, Instructions: "Make it red"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, refactored, decodeGenerate(t, rec).HTML)
	assert.Contains(t, llm.lastPrompt(), testHTML)
	assert.Contains(t, llm.lastPrompt(), "Make it red")

	rec = do(t, s, http.MethodGet, "/document?session="+session, nil)
	assert.Equal(t, refactored, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/refactor", RefactorRequest{Session: session, Instructions: "Again", Stream: true})
	require.Equal(t, http.StatusOK, rec.Code)
	events := parseSSE(t, rec.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, "complete", events[len(events)-1].name)
}

func TestErrorStatusMapping(t *testing.T) {
	llm := newFakeLLM(t)
	s := newTestServer(t, llm, false)

	t.Run("malformed csv", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: "header_only"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, decodeGenerate(t, rec).Success)
	})

	t.Run("missing csv", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("extraction failure", func(t *testing.T) {
		llm.set("Sorry, no HTML today.", http.StatusOK)
		rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: testCSV})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("provider failure", func(t *testing.T) {
		llm.set(testHTML, http.StatusServiceUnavailable)
		rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: testCSV})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, decodeGenerate(t, rec).Error, "503")
	})

	t.Run("provider failure while streaming", func(t *testing.T) {
		llm.set(testHTML, http.StatusServiceUnavailable)
		rec := do(t, s, http.MethodPost, "/generate/stream", GenerateRequest{CSV: testCSV})
		events := parseSSE(t, rec.Body.String())
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, "error", last.name)
		assert.Contains(t, last.data, `"status":502`)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/refactor", RefactorRequest{Session: "not-a-session", Instructions: "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = do(t, s, http.MethodGet, "/document?session=00000000-0000-0000-0000-000000000000", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing instructions", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/refactor", RefactorRequest{Session: "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/generate", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGenerateWithoutProvider(t *testing.T) {
	s := newTestServer(t, nil, false)
	rec := do(t, s, http.MethodPost, "/generate", GenerateRequest{CSV: testCSV})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestProvidersAndValidate(t *testing.T) {
	llm := newFakeLLM(t)
	s := newTestServer(t, llm, false)

	rec := do(t, s, http.MethodGet, "/providers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-mock-provider-key")

	var list ProviderListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Providers, 1)
	p := list.Providers[0]
	assert.Equal(t, "mock", p.Name)
	assert.Equal(t, "custom", p.Kind)
	assert.Equal(t, "sk-m****-key", p.APIKey)
	assert.True(t, p.Default)
	assert.True(t, p.Usable)

	rec = do(t, s, http.MethodPost, "/providers/validate", ValidateRequest{Provider: "mock"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var validated ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &validated))
	assert.True(t, validated.Success)
	assert.Equal(t, []string{"mock-model"}, validated.Models)

	rec = do(t, s, http.MethodPost, "/providers/validate", ValidateRequest{Provider: "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/providers/validate", ValidateRequest{BaseURL: llm.URL + "/v1"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = do(t, s, http.MethodPost, "/providers/validate", ValidateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusForBusy(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(story.ErrBusy))
	assert.Equal(t, http.StatusConflict, statusFor(story.ErrNoDocument))
	assert.Equal(t, http.StatusPreconditionFailed, statusFor(models.ErrNotConfigured))
	assert.Equal(t, http.StatusBadGateway, statusFor(models.ErrStreamTruncated))
}

func TestRequestLogHidesBearerToken(t *testing.T) {
	assert.Equal(t, "", maskAuthorization(""))
	assert.Equal(t, "Bearer ********", maskAuthorization("Bearer secret-token-1234"))
	assert.Equal(t, "********", maskAuthorization("secret-token-1234"))

	var buf bytes.Buffer
	config.SetLogOutput(&buf)
	t.Cleanup(func() { config.SetLogOutput(os.Stderr) })

	s := newTestServer(t, nil, true)
	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	s.mux.ServeHTTP(httptest.NewRecorder(), req)

	logged := buf.String()
	assert.Contains(t, logged, "Bearer ********")
	assert.NotContains(t, logged, testToken)
}

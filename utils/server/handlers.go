package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/extract"
	"github.com/kris-hansen/scrollystory/utils/models"
	"github.com/kris-hansen/scrollystory/utils/profile"
	"github.com/kris-hansen/scrollystory/utils/progress"
	"github.com/kris-hansen/scrollystory/utils/story"
)

const (
	defaultDatasetName = "data.csv"
	heartbeatInterval  = 15 * time.Second
)

// runFunc performs one generation or refactor on a session
type runFunc func(ctx context.Context, g *story.Generator) (*story.Result, error)

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	var reqErr *models.ProviderRequestError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, models.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, profile.ErrMalformedInput), errors.Is(err, story.ErrMissingInstructions):
		return http.StatusBadRequest
	case errors.Is(err, story.ErrBusy), errors.Is(err, story.ErrNoDocument):
		return http.StatusConflict
	case errors.As(err, &reqErr):
		return http.StatusBadGateway
	case errors.Is(err, extract.ErrNoDocumentFound), errors.Is(err, extract.ErrIncompleteDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStreamTruncated):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// generator resolves the provider for one request
func (s *Server) generator(providerName, model string, temperature *float64) (*story.Generator, error) {
	provider, err := models.ResolveProvider(s.envConfig, providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotConfigured, err)
	}
	provider = provider.WithModel(model)
	if !provider.Usable() {
		return nil, models.ErrNotConfigured
	}

	g := story.NewGenerator(s.client, provider)
	g.Options.Temperature = s.envConfig.GetGenerationConfig().SamplingTemperature()
	if temperature != nil {
		g.Options.Temperature = *temperature
	}
	config.DebugLog("Using provider %s", provider)
	return g, nil
}

func (s *Server) response(sessionID string, session *story.Session, result *story.Result) GenerateResponse {
	return GenerateResponse{
		Success:  true,
		Session:  sessionID,
		FileName: session.FileName(),
		HTML:     result.Document.HTML,
		Model:    result.Model,
		Warnings: result.Warnings,
		Profile:  result.Profile,
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.generate(w, r, req, req.Stream)
}

func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.generate(w, r, req, true)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, req GenerateRequest, stream bool) {
	if strings.TrimSpace(req.CSV) == "" {
		writeError(w, http.StatusBadRequest, "csv is required")
		return
	}
	if req.FileName == "" {
		req.FileName = defaultDatasetName
	}

	g, err := s.generator(req.Provider, req.Model, req.Temperature)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	sessionID, session, ok := s.sessions.getOrCreate(req.Session)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	config.VerboseLog("Generating story for %s in session %s", req.FileName, sessionID)
	run := func(ctx context.Context, g *story.Generator) (*story.Result, error) {
		return session.Generate(ctx, g, story.Request{
			CSV:          req.CSV,
			FileName:     req.FileName,
			StoryStyle:   req.StoryStyle,
			Instructions: req.Instructions,
			Stream:       stream,
		})
	}

	if stream {
		s.stream(w, r, sessionID, session, g, run)
		return
	}
	s.respond(w, r, sessionID, session, g, run)
}

func (s *Server) handleRefactor(w http.ResponseWriter, r *http.Request) {
	var req RefactorRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Instructions) == "" {
		writeError(w, http.StatusBadRequest, story.ErrMissingInstructions.Error())
		return
	}

	session, ok := s.sessions.get(req.Session)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	g, err := s.generator(req.Provider, req.Model, req.Temperature)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	config.VerboseLog("Refactoring story in session %s", req.Session)
	run := func(ctx context.Context, g *story.Generator) (*story.Result, error) {
		return session.Refactor(ctx, g, req.Instructions, req.Stream)
	}

	if req.Stream {
		s.stream(w, r, req.Session, session, g, run)
		return
	}
	s.respond(w, r, req.Session, session, g, run)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, sessionID string, session *story.Session, g *story.Generator, run runFunc) {
	result, err := run(r.Context(), g)
	if err != nil {
		config.VerboseLog("Generation failed: %v", err)
		writeJSON(w, statusFor(err), GenerateResponse{Success: false, Session: sessionID, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.response(sessionID, session, result))
}

type outcome struct {
	result *story.Result
	err    error
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, sessionID string, session *story.Session, g *story.Generator, run runFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		config.DebugLog("Streaming requested but flusher not available, type: %T", w)
		writeError(w, http.StatusInternalServerError, "Streaming is not supported by this server configuration")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Session-Id", sessionID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sw := &sseWriter{w: w, f: flusher}
	ctx := r.Context()

	updates := make(chan progress.Update)
	counter := progress.NewFragmentCounter(progress.NewChannelWriter(ctx, updates))
	g.OnFragment = counter.Add

	_ = sw.SendProgress("Generating story")

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				config.ErrorLog("Panic in generation goroutine: %v", rec)
				done <- outcome{err: fmt.Errorf("internal server error: %v", rec)}
			}
		}()
		result, err := run(ctx, g)
		done <- outcome{result: result, err: err}
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			config.DebugLog("Client connection closed: %v", ctx.Err())
			return
		case update := <-updates:
			_ = sw.SendFragment(update.Message, update.Chars)
		case o := <-done:
			if o.err != nil {
				config.VerboseLog("Streaming generation failed: %v", o.err)
				_ = sw.SendError(o.err, statusFor(o.err))
				return
			}
			_ = sw.SendComplete(s.response(sessionID, session, o.result))
			return
		case <-heartbeat.C:
			_ = sw.SendHeartbeat()
		}
	}
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.get(r.URL.Query().Get("session"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	doc, ok := session.Document()
	if !ok {
		writeError(w, http.StatusNotFound, "no document has been generated in this session")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("inline") != "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", story.DefaultFileName))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc.HTML)); err != nil {
		config.DebugLog("Error writing document: %v", err)
	}
}

func (s *Server) handleGetProviders(w http.ResponseWriter, r *http.Request) {
	resp := ProviderListResponse{Success: true, Providers: []ProviderInfo{}}
	for _, name := range s.envConfig.ProviderNames() {
		stored, err := s.envConfig.GetProviderConfig(name)
		if err != nil {
			config.DebugLog("Skipping provider %s: %v", name, err)
			continue
		}
		p, err := models.FromConfig(name, stored)
		if err != nil {
			config.DebugLog("Skipping provider %s: %v", name, err)
			continue
		}
		resp.Providers = append(resp.Providers, ProviderInfo{
			Name:    name,
			Kind:    p.Kind.String(),
			BaseURL: p.Endpoint(),
			Model:   p.ResolvedModel(),
			APIKey:  config.MaskKey(p.APIKey),
			Models:  p.Models,
			Default: name == s.envConfig.DefaultProvider,
			Usable:  p.Usable(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateProvider(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, &req) {
		return
	}

	var provider models.ProviderConfig
	switch {
	case req.Provider != "":
		p, err := models.ResolveProvider(s.envConfig, req.Provider)
		if err != nil {
			writeJSON(w, http.StatusNotFound, ValidateResponse{Success: false, Error: err.Error()})
			return
		}
		provider = p.WithModel(req.Model)
	case req.BaseURL != "" || req.APIKey != "":
		provider = models.NewProviderConfig(req.BaseURL, req.APIKey, req.Model)
	default:
		writeError(w, http.StatusBadRequest, "provider or baseUrl and apiKey are required")
		return
	}

	if err := s.client.Validate(r.Context(), provider); err != nil {
		config.VerboseLog("Provider validation failed for %s: %v", provider, err)
		writeJSON(w, statusFor(err), ValidateResponse{Success: false, Kind: provider.Kind.String(), Error: err.Error()})
		return
	}
	resp := ValidateResponse{Success: true, Kind: provider.Kind.String()}
	if ids, err := s.client.ListModels(r.Context(), provider); err == nil {
		resp.Models = ids
	}
	writeJSON(w, http.StatusOK, resp)
}

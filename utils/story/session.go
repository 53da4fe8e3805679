package story

import (
	"context"
	"errors"
	"sync"

	"github.com/kris-hansen/scrollystory/utils/extract"
	"github.com/kris-hansen/scrollystory/utils/profile"
)

var (
	// ErrBusy is returned when a session already has a generation in flight
	ErrBusy = errors.New("a generation is already in progress for this session")
	// ErrNoDocument is returned when refactoring a session that has no document yet
	ErrNoDocument = errors.New("no generated document to refactor")
)

// Session holds the current dataset and the last generated document.
// One generation runs at a time; the document is replaced only on success.
type Session struct {
	mu       sync.Mutex
	busy     bool
	csv      string
	fileName string
	profile  *profile.Profile
	document *extract.Document
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release(req Request, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if result == nil {
		return
	}
	s.csv = req.CSV
	s.fileName = req.FileName
	s.profile = result.Profile
	doc := result.Document
	s.document = &doc
}

// Generate runs a request and keeps its document on success
func (s *Session) Generate(ctx context.Context, g *Generator, req Request) (result *Result, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer func() { s.release(req, result) }()

	return g.Run(ctx, req)
}

// Refactor modifies the current document using the session's dataset
func (s *Session) Refactor(ctx context.Context, g *Generator, instructions string, stream bool) (result *Result, err error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	var req Request
	defer func() { s.release(req, result) }()

	s.mu.Lock()
	doc := s.document
	req = Request{
		CSV:          s.csv,
		FileName:     s.fileName,
		Instructions: instructions,
		Stream:       stream,
	}
	s.mu.Unlock()

	if doc == nil {
		return nil, ErrNoDocument
	}
	req.PreviousHTML = doc.HTML

	return g.Run(ctx, req)
}

// Document returns the last generated document
func (s *Session) Document() (extract.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document == nil {
		return extract.Document{}, false
	}
	return *s.document, true
}

// Profile returns the profile of the current dataset
func (s *Session) Profile() *profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// FileName returns the name of the current dataset
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// Busy reports whether a generation is in flight
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

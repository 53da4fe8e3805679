package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kris-hansen/scrollystory/utils/story"
)

// sessionStore keeps story sessions in memory for the life of the process
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*story.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*story.Session)}
}

func (st *sessionStore) create() (string, *story.Session) {
	id := uuid.NewString()
	session := story.NewSession()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[id] = session
	return id, session
}

func (st *sessionStore) get(id string) (*story.Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	session, ok := st.sessions[id]
	return session, ok
}

// getOrCreate returns the named session, or a new one when id is empty
func (st *sessionStore) getOrCreate(id string) (string, *story.Session, bool) {
	if id == "" {
		id, session := st.create()
		return id, session, true
	}
	session, ok := st.get(id)
	return id, session, ok
}

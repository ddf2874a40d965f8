package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"docchat/internal/models"
)

// Session carries per-browser state: the API key, the selected query mode
// and the chat history. The mutex serializes requests so a session has at
// most one call in flight, mirroring the blocking UI.
type Session struct {
	ID string

	mu     sync.Mutex
	apiKey string
	mode   models.QueryMode
	turns  []models.ChatTurn
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Callers must hold the session lock for the accessors below.

func (s *Session) APIKey() string         { return s.apiKey }
func (s *Session) Mode() models.QueryMode { return s.mode }

func (s *Session) Turns() []models.ChatTurn {
	turns := make([]models.ChatTurn, len(s.turns))
	copy(turns, s.turns)
	return turns
}

func (s *Session) SetAPIKey(key string)            { s.apiKey = key }
func (s *Session) SetMode(mode models.QueryMode)   { s.mode = mode }
func (s *Session) AppendTurn(turn models.ChatTurn) { s.turns = append(s.turns, turn) }
func (s *Session) ClearTurns()                     { s.turns = nil }

// SessionStore hands out cookie-bound sessions. State is in-memory only;
// nothing survives a restart.
type SessionStore struct {
	cookieName  string
	defaultKey  string
	defaultMode models.QueryMode

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore(cookieName, defaultKey string, defaultMode models.QueryMode) *SessionStore {
	if cookieName == "" {
		cookieName = "docchat_session"
	}
	if defaultMode == "" {
		defaultMode = models.ModeHybrid
	}
	return &SessionStore{
		cookieName:  cookieName,
		defaultKey:  defaultKey,
		defaultMode: defaultMode,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the session bound to the request cookie, creating one (and
// setting the cookie) on first contact.
func (st *SessionStore) Get(c echo.Context) *Session {
	if cookie, err := c.Cookie(st.cookieName); err == nil {
		st.mu.RLock()
		session, ok := st.sessions[cookie.Value]
		st.mu.RUnlock()
		if ok {
			return session
		}
	}

	session := &Session{
		ID:     uuid.NewString(),
		apiKey: st.defaultKey,
		mode:   st.defaultMode,
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()

	c.SetCookie(&http.Cookie{
		Name:     st.cookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return session
}

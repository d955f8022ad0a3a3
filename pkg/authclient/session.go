package authclient

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const (
	// storageKey matches the key the mobile app persists its session under.
	storageKey    = "auth-storage"
	schemaVersion = 1
)

// User is the public profile the backend returns.
type User struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Provider            string `json:"provider"`
	FirstName           string `json:"firstName,omitempty"`
	LastName            string `json:"lastName,omitempty"`
	AvatarURL           string `json:"avatarUrl,omitempty"`
	Role                string `json:"role"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

// Session is the client-side mirror of {user, accessToken, refreshToken}.
// IsAuthenticated is derived: true only while both credentials are present.
type Session struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type persistedState struct {
	State   Session `json:"state"`
	Version int     `json:"version"`
}

// SessionStore is the single source of truth for session state. It is an
// explicit injected object, not a package singleton: construct one, hand it
// to the Client and to whatever composes the UI, and subscribe for changes.
//
// Consumers must not make authorization decisions until Hydrated reports
// true; before that, "empty" only means "not loaded yet".
type SessionStore struct {
	mu       sync.RWMutex
	storage  Storage
	logger   *zap.Logger
	session  Session
	hydrated bool

	subs      map[int]func(Session)
	nextSubID int
}

func NewSessionStore(storage Storage, logger *zap.Logger) *SessionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		storage: storage,
		logger:  logger,
		subs:    make(map[int]func(Session)),
	}
}

// Hydrate loads the persisted session. Storage failures are logged and
// treated as "no session": local state is a cache, the backend is the source
// of truth.
func (s *SessionStore) Hydrate() {
	s.mu.Lock()

	data, err := s.storage.Get(storageKey)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		// first run
	case err != nil:
		s.logger.Warn("session storage read failed", zap.Error(err))
	default:
		var state persistedState
		if err := json.Unmarshal(data, &state); err != nil {
			s.logger.Warn("persisted session corrupt", zap.Error(err))
		} else {
			s.session = state.State
			s.session.IsAuthenticated = s.session.AccessToken != "" && s.session.RefreshToken != ""
		}
	}
	s.hydrated = true

	session := s.session
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

// Hydrated distinguishes "not yet loaded from disk" from "loaded and empty".
func (s *SessionStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *SessionStore) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Set replaces the whole session, recomputing IsAuthenticated.
func (s *SessionStore) Set(session Session) {
	session.IsAuthenticated = session.AccessToken != "" && session.RefreshToken != ""
	s.update(session)
}

// SetTokens swaps in a rotated credential pair, keeping the user.
func (s *SessionStore) SetTokens(accessToken, refreshToken string) {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	session.AccessToken = accessToken
	session.RefreshToken = refreshToken
	session.IsAuthenticated = accessToken != "" && refreshToken != ""
	s.update(session)
}

func (s *SessionStore) SetUser(user *User) {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	session.User = user
	s.update(session)
}

// Clear wipes both the in-memory session and the persisted copy.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.session = Session{}
	if err := s.storage.Remove(storageKey); err != nil {
		s.logger.Warn("session storage remove failed", zap.Error(err))
	}
	session := s.session
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

// Subscribe registers an observer and returns its unsubscribe func. The
// observer runs after every state change, outside the store lock.
func (s *SessionStore) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) update(session Session) {
	s.mu.Lock()
	s.session = session
	s.persistLocked()
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(session)
	}
}

func (s *SessionStore) persistLocked() {
	data, err := json.Marshal(persistedState{State: s.session, Version: schemaVersion})
	if err != nil {
		s.logger.Warn("session marshal failed", zap.Error(err))
		return
	}
	if err := s.storage.Set(storageKey, data); err != nil {
		s.logger.Warn("session storage write failed", zap.Error(err))
	}
}

func (s *SessionStore) snapshotSubs() []func(Session) {
	out := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

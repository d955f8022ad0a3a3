package authclient

import (
	"encoding/json"
	"errors"
	"testing"
)

type memStorage struct {
	values map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{values: make(map[string][]byte)}
}

func (s *memStorage) Get(key string) ([]byte, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (s *memStorage) Set(key string, value []byte) error {
	s.values[key] = value
	return nil
}

func (s *memStorage) Remove(key string) error {
	delete(s.values, key)
	return nil
}

func seedPersistedSession(t *testing.T, storage Storage, session Session) {
	t.Helper()
	data, err := json.Marshal(persistedState{State: session, Version: schemaVersion})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := storage.Set(storageKey, data); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSessionStoreHydrationGating(t *testing.T) {
	storage := newMemStorage()
	seedPersistedSession(t, storage, Session{
		User:         &User{ID: "u-1", Email: "a@b.com"},
		AccessToken:  "access",
		RefreshToken: "refresh",
	})

	store := NewSessionStore(storage, nil)

	// before Hydrate the store must read as "unknown", never "signed out"
	if store.Hydrated() {
		t.Fatal("store reports hydrated before Hydrate")
	}
	if store.Current().IsAuthenticated {
		t.Fatal("store reports authenticated before Hydrate")
	}

	store.Hydrate()

	if !store.Hydrated() {
		t.Fatal("store not hydrated after Hydrate")
	}
	session := store.Current()
	if !session.IsAuthenticated {
		t.Fatal("persisted session not restored as authenticated")
	}
	if session.User == nil || session.User.ID != "u-1" {
		t.Fatalf("user not restored: %+v", session.User)
	}
}

func TestSessionStoreHydrateEmpty(t *testing.T) {
	store := NewSessionStore(newMemStorage(), nil)
	store.Hydrate()

	if !store.Hydrated() {
		t.Fatal("first run must still mark the store hydrated")
	}
	if store.Current().IsAuthenticated {
		t.Fatal("empty store reports authenticated")
	}
}

func TestSessionStoreHydrateCorrupt(t *testing.T) {
	storage := newMemStorage()
	if err := storage.Set(storageKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewSessionStore(storage, nil)
	store.Hydrate()

	if !store.Hydrated() {
		t.Fatal("corrupt state must not block hydration")
	}
	if store.Current().IsAuthenticated {
		t.Fatal("corrupt state restored as authenticated")
	}
}

func TestSessionStoreDerivesIsAuthenticated(t *testing.T) {
	store := NewSessionStore(newMemStorage(), nil)

	store.Set(Session{AccessToken: "a", RefreshToken: ""})
	if store.Current().IsAuthenticated {
		t.Fatal("authenticated without a refresh token")
	}

	store.Set(Session{AccessToken: "a", RefreshToken: "r", IsAuthenticated: false})
	if !store.Current().IsAuthenticated {
		t.Fatal("IsAuthenticated must be derived, not taken from the input")
	}
}

func TestSessionStorePersistsAndClears(t *testing.T) {
	storage := newMemStorage()
	store := NewSessionStore(storage, nil)
	store.Hydrate()

	store.Set(Session{User: &User{ID: "u-1"}, AccessToken: "a", RefreshToken: "r"})

	data, err := storage.Get(storageKey)
	if err != nil {
		t.Fatalf("persisted state missing: %v", err)
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("persisted state malformed: %v", err)
	}
	if state.Version != schemaVersion || state.State.AccessToken != "a" {
		t.Fatalf("unexpected persisted payload: %+v", state)
	}

	store.Clear()
	if store.Current().IsAuthenticated || store.Current().User != nil {
		t.Fatal("session not cleared")
	}
	if _, err := storage.Get(storageKey); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("persisted state still present after Clear: %v", err)
	}
}

func TestSessionStoreSubscribe(t *testing.T) {
	store := NewSessionStore(newMemStorage(), nil)

	var got []Session
	unsubscribe := store.Subscribe(func(s Session) {
		got = append(got, s)
	})

	store.Set(Session{AccessToken: "a", RefreshToken: "r"})
	if len(got) != 1 || !got[0].IsAuthenticated {
		t.Fatalf("observer not notified: %+v", got)
	}

	store.SetTokens("a2", "r2")
	if len(got) != 2 || got[1].AccessToken != "a2" {
		t.Fatalf("observer missed token swap: %+v", got)
	}

	unsubscribe()
	store.Clear()
	if len(got) != 2 {
		t.Fatalf("observer ran after unsubscribe: %d notifications", len(got))
	}
}

func TestSessionStoreSetUserKeepsTokens(t *testing.T) {
	store := NewSessionStore(newMemStorage(), nil)
	store.Set(Session{AccessToken: "a", RefreshToken: "r"})

	store.SetUser(&User{ID: "u-1", OnboardingCompleted: true})

	session := store.Current()
	if session.AccessToken != "a" || session.RefreshToken != "r" {
		t.Fatalf("tokens lost on SetUser: %+v", session)
	}
	if session.User == nil || !session.User.OnboardingCompleted {
		t.Fatalf("user not updated: %+v", session.User)
	}
}

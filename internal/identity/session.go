package identity

import (
	"sync"

	"github.com/lianamed/pharmacy-api/internal/kv"
)

// userIDKey is where the session records the logged-in user.
const userIDKey = "userId"

var _ Provider = (*Session)(nil)

// Session is a Provider backed by the shared kv substrate: the logged-in
// user id lives under the "userId" key, exactly as the session storage the
// login flow writes to. Store subscribers see cross-process changes; Login
// and Logout additionally fire subscribers directly, since a substrate does
// not notify for writes originating in the same process.
type Session struct {
	store kv.Store

	mu      sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewSession returns a Session provider over the given store.
func NewSession(store kv.Store) *Session {
	s := &Session{
		store: store,
		subs:  make(map[int]func()),
	}
	store.Subscribe(func(key string) {
		if key == userIDKey {
			s.notify()
		}
	})
	return s
}

func (s *Session) CurrentUserID() (string, bool) {
	id, ok := s.store.Get(userIDKey)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Login records userID as the current user and signals subscribers.
func (s *Session) Login(userID string) {
	_ = s.store.Set(userIDKey, userID)
	s.notify()
}

// Logout clears the current user and signals subscribers.
func (s *Session) Logout() {
	_ = s.store.Remove(userIDKey)
	s.notify()
}

func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

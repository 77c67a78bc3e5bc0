package service

import (
	"sort"
	"sync"
)

// Session is the in-memory view of who is logged in. An empty token means
// anonymous. SetToken is the only way to change it; SetToken("") is logout.
//
// SetToken does not touch the token store: callers that obtained a new pair
// write it to the store first and then call SetToken.
type Session struct {
	// notifyMu keeps listener calls in the same order as the writes.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	token   string
	subs    map[int]func(string)
	nextSub int
}

func NewSession(initial string) *Session {
	return &Session{
		token: initial,
		subs:  make(map[int]func(string)),
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken replaces the current token and notifies listeners if it changed.
// Listeners run synchronously and must not call SetToken themselves.
func (s *Session) SetToken(token string) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.token == token {
		s.mu.Unlock()
		return
	}
	s.token = token
	listeners := s.listeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(token)
	}
}

// Subscribe registers fn for token changes and returns a func that removes it.
func (s *Session) Subscribe(fn func(token string)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// listeners returns subscribers in registration order. Caller holds s.mu.
func (s *Session) listeners() []func(string) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]func(string), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

package app

import (
	"sync"

	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/search"
)

// State holds the last snapshot successfully read from the store and the
// active search query. Only Controller.Refresh replaces the snapshot, and it
// always replaces it whole.
type State struct {
	mu       sync.RWMutex
	posts    []model.Post
	query    string
	loaded   bool
	inflight map[string]struct{}
}

// NewState returns an empty, not yet loaded state.
func NewState() *State {
	return &State{inflight: make(map[string]struct{})}
}

// Posts returns a copy of the snapshot.
func (s *State) Posts() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Post(nil), s.posts...)
}

// Visible returns the snapshot narrowed by the active query.
func (s *State) Visible() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return search.Filter(s.query, s.posts)
}

// Query returns the active search query.
func (s *State) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// SetQuery changes the active search query. It never touches the snapshot.
func (s *State) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// Loaded reports whether at least one List has succeeded.
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Find returns the post with the given id from the snapshot.
func (s *State) Find(id string) (model.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return model.Post{}, false
}

// InFlight reports whether a mutation for key is running.
func (s *State) InFlight(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inflight[key]
	return ok
}

func (s *State) replace(posts []model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]model.Post(nil), posts...)
	s.loaded = true
}

func (s *State) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[key]; ok {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *State) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

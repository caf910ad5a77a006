package scraper

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// session holds the transient per-run state: the dedupe seen-set, the
// cached cosplayer name, the abort flag, and an opaque identifier used to
// correlate out-of-band abort notifications with the in-flight run. A new
// session is created for every Run invocation; nothing persists across runs.
type session struct {
	id      string
	aborted atomic.Bool

	mu   sync.Mutex
	seen map[string]struct{}
	name string
}

func newSession() *session {
	return &session{
		id:   "session_" + uuid.NewString(),
		seen: make(map[string]struct{}),
	}
}

// markSeen records a dedupe key, reporting whether it was new.
func (s *session) markSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *session) abort() {
	s.aborted.Store(true)
}

func (s *session) isAborted() bool {
	return s.aborted.Load()
}

// setName caches the cosplayer display name; the first writer wins so the
// profile loader and the page loop never clobber each other.
func (s *session) setName(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name == "" {
		s.name = name
	}
}

func (s *session) cosplayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

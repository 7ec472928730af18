package pipeline

import (
	"sync"

	"github.com/lysyi3m/rss-herald/internal/metrics"
)

// SeenSet is the in-memory mirror of the link store.
type SeenSet struct {
	mu    sync.RWMutex
	links map[string]struct{}
}

func NewSeenSet(links []string) *SeenSet {
	s := &SeenSet{links: make(map[string]struct{}, len(links))}
	s.Add(links...)
	return s
}

func (s *SeenSet) Contains(link string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[link]
	return ok
}

func (s *SeenSet) Add(links ...string) {
	s.mu.Lock()
	for _, link := range links {
		s.links[link] = struct{}{}
	}
	size := len(s.links)
	s.mu.Unlock()

	metrics.SeenLinks.Set(float64(size))
}

func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}

package gossip

import (
	"sort"
	"sync"
)

// PeerSet is the set of peers a node knows about.
type PeerSet struct {
	mu  sync.RWMutex
	ids map[int]struct{}
}

// NewPeerSet creates an empty set.
func NewPeerSet() *PeerSet {
	return &PeerSet{ids: make(map[int]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *PeerSet) Add(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; exists {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *PeerSet) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; !exists {
		return false
	}
	delete(s.ids, id)
	return true
}

// Contains reports whether id is in the set.
func (s *PeerSet) Contains(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.ids[id]
	return exists
}

// IDs returns the members in ascending order.
func (s *PeerSet) IDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Ints(ids)
	return ids
}

// Len returns the number of members.
func (s *PeerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

package gossip

import (
	"sort"
	"sync"
	"time"
)

// NoTarget is returned by peer selection when no peer qualifies.
const NoTarget = -1

// PeerLoad is the last queue length gossiped by a peer.
type PeerLoad struct {
	ID        int       `json:"id"`
	Load      int       `json:"load"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadView is a node's eventually consistent view of its peers' loads.
// Entries lag reality by up to one gossip interval.
type LoadView struct {
	mu      sync.RWMutex
	localID int
	loads   map[int]*PeerLoad // peer id -> last reported load
	now     func() time.Time
}

// ViewOption configures a LoadView.
type ViewOption func(*LoadView)

// WithClock sets the time source used to stamp and expire entries.
func WithClock(now func() time.Time) ViewOption {
	return func(v *LoadView) {
		if now != nil {
			v.now = now
		}
	}
}

// NewLoadView creates an empty view owned by localID.
func NewLoadView(localID int, opts ...ViewOption) *LoadView {
	v := &LoadView{
		localID: localID,
		loads:   make(map[int]*PeerLoad),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Apply records load as the latest value reported by peerID. Reports about
// the local node are ignored.
func (v *LoadView) Apply(peerID, load int) {
	if peerID == v.localID {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if pl, exists := v.loads[peerID]; exists {
		pl.Load = load
		pl.UpdatedAt = v.now()
		return
	}
	v.loads[peerID] = &PeerLoad{
		ID:        peerID,
		Load:      load,
		UpdatedAt: v.now(),
	}
}

// Forget drops the entry for peerID.
func (v *LoadView) Forget(peerID int) {
	v.mu.Lock()
	delete(v.loads, peerID)
	v.mu.Unlock()
}

// Expire drops entries not refreshed within maxAge and returns their ids.
func (v *LoadView) Expire(maxAge time.Duration) []int {
	now := v.now()

	v.mu.Lock()
	defer v.mu.Unlock()

	var expired []int
	for id, pl := range v.loads {
		if now.Sub(pl.UpdatedAt) > maxAge {
			delete(v.loads, id)
			expired = append(expired, id)
		}
	}
	sort.Ints(expired)
	return expired
}

// BestPeer selects a migration target for a node whose own load is ownLoad.
// Only peers accepted by eligible are considered; a nil eligible accepts all.
func (v *LoadView) BestPeer(ownLoad int, eligible func(id int) bool) int {
	loads := v.Loads()
	if eligible != nil {
		for id := range loads {
			if !eligible(id) {
				delete(loads, id)
			}
		}
	}
	return SelectBestPeer(loads, ownLoad)
}

// Loads returns a copy of the view as peer id -> load.
func (v *LoadView) Loads() map[int]int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[int]int, len(v.loads))
	for id, pl := range v.loads {
		out[id] = pl.Load
	}
	return out
}

// Snapshot returns the entries ordered by peer id.
func (v *LoadView) Snapshot() []PeerLoad {
	v.mu.RLock()
	snapshot := make([]PeerLoad, 0, len(v.loads))
	for _, pl := range v.loads {
		snapshot = append(snapshot, *pl)
	}
	v.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ID < snapshot[j].ID
	})
	return snapshot
}

// Len returns the number of known peers.
func (v *LoadView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.loads)
}

// SelectBestPeer returns the peer with the lowest load strictly below
// ownLoad, preferring the lowest id on ties, or NoTarget.
func SelectBestPeer(loads map[int]int, ownLoad int) int {
	best, bestLoad := NoTarget, ownLoad
	for id, load := range loads {
		if load < bestLoad || (load == bestLoad && best != NoTarget && id < best) {
			best, bestLoad = id, load
		}
	}
	return best
}

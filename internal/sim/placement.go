package sim

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/FaultyJuggler/DecentralizedLoadBalancerSimulator/internal/ring"
)

// placer picks the node a new task is submitted to. Candidates come in the
// order they should be tried.
type placer interface {
	candidates(taskID uint64) []int
	add(id int)
	remove(id int)
}

// randomPlacer picks uniformly among live nodes and falls back to the rest
// in ascending order.
type randomPlacer struct {
	mu   sync.Mutex
	rng  *rand.Rand
	live []int
}

func newRandomPlacer(seed uint64) *randomPlacer {
	return &randomPlacer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *randomPlacer) candidates(uint64) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.live) == 0 {
		return nil
	}
	first := p.rng.IntN(len(p.live))
	out := make([]int, 0, len(p.live))
	out = append(out, p.live[first])
	for i, id := range p.live {
		if i != first {
			out = append(out, id)
		}
	}
	return out
}

func (p *randomPlacer) add(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i, found := slices.BinarySearch(p.live, id); !found {
		p.live = slices.Insert(p.live, i, id)
	}
}

func (p *randomPlacer) remove(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i, found := slices.BinarySearch(p.live, id); found {
		p.live = slices.Delete(p.live, i, i+1)
	}
}

// hashPlacer places a task on the ring owner of its id, then the rest of
// the preference list.
type hashPlacer struct {
	ring *ring.Ring
}

func newHashPlacer(vnodes int) *hashPlacer {
	return &hashPlacer{ring: ring.NewRing(vnodes)}
}

func (p *hashPlacer) candidates(taskID uint64) []int {
	return p.ring.PreferenceList(taskID, p.ring.Len())
}

func (p *hashPlacer) add(id int)    { p.ring.AddNode(id) }
func (p *hashPlacer) remove(id int) { p.ring.RemoveNode(id) }

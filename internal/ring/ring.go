package ring

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
)

// vnode is a virtual node position on the ring.
type vnode struct {
	hash   uint32
	nodeID int
}

// Ring maps uint64 keys to node ids.
type Ring struct {
	mu            sync.RWMutex
	vnodesPerNode int
	vnodes        []vnode
	nodes         map[int]struct{}
}

// NewRing creates an empty ring.
func NewRing(vnodesPerNode int) *Ring {
	if vnodesPerNode <= 0 {
		vnodesPerNode = 128 // default
	}
	return &Ring{
		vnodesPerNode: vnodesPerNode,
		vnodes:        make([]vnode, 0),
		nodes:         make(map[int]struct{}),
	}
}

// SetNodes rebuilds the ring from ids. The result does not depend on the
// order of ids.
func (r *Ring) SetNodes(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[int]struct{}, len(ids))
	r.vnodes = make([]vnode, 0, len(ids)*r.vnodesPerNode)

	for _, id := range ids {
		if _, exists := r.nodes[id]; exists {
			continue
		}
		r.nodes[id] = struct{}{}
		for i := 0; i < r.vnodesPerNode; i++ {
			r.vnodes = append(r.vnodes, vnode{hash: vnodeHash(id, i), nodeID: id})
		}
	}

	r.sortVnodes()
}

// AddNode adds id to the ring.
func (r *Ring) AddNode(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; exists {
		return
	}

	r.nodes[id] = struct{}{}
	for i := 0; i < r.vnodesPerNode; i++ {
		r.vnodes = append(r.vnodes, vnode{hash: vnodeHash(id, i), nodeID: id})
	}
	r.sortVnodes()
}

// RemoveNode removes id from the ring.
func (r *Ring) RemoveNode(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[id]; !exists {
		return
	}

	delete(r.nodes, id)
	kept := make([]vnode, 0, len(r.vnodes))
	for _, v := range r.vnodes {
		if v.nodeID != id {
			kept = append(kept, v)
		}
	}
	r.vnodes = kept
}

// Owner returns the node responsible for key, or false if the ring is empty.
func (r *Ring) Owner(key uint64) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.vnodes) == 0 {
		return 0, false
	}
	return r.vnodes[r.search(keyHash(key))].nodeID, true
}

// PreferenceList returns up to k distinct nodes for key, starting with the
// owner and walking the ring clockwise.
func (r *Ring) PreferenceList(key uint64, k int) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.vnodes) == 0 || k <= 0 {
		return []int{}
	}

	idx := r.search(keyHash(key))
	seen := make(map[int]bool)
	result := make([]int, 0, k)

	for i := 0; i < len(r.vnodes) && len(result) < k; i++ {
		id := r.vnodes[(idx+i)%len(r.vnodes)].nodeID
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}

// Nodes returns the ids on the ring in ascending order.
func (r *Ring) Nodes() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of nodes on the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// search returns the index of the first vnode at or after h, wrapping
// around. Must be called with the lock held and a non-empty ring.
func (r *Ring) search(h uint32) int {
	idx := sort.Search(len(r.vnodes), func(i int) bool {
		return r.vnodes[i].hash >= h
	})
	if idx >= len(r.vnodes) {
		idx = 0
	}
	return idx
}

// sortVnodes orders vnodes by hash, breaking collisions by node id so the
// layout is independent of insertion order.
func (r *Ring) sortVnodes() {
	sort.Slice(r.vnodes, func(i, j int) bool {
		if r.vnodes[i].hash != r.vnodes[j].hash {
			return r.vnodes[i].hash < r.vnodes[j].hash
		}
		return r.vnodes[i].nodeID < r.vnodes[j].nodeID
	})
}

// vnodeHash computes the FNV-1a position of the i-th virtual node of id.
func vnodeHash(id, i int) uint32 {
	h := fnv.New32a()
	h.Write([]byte(strconv.Itoa(id) + "-vnode-" + strconv.Itoa(i)))
	return h.Sum32()
}

func keyHash(key uint64) uint32 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], key)
	h := fnv.New32a()
	h.Write(buf[:])
	return h.Sum32()
}

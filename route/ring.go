package route

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

// DefaultVirtualNodes is the ring fan-out used when none is configured.
const DefaultVirtualNodes = 128

// Ring is a consistent-hash ring with virtual nodes. Each member owns many
// points on the ring, so adding or removing one member remaps only the keys
// that fell between its points and their successors, roughly 1/N of all
// keys.
type Ring struct {
	mu           sync.RWMutex
	virtualNodes int
	hashes       []uint64
	owners       map[uint64]string
}

// NewRing builds an empty ring. A non-positive virtualNodes selects
// DefaultVirtualNodes.
func NewRing(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		virtualNodes: virtualNodes,
		owners:       make(map[uint64]string),
	}
}

// Add places the member's virtual nodes on the ring.
func (r *Ring) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.virtualNodes; i++ {
		point := ringHash(fmt.Sprintf("%s#%d", id, i))
		if _, taken := r.owners[point]; taken {
			continue
		}
		r.owners[point] = id
		r.hashes = append(r.hashes, point)
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
}

// Remove takes the member's virtual nodes off the ring.
func (r *Ring) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.hashes[:0]
	for _, point := range r.hashes {
		if r.owners[point] == id {
			delete(r.owners, point)
			continue
		}
		kept = append(kept, point)
	}
	r.hashes = kept
}

// Get returns the member owning the key, walking clockwise from the key's
// point. Returns false on an empty ring.
func (r *Ring) Get(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.hashes) == 0 {
		return "", false
	}

	point := ringHash(key)
	idx := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= point })
	if idx == len(r.hashes) {
		idx = 0
	}
	return r.owners[r.hashes[idx]], true
}

// Len returns the number of virtual nodes on the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hashes)
}

func ringHash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

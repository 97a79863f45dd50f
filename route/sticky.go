package route

import (
	"context"
	"hash/fnv"

	pgroute "github.com/pgstack/go-pgroute"
)

// ErrEmptyReplicaSet rejects sticky routing over zero replicas before any
// hashing or modulo runs.
var ErrEmptyReplicaSet = pgroute.ClientError{
	Code: pgroute.ErrConfiguration,
	Msg:  "sticky routing requires at least one replica",
}

// StickyRouter deterministically pins each session key to one replica, so
// repeated reads of a session observe a single, monotonically advancing
// copy of the data. It does not guarantee read-your-writes: the pinned
// replica may not have replayed the session's latest write yet.
//
// By default assignment is keyed hash modulo replica count, matching a
// static replica set. Modulo remaps most keys when the set size changes;
// NewStickyRouterWithRing substitutes a consistent-hash ring that bounds
// remapping to roughly 1/N of keys.
type StickyRouter struct {
	registry *Registry
	ring     *Ring
}

// NewStickyRouter builds a modulo-assignment router. Fails with a
// configuration error if the registry has no replicas.
func NewStickyRouter(registry *Registry) (*StickyRouter, error) {
	if registry.ReplicaCount() == 0 {
		return nil, ErrEmptyReplicaSet
	}
	return &StickyRouter{registry: registry}, nil
}

// NewStickyRouterWithRing builds a consistent-hash-ring router with the
// given number of virtual nodes per replica.
func NewStickyRouterWithRing(registry *Registry, virtualNodes int) (*StickyRouter, error) {
	if registry.ReplicaCount() == 0 {
		return nil, ErrEmptyReplicaSet
	}

	ring := NewRing(virtualNodes)
	for _, replica := range registry.Replicas() {
		ring.Add(replica.Node.ID)
	}
	return &StickyRouter{registry: registry, ring: ring}, nil
}

func (sr *StickyRouter) Name() string {
	return "sticky"
}

// RecordWrite is a no-op: writes target the primary regardless of key and
// sticky assignment depends on nothing but the key itself.
func (sr *StickyRouter) RecordWrite(_ context.Context, _ *Session) error {
	return nil
}

// SelectReplica returns the replica the key maps to. Identical across any
// number of calls for a fixed key and replica set.
func (sr *StickyRouter) SelectReplica(key string) (Member, error) {
	replicas := sr.registry.Replicas()
	if len(replicas) == 0 {
		return Member{}, ErrEmptyReplicaSet
	}

	if sr.ring != nil {
		id, ok := sr.ring.Get(key)
		if !ok {
			return Member{}, ErrEmptyReplicaSet
		}
		replica, ok := sr.registry.Replica(id)
		if !ok {
			return Member{}, ErrEmptyReplicaSet
		}
		return replica, nil
	}

	return replicas[stickyHash(key)%uint64(len(replicas))], nil
}

// Pick maps the session id to its replica.
func (sr *StickyRouter) Pick(_ context.Context, sess *Session) (Decision, error) {
	replica, err := sr.SelectReplica(sess.ID())
	if err != nil {
		return Decision{}, err
	}
	return Decision{Node: replica.Node, Endpoint: replica.Endpoint, Label: LabelReplicaSticky}, nil
}

// stickyHash is FNV-1a 64: stable across processes and restarts, unlike
// Go's seeded map hash.
func stickyHash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

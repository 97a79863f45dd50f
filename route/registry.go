package route

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	pgroute "github.com/pgstack/go-pgroute"
)

var (
	ErrNoPrimary     = errors.New("registry requires exactly one primary endpoint")
	ErrNoReplicas    = errors.New("no replica endpoints registered")
	ErrRoleMismatch  = errors.New("node role does not match its registry slot")
	ErrDuplicateNode = errors.New("duplicate node id")
)

// Member pairs a node descriptor with its live endpoint.
type Member struct {
	Node     pgroute.Node
	Endpoint pgroute.Endpoint
}

// Registry is the static topology of one routing deployment: exactly one
// primary and zero or more replicas. It is immutable during a run; replica
// membership changes mean building a new Registry.
type Registry struct {
	primary  Member
	replicas []Member
	current  uint64
}

// NewRegistry validates the topology and builds a registry over it.
func NewRegistry(primary Member, replicas ...Member) (*Registry, error) {
	if primary.Endpoint == nil {
		return nil, ErrNoPrimary
	}
	if primary.Node.Role != pgroute.PrimaryRole {
		return nil, fmt.Errorf("%w: %s is not a primary", ErrRoleMismatch, primary.Node.ID)
	}

	seen := map[string]bool{primary.Node.ID: true}
	for _, replica := range replicas {
		if replica.Endpoint == nil || replica.Node.Role != pgroute.ReplicaRole {
			return nil, fmt.Errorf("%w: %s is not a replica", ErrRoleMismatch, replica.Node.ID)
		}
		if seen[replica.Node.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, replica.Node.ID)
		}
		seen[replica.Node.ID] = true
	}

	reg := &Registry{primary: primary}
	reg.replicas = append(reg.replicas, replicas...)
	return reg, nil
}

// Primary returns the sole write-accepting member.
func (reg *Registry) Primary() Member {
	return reg.primary
}

// Replicas returns a copy of the replica set in registration order.
func (reg *Registry) Replicas() []Member {
	replicas := make([]Member, len(reg.replicas))
	copy(replicas, reg.replicas)
	return replicas
}

// ReplicaCount returns the size of the replica set.
func (reg *Registry) ReplicaCount() int {
	return len(reg.replicas)
}

// Replica returns the replica with the given node id.
func (reg *Registry) Replica(id string) (Member, bool) {
	for _, replica := range reg.replicas {
		if replica.Node.ID == id {
			return replica, true
		}
	}
	return Member{}, false
}

// NextReplica returns replicas in round-robin order so unrelated sessions
// spread across the set.
func (reg *Registry) NextReplica() (Member, error) {
	if len(reg.replicas) == 0 {
		return Member{}, ErrNoReplicas
	}
	next := atomic.AddUint64(&reg.current, 1)
	return reg.replicas[(next-1)%uint64(len(reg.replicas))], nil
}

// Close closes every endpoint and aggregates their errors.
func (reg *Registry) Close() error {
	var result *multierror.Error

	if err := reg.primary.Endpoint.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	for _, replica := range reg.replicas {
		if err := replica.Endpoint.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

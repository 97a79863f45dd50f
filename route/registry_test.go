package route

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgroute "github.com/pgstack/go-pgroute"
	"github.com/pgstack/go-pgroute/test_helpers"
)

func TestNewRegistryValidation(t *testing.T) {
	primary := test_helpers.NewFakePrimary("primary")
	replica := test_helpers.NewFakeReplica("replica1")

	_, err := NewRegistry(Member{Node: primary.Node()})
	assert.ErrorIs(t, err, ErrNoPrimary)

	// A replica in the primary slot is rejected.
	_, err = NewRegistry(Member{Node: replica.Node(), Endpoint: replica})
	assert.ErrorIs(t, err, ErrRoleMismatch)

	// A primary in a replica slot is rejected.
	_, err = NewRegistry(
		Member{Node: primary.Node(), Endpoint: primary},
		Member{Node: primary.Node(), Endpoint: primary})
	assert.ErrorIs(t, err, ErrRoleMismatch)

	_, err = NewRegistry(
		Member{Node: primary.Node(), Endpoint: primary},
		Member{Node: replica.Node(), Endpoint: replica},
		Member{Node: replica.Node(), Endpoint: replica})
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestRegistryNextReplicaRoundRobin(t *testing.T) {
	registry, _, _ := newTestCluster(t, 2)

	expected := []string{"replica1", "replica2", "replica1", "replica2"}
	for i, id := range expected {
		member, err := registry.NextReplica()
		require.NoError(t, err)
		if member.Node.ID != id {
			t.Errorf("unexpected replica %s on call %d", member.Node.ID, i)
		}
	}
}

func TestRegistryNextReplicaEmpty(t *testing.T) {
	registry, _, _ := newTestCluster(t, 0)

	_, err := registry.NextReplica()
	assert.ErrorIs(t, err, ErrNoReplicas)
}

func TestRegistryReplicaByID(t *testing.T) {
	registry, _, _ := newTestCluster(t, 2)

	member, ok := registry.Replica("replica2")
	require.True(t, ok)
	assert.Equal(t, "replica2", member.Node.ID)
	assert.Equal(t, pgroute.ReplicaRole, member.Node.Role)

	_, ok = registry.Replica("replica9")
	assert.False(t, ok)
}

func TestRegistryCloseAggregatesErrors(t *testing.T) {
	registry, primary, replicas := newTestCluster(t, 2)

	primary.SetCloseError(errors.New("primary close failed"))
	replicas[1].SetCloseError(errors.New("replica2 close failed"))

	err := registry.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary close failed")
	assert.Contains(t, err.Error(), "replica2 close failed")
	assert.True(t, replicas[0].Closed())
}

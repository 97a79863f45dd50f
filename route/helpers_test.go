package route

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgstack/go-pgroute/test_helpers"
)

func newTestCluster(t *testing.T, replicaCount int) (*Registry, *test_helpers.FakeEndpoint, []*test_helpers.FakeEndpoint) {
	t.Helper()

	primary := test_helpers.NewFakePrimary("primary")

	var replicas []*test_helpers.FakeEndpoint
	var members []Member
	for i := 0; i < replicaCount; i++ {
		replica := test_helpers.NewFakeReplica(fmt.Sprintf("replica%d", i+1))
		replicas = append(replicas, replica)
		members = append(members, Member{Node: replica.Node(), Endpoint: replica})
	}

	registry, err := NewRegistry(Member{Node: primary.Node(), Endpoint: primary}, members...)
	require.NoError(t, err)
	return registry, primary, replicas
}

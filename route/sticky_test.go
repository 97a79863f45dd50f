package route

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgroute "github.com/pgstack/go-pgroute"
)

func TestStickyRouterRejectsEmptyReplicaSet(t *testing.T) {
	registry, _, _ := newTestCluster(t, 0)

	_, err := NewStickyRouter(registry)
	require.Error(t, err)

	var clierr pgroute.ClientError
	require.ErrorAs(t, err, &clierr)
	assert.Equal(t, uint32(pgroute.ErrConfiguration), clierr.Code)

	_, err = NewStickyRouterWithRing(registry, DefaultVirtualNodes)
	assert.ErrorAs(t, err, &clierr)
}

func TestStickyRouterSelectReplicaGuard(t *testing.T) {
	registry, _, _ := newTestCluster(t, 0)

	// Even a router built around an empty set must fail with a
	// configuration error before any modulo runs.
	sr := &StickyRouter{registry: registry}
	_, err := sr.SelectReplica("alice")
	assert.ErrorIs(t, err, ErrEmptyReplicaSet)
}

func TestStickyRouterDeterminism(t *testing.T) {
	registry, _, _ := newTestCluster(t, 3)
	sr, err := NewStickyRouter(registry)
	require.NoError(t, err)

	first, err := sr.SelectReplica("alice")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		member, err := sr.SelectReplica("alice")
		require.NoError(t, err)
		if member.Node.ID != first.Node.ID {
			t.Fatalf("assignment changed on call %d: %s != %s", i, member.Node.ID, first.Node.ID)
		}
	}
}

func TestStickyRouterDistribution(t *testing.T) {
	registry, _, _ := newTestCluster(t, 3)
	sr, err := NewStickyRouter(registry)
	require.NoError(t, err)

	counts := map[string]int{}
	const keys = 10000
	for i := 0; i < keys; i++ {
		member, err := sr.SelectReplica(fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		counts[member.Node.ID]++
	}

	require.Len(t, counts, 3)
	for id, count := range counts {
		assert.GreaterOrEqualf(t, count, keys/6, "replica %s starved", id)
		assert.LessOrEqualf(t, count, 2*keys/3, "replica %s overloaded", id)
	}
}

// Scenario: three session keys over a 2-node replica set; every key's
// repeated reads land on a single node.
func TestStickyRouterScenarioRepeatedReads(t *testing.T) {
	registry, _, _ := newTestCluster(t, 2)
	sr, err := NewStickyRouter(registry)
	require.NoError(t, err)

	for _, key := range []string{"alice", "bob", "carol"} {
		sess := &Session{id: key}

		first, err := sr.Pick(context.Background(), sess)
		require.NoError(t, err)
		assert.Equal(t, LabelReplicaSticky, first.Label)

		for i := 0; i < 5; i++ {
			decision, err := sr.Pick(context.Background(), sess)
			require.NoError(t, err)
			assert.Equalf(t, first.Node.ID, decision.Node.ID, "key %s call %d", key, i)
		}
	}
}

func TestStickyRouterRecordWriteKeepsSessionUntouched(t *testing.T) {
	registry, _, _ := newTestCluster(t, 2)
	sr, err := NewStickyRouter(registry)
	require.NoError(t, err)

	sess := &Session{id: "alice"}
	require.NoError(t, sr.RecordWrite(context.Background(), sess))

	_, ok := sess.LastWriteTime()
	assert.False(t, ok)
	_, ok = sess.LastWritePosition()
	assert.False(t, ok)
}

func TestStickyRouterRingModeDeterminism(t *testing.T) {
	registry, _, _ := newTestCluster(t, 3)
	sr, err := NewStickyRouterWithRing(registry, 64)
	require.NoError(t, err)

	first, err := sr.SelectReplica("alice")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		member, err := sr.SelectReplica("alice")
		require.NoError(t, err)
		assert.Equal(t, first.Node.ID, member.Node.ID)
	}
}

package route

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgroute "github.com/pgstack/go-pgroute"
)

func TestSessionStoreGetOrCreate(t *testing.T) {
	store := NewSessionStore()

	sess := store.GetOrCreate("alice")
	assert.Equal(t, "alice", sess.ID())
	assert.Same(t, sess, store.GetOrCreate("alice"))
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("bob")
	assert.False(t, ok)
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess := store.GetOrCreate("shared")
			if n%2 == 0 {
				sess.RecordWriteTime(time.Now())
				sess.RecordWritePosition(pgroute.Position(n))
			} else {
				sess.LastWriteTime()
				sess.LastWritePosition()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
	_, ok := store.GetOrCreate("shared").LastWritePosition()
	assert.True(t, ok)
}

func TestSessionWriteState(t *testing.T) {
	sess := &Session{id: "alice"}

	_, ok := sess.LastWriteTime()
	assert.False(t, ok)
	_, ok = sess.LastWritePosition()
	assert.False(t, ok)

	stamp := time.Now()
	sess.RecordWriteTime(stamp)
	sess.RecordWritePosition(pgroute.Position(0x2A00))

	last, ok := sess.LastWriteTime()
	require.True(t, ok)
	assert.Equal(t, stamp, last)

	pos, ok := sess.LastWritePosition()
	require.True(t, ok)
	assert.Equal(t, pgroute.Position(0x2A00), pos)
}

func TestSessionStoreSnapshotRoundTrip(t *testing.T) {
	store := NewSessionStore()

	alice := store.GetOrCreate("alice")
	alice.RecordWriteTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	alice.RecordWritePosition(pgroute.Position(0x16B374D848))
	store.GetOrCreate("bob")

	data, err := store.Snapshot()
	require.NoError(t, err)

	restored := NewSessionStore()
	require.NoError(t, restored.RestoreSnapshot(data))
	assert.Equal(t, 2, restored.Len())

	sess, ok := restored.Get("alice")
	require.True(t, ok)
	pos, ok := sess.LastWritePosition()
	require.True(t, ok)
	assert.Equal(t, pgroute.Position(0x16B374D848), pos)
	last, ok := sess.LastWriteTime()
	require.True(t, ok)
	assert.True(t, last.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	sess, ok = restored.Get("bob")
	require.True(t, ok)
	_, ok = sess.LastWritePosition()
	assert.False(t, ok)
}

func TestNewSessionID(t *testing.T) {
	assert.NotEqual(t, NewSessionID(), NewSessionID())
}

package route

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	pgroute "github.com/pgstack/go-pgroute"
)

// Session tracks the write history of one logical client. A session is
// mutated only by writes of its own id, but those writes may race with
// concurrent reads for the same id, so every access goes through the
// session's own lock: a reader never observes a torn time/position pair.
type Session struct {
	id string

	mu            sync.Mutex
	lastWriteTime time.Time
	hasWriteTime  bool
	lastWritePos  pgroute.Position
	hasWritePos   bool
}

// ID returns the session id.
func (sess *Session) ID() string {
	return sess.id
}

// RecordWriteTime stamps the session with the moment of its latest write.
func (sess *Session) RecordWriteTime(t time.Time) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastWriteTime = t
	sess.hasWriteTime = true
}

// LastWriteTime returns the latest write moment, if any write happened.
func (sess *Session) LastWriteTime() (time.Time, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastWriteTime, sess.hasWriteTime
}

// RecordWritePosition stores the primary's log position captured right
// after the session's latest write committed.
func (sess *Session) RecordWritePosition(pos pgroute.Position) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastWritePos = pos
	sess.hasWritePos = true
}

// LastWritePosition returns the captured position, if any write happened.
// No position means any replica counts as caught up.
func (sess *Session) LastWritePosition() (pgroute.Position, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.lastWritePos, sess.hasWritePos
}

// NewSessionID generates a fresh session id for callers that do not bring
// their own.
func NewSessionID() string {
	return uuid.NewString()
}

// SessionStore holds sessions keyed by id. It is injected into the router
// rather than held as ambient package state, and is safe for concurrent
// use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id, if it exists.
func (store *SessionStore) Get(id string) (*Session, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session with the given id, creating it on first
// use.
func (store *SessionStore) GetOrCreate(id string) *Session {
	store.mu.RLock()
	sess, ok := store.sessions[id]
	store.mu.RUnlock()
	if ok {
		return sess
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if sess, ok := store.sessions[id]; ok {
		return sess
	}
	sess = &Session{id: id}
	store.sessions[id] = sess
	return sess
}

// Len returns the number of tracked sessions.
func (store *SessionStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

type sessionSnapshot struct {
	ID            string    `msgpack:"id"`
	LastWriteTime time.Time `msgpack:"last_write_time"`
	HasWriteTime  bool      `msgpack:"has_write_time"`
	LastWritePos  uint64    `msgpack:"last_write_pos"`
	HasWritePos   bool      `msgpack:"has_write_pos"`
}

// Snapshot serializes the store so a restarted client process keeps its
// read-your-writes state.
func (store *SessionStore) Snapshot() ([]byte, error) {
	store.mu.RLock()
	sessions := make([]*Session, 0, len(store.sessions))
	for _, sess := range store.sessions {
		sessions = append(sessions, sess)
	}
	store.mu.RUnlock()

	snapshots := make([]sessionSnapshot, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.Lock()
		snapshots = append(snapshots, sessionSnapshot{
			ID:            sess.id,
			LastWriteTime: sess.lastWriteTime,
			HasWriteTime:  sess.hasWriteTime,
			LastWritePos:  uint64(sess.lastWritePos),
			HasWritePos:   sess.hasWritePos,
		})
		sess.mu.Unlock()
	}

	return msgpack.Marshal(snapshots)
}

// RestoreSnapshot merges a snapshot into the store, replacing sessions that
// share an id.
func (store *SessionStore) RestoreSnapshot(data []byte) error {
	var snapshots []sessionSnapshot
	if err := msgpack.Unmarshal(data, &snapshots); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, snap := range snapshots {
		store.sessions[snap.ID] = &Session{
			id:            snap.ID,
			lastWriteTime: snap.LastWriteTime,
			hasWriteTime:  snap.HasWriteTime,
			lastWritePos:  pgroute.Position(snap.LastWritePos),
			hasWritePos:   snap.HasWritePos,
		}
	}
	return nil
}

// Package test_helpers provides in-memory endpoints for routing tests, so
// strategy behavior is exercised without a live PostgreSQL cluster.
package test_helpers

import (
	"context"
	"fmt"
	"sync"
	"time"

	pgroute "github.com/pgstack/go-pgroute"
)

// positionStep is how far the fake primary's write position advances per
// insert.
const positionStep = 64

// FakeEndpoint implements pgroute.Endpoint over an in-memory record slice.
// Replay and write positions are settable, errors injectable, and every
// operation is counted so tests can assert which node served what.
type FakeEndpoint struct {
	mu      sync.Mutex
	node    pgroute.Node
	records []pgroute.Record
	nextID  int64

	current pgroute.Position
	replay  pgroute.Position

	positionErr error
	queryErr    error
	closeErr    error
	closed      bool

	inserts       int
	reads         int
	queries       int
	positionCalls int
	lastSQL       string
	queryResult   [][]interface{}
}

// NewFakePrimary creates a write-accepting fake with a non-zero starting
// position.
func NewFakePrimary(id string) *FakeEndpoint {
	return &FakeEndpoint{
		node:    pgroute.Node{ID: id, Host: "localhost", Port: 5432, Role: pgroute.PrimaryRole},
		nextID:  1,
		current: pgroute.Position(0x1000),
	}
}

// NewFakeReplica creates a read-only fake with no replayed log yet.
func NewFakeReplica(id string) *FakeEndpoint {
	return &FakeEndpoint{
		node:   pgroute.Node{ID: id, Host: "localhost", Port: 5433, Role: pgroute.ReplicaRole},
		nextID: 1,
	}
}

func (f *FakeEndpoint) Node() pgroute.Node {
	return f.node
}

func (f *FakeEndpoint) InsertRecord(_ context.Context, userID, data string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts++
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	if f.node.Role != pgroute.PrimaryRole {
		return 0, fmt.Errorf("cannot execute INSERT in a read-only transaction on %s", f.node.ID)
	}

	record := pgroute.Record{ID: f.nextID, UserID: userID, Data: data, CreatedAt: time.Now()}
	f.nextID++
	f.records = append(f.records, record)
	f.current += positionStep
	return record.ID, nil
}

func (f *FakeEndpoint) RecentRecords(_ context.Context, limit int) ([]pgroute.Record, error) {
	return f.selectRecords(limit, func(pgroute.Record) bool { return true })
}

func (f *FakeEndpoint) RecentRecordsByUser(_ context.Context, userID string, limit int) ([]pgroute.Record, error) {
	return f.selectRecords(limit, func(rec pgroute.Record) bool { return rec.UserID == userID })
}

func (f *FakeEndpoint) selectRecords(limit int, match func(pgroute.Record) bool) ([]pgroute.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	var result []pgroute.Record
	for i := len(f.records) - 1; i >= 0 && len(result) < limit; i-- {
		if match(f.records[i]) {
			result = append(result, f.records[i])
		}
	}
	return result, nil
}

func (f *FakeEndpoint) Query(_ context.Context, sql string, _ ...interface{}) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries++
	f.lastSQL = sql
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResult, nil
}

func (f *FakeEndpoint) Exec(_ context.Context, sql string, _ ...interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries++
	f.lastSQL = sql
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return 0, nil
}

func (f *FakeEndpoint) CurrentPosition(_ context.Context) (pgroute.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.positionCalls++
	if f.positionErr != nil {
		return 0, f.positionErr
	}
	if f.node.Role != pgroute.PrimaryRole {
		return 0, pgroute.ClientError{
			Code: pgroute.ErrPositionUnavailable,
			Msg:  f.node.ID + " is in recovery",
		}
	}
	return f.current, nil
}

func (f *FakeEndpoint) ReplayPosition(_ context.Context) (pgroute.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.positionCalls++
	if f.positionErr != nil {
		return 0, f.positionErr
	}
	if f.node.Role != pgroute.ReplicaRole {
		return 0, pgroute.ClientError{
			Code: pgroute.ErrPositionUnavailable,
			Msg:  f.node.ID + " reports no replay position: not in recovery",
		}
	}
	return f.replay, nil
}

func (f *FakeEndpoint) Ping(_ context.Context) error {
	return nil
}

func (f *FakeEndpoint) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

// SetCurrentPosition overrides the primary's write position.
func (f *FakeEndpoint) SetCurrentPosition(pos pgroute.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = pos
}

// SetReplayPosition overrides the replica's replay position.
func (f *FakeEndpoint) SetReplayPosition(pos pgroute.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replay = pos
}

// SyncTo makes the replica report the primary's full state as replayed.
func (f *FakeEndpoint) SyncTo(primary *FakeEndpoint) {
	primary.mu.Lock()
	current := primary.current
	records := make([]pgroute.Record, len(primary.records))
	copy(records, primary.records)
	nextID := primary.nextID
	primary.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.replay = current
	f.records = records
	f.nextID = nextID
}

// SetPositionError makes position reports fail until cleared with nil.
func (f *FakeEndpoint) SetPositionError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionErr = err
}

// SetQueryError makes record and query operations fail until cleared.
func (f *FakeEndpoint) SetQueryError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

// SetCloseError makes Close return err.
func (f *FakeEndpoint) SetCloseError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeErr = err
}

// SetQueryResult sets the rows returned by Query.
func (f *FakeEndpoint) SetQueryResult(rows [][]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryResult = rows
}

// Inserts returns how many inserts were attempted against the endpoint.
func (f *FakeEndpoint) Inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

// Reads returns how many record selects were served.
func (f *FakeEndpoint) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Queries returns how many generic statements were executed.
func (f *FakeEndpoint) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// PositionCalls returns how many position reports were requested.
func (f *FakeEndpoint) PositionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positionCalls
}

// LastSQL returns the most recent generic statement text.
func (f *FakeEndpoint) LastSQL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSQL
}

// Closed reports whether Close was called.
func (f *FakeEndpoint) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

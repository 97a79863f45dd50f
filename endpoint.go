package pgroute

import (
	"context"
	"fmt"
	"time"
)

// Role of a node in the replication topology.
type Role uint32

const (
	UnknownRole Role = iota
	// PrimaryRole: the sole write-accepting node.
	PrimaryRole
	// ReplicaRole: a read-only node asynchronously replaying the primary's
	// write log.
	ReplicaRole
)

func (r Role) String() string {
	switch r {
	case PrimaryRole:
		return "primary"
	case ReplicaRole:
		return "replica"
	default:
		return "unknown"
	}
}

// Node is a static endpoint descriptor. Configured once, immutable during a
// run.
type Node struct {
	ID       string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Role     Role
}

// Addr returns the host:port pair of the node.
func (n Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// DSN returns a keyword/value connection string for the node.
func (n Node) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		n.Host, n.Port, n.Database, n.User, n.Password)
}

// Record is one row of the append-only routing_records table.
type Record struct {
	ID        int64
	UserID    string
	Data      string
	CreatedAt time.Time
}

// Endpoint is the narrow capability surface the routing core consumes from a
// node. Writes and position reports only make sense against the role the
// node actually has: InsertRecord and CurrentPosition fail on a replica,
// ReplayPosition reports unavailability on a primary.
type Endpoint interface {
	// InsertRecord appends a row and returns its generated id.
	InsertRecord(ctx context.Context, userID, data string) (int64, error)

	// RecentRecords returns up to limit rows, newest first.
	RecentRecords(ctx context.Context, limit int) ([]Record, error)

	// RecentRecordsByUser is RecentRecords filtered to one user id.
	RecentRecordsByUser(ctx context.Context, userID string, limit int) ([]Record, error)

	// Query executes a parameterized statement and returns the raw row
	// values.
	Query(ctx context.Context, sql string, args ...interface{}) ([][]interface{}, error)

	// Exec executes a parameterized statement and returns the number of
	// rows affected.
	Exec(ctx context.Context, sql string, args ...interface{}) (int64, error)

	// CurrentPosition reports the current write-log position. Primary only.
	CurrentPosition(ctx context.Context) (Position, error)

	// ReplayPosition reports the last-replayed log position. Replica only.
	ReplayPosition(ctx context.Context) (Position, error)

	// Ping checks that the endpoint is reachable.
	Ping(ctx context.Context) error

	Close() error
}

package pgroute

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTimeout bounds a single request when Opts.Timeout is not set.
const DefaultTimeout = 5 * time.Second

const (
	connConnected = 0
	connClosed    = 1
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS routing_records (
	id         BIGSERIAL PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Opts configure access to a single endpoint.
type Opts struct {
	// Timeout bounds every request issued through the connection, so a
	// stalled endpoint cannot block unrelated sessions. Defaults to
	// DefaultTimeout.
	Timeout time.Duration
	// PoolSize caps concurrent server connections to the endpoint.
	// 0 keeps the pgxpool default.
	PoolSize int32
	// Logger is used for connection events. Defaults to DefaultLogger.
	Logger Logger
}

// Connection is a handle to one endpoint, backed by a pool of server
// connections so unrelated sessions do not serialize behind each other.
//
// It is created and configured with Connect and cannot be reconfigured
// later. After Close every request is rejected with
// ClientError{Code: ErrConnectionClosed}.
type Connection struct {
	node  Node
	pool  *pgxpool.Pool
	opts  Opts
	state uint32
}

// Connect establishes a connection pool to node and verifies reachability.
func Connect(ctx context.Context, node Node, opts Opts) (*Connection, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	cfg, err := pgxpool.ParseConfig(node.DSN())
	if err != nil {
		return nil, ClientError{ErrConfiguration, fmt.Sprintf("invalid endpoint %s: %s", node.ID, err)}
	}
	if opts.PoolSize > 0 {
		cfg.MaxConns = opts.PoolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, ClientError{ErrConnectionNotReady, fmt.Sprintf("connect to %s failed: %s", node.Addr(), err)}
	}

	conn := &Connection{node: node, pool: pool, opts: opts}
	if err := conn.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	opts.Logger.Report(LogConnected, node.ID)
	return conn, nil
}

// Node returns the descriptor of the connected endpoint.
func (conn *Connection) Node() Node {
	return conn.node
}

// ConfiguredTimeout returns the per-request timeout of the connection.
func (conn *Connection) ConfiguredTimeout() time.Duration {
	return conn.opts.Timeout
}

// Ping checks that the endpoint is reachable.
func (conn *Connection) Ping(ctx context.Context) error {
	if err := conn.guard(); err != nil {
		return err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	if err := conn.pool.Ping(tctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return conn.timeouted()
		}
		return ClientError{ErrConnectionNotReady, fmt.Sprintf("ping %s failed: %s", conn.node.Addr(), err)}
	}
	return nil
}

// InsertRecord appends a row and returns its generated id.
func (conn *Connection) InsertRecord(ctx context.Context, userID, data string) (int64, error) {
	if err := conn.guard(); err != nil {
		return 0, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	var id int64
	err := conn.pool.QueryRow(tctx,
		"INSERT INTO routing_records (user_id, data) VALUES ($1, $2) RETURNING id",
		userID, data).Scan(&id)
	if err != nil {
		return 0, conn.wrapErr(err)
	}
	return id, nil
}

// RecentRecords returns up to limit rows, newest first.
func (conn *Connection) RecentRecords(ctx context.Context, limit int) ([]Record, error) {
	return conn.selectRecords(ctx,
		"SELECT id, user_id, data, created_at FROM routing_records ORDER BY id DESC LIMIT $1",
		limit)
}

// RecentRecordsByUser returns up to limit rows of one user, newest first.
// Identity is matched on the structured user_id column, never by payload
// substring.
func (conn *Connection) RecentRecordsByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	return conn.selectRecords(ctx,
		"SELECT id, user_id, data, created_at FROM routing_records WHERE user_id = $1 ORDER BY id DESC LIMIT $2",
		userID, limit)
}

func (conn *Connection) selectRecords(ctx context.Context, sql string, args ...interface{}) ([]Record, error) {
	if err := conn.guard(); err != nil {
		return nil, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	rows, err := conn.pool.Query(tctx, sql, args...)
	if err != nil {
		return nil, conn.wrapErr(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Data, &rec.CreatedAt); err != nil {
			return nil, conn.wrapErr(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, conn.wrapErr(err)
	}
	return records, nil
}

// Query executes a parameterized statement and returns the raw row values.
func (conn *Connection) Query(ctx context.Context, sql string, args ...interface{}) ([][]interface{}, error) {
	if err := conn.guard(); err != nil {
		return nil, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	rows, err := conn.pool.Query(tctx, sql, args...)
	if err != nil {
		return nil, conn.wrapErr(err)
	}
	defer rows.Close()

	var result [][]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, conn.wrapErr(err)
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, conn.wrapErr(err)
	}
	return result, nil
}

// Exec executes a parameterized statement and returns the number of rows
// affected.
func (conn *Connection) Exec(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	if err := conn.guard(); err != nil {
		return 0, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	tag, err := conn.pool.Exec(tctx, sql, args...)
	if err != nil {
		return 0, conn.wrapErr(err)
	}
	return tag.RowsAffected(), nil
}

// CurrentPosition reports the current write-log position. The server rejects
// the query while in recovery, so calling this on a replica fails.
func (conn *Connection) CurrentPosition(ctx context.Context) (Position, error) {
	if err := conn.guard(); err != nil {
		return 0, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	var lsn string
	err := conn.pool.QueryRow(tctx, "SELECT pg_current_wal_lsn()::text").Scan(&lsn)
	if err != nil {
		return 0, conn.positionErr(err)
	}
	return ParsePosition(lsn)
}

// ReplayPosition reports the last-replayed log position. A node that is not
// in recovery has none and reports ErrPositionUnavailable.
func (conn *Connection) ReplayPosition(ctx context.Context) (Position, error) {
	if err := conn.guard(); err != nil {
		return 0, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	var lsn *string
	err := conn.pool.QueryRow(tctx, "SELECT pg_last_wal_replay_lsn()::text").Scan(&lsn)
	if err != nil {
		return 0, conn.positionErr(err)
	}
	if lsn == nil {
		return 0, ClientError{ErrPositionUnavailable,
			fmt.Sprintf("%s reports no replay position: not in recovery", conn.node.ID)}
	}
	return ParsePosition(*lsn)
}

// EnsureSchema creates the routing_records table if it does not exist.
func (conn *Connection) EnsureSchema(ctx context.Context) error {
	_, err := conn.Exec(ctx, schemaDDL)
	return err
}

// BulkInsert appends rows of padded filler data in one statement. It exists
// only to widen primary/replica divergence for demos and manual testing and
// is never consulted by routing logic. The statement runs under the
// caller's context deadline, not the per-request timeout, since inserting
// hundreds of thousands of rows legitimately takes a while.
func (conn *Connection) BulkInsert(ctx context.Context, rows, padding int) (int64, error) {
	if err := conn.guard(); err != nil {
		return 0, err
	}

	tag, err := conn.pool.Exec(ctx,
		"INSERT INTO routing_records (user_id, data) "+
			"SELECT '', 'lag-' || i || '-' || repeat('X', $2::int) FROM generate_series(1, $1::int) AS i",
		rows, padding)
	if err != nil {
		return 0, conn.wrapErr(err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the underlying pool. Safe to call more than once.
func (conn *Connection) Close() error {
	if !atomic.CompareAndSwapUint32(&conn.state, connConnected, connClosed) {
		return nil
	}
	conn.pool.Close()
	return nil
}

func (conn *Connection) guard() error {
	if atomic.LoadUint32(&conn.state) == connClosed {
		return ClientError{ErrConnectionClosed, fmt.Sprintf("connection to %s is closed", conn.node.ID)}
	}
	return nil
}

func (conn *Connection) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, conn.opts.Timeout)
}

func (conn *Connection) timeouted() error {
	return ClientError{ErrTimeouted, fmt.Sprintf("request to %s timed out", conn.node.ID)}
}

// wrapErr maps client-side failures to ClientError and lets server-reported
// query errors through untouched.
func (conn *Connection) wrapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return conn.timeouted()
	}
	return err
}

// positionErr marks any failed position report so the log-position strategy
// can fail closed on it.
func (conn *Connection) positionErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return conn.timeouted()
	}
	return ClientError{ErrPositionUnavailable,
		fmt.Sprintf("position report from %s failed: %s", conn.node.ID, err)}
}

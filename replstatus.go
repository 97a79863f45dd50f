package pgroute

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReplicationStatus describes one standby attached to the primary, as seen
// in pg_stat_replication. Lag figures are server-side numerics, kept as
// decimals rather than lossy floats.
type ReplicationStatus struct {
	ApplicationName string
	LagBytes        decimal.Decimal
	LagSeconds      decimal.Decimal
}

// ReplicationStatus reports the replication lag of every attached standby.
// Primary only; replicas have no pg_stat_replication rows of their own.
func (conn *Connection) ReplicationStatus(ctx context.Context) ([]ReplicationStatus, error) {
	if err := conn.guard(); err != nil {
		return nil, err
	}
	tctx, cancel := conn.withDeadline(ctx)
	defer cancel()

	rows, err := conn.pool.Query(tctx, `
		SELECT application_name,
		       COALESCE(pg_wal_lsn_diff(pg_current_wal_lsn(), replay_lsn), 0)::text,
		       COALESCE(ROUND(EXTRACT(EPOCH FROM replay_lag)::numeric, 2), 0)::text
		FROM pg_stat_replication`)
	if err != nil {
		return nil, conn.wrapErr(err)
	}
	defer rows.Close()

	var statuses []ReplicationStatus
	for rows.Next() {
		var name, lagBytes, lagSeconds string
		if err := rows.Scan(&name, &lagBytes, &lagSeconds); err != nil {
			return nil, conn.wrapErr(err)
		}

		status := ReplicationStatus{ApplicationName: name}
		if status.LagBytes, err = decimal.NewFromString(lagBytes); err != nil {
			return nil, fmt.Errorf("unparsable lag size %q: %w", lagBytes, err)
		}
		if status.LagSeconds, err = decimal.NewFromString(lagSeconds); err != nil {
			return nil, fmt.Errorf("unparsable lag seconds %q: %w", lagSeconds, err)
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

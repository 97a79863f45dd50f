// Package pgroute implements the endpoint layer for routing reads across a
// PostgreSQL primary and its streaming replicas.
//
// The package holds the building blocks shared by the routing strategies in
// the route subpackage:
//
// - Position, a WAL location with the log's native total order.
//
// - Node, a static endpoint descriptor with a primary or replica role.
//
// - Endpoint, the narrow capability surface the routing core consumes:
// parameterized query execution, the primary's current write position and a
// replica's last-replayed position.
//
// - Connection, an Endpoint implementation backed by a pgx connection pool
// with bounded per-request timeouts.
//
// The routing decision logic itself lives in the route package.
package pgroute

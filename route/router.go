package route

import (
	"context"

	pgroute "github.com/pgstack/go-pgroute"
)

// RouterOpts are the optional collaborators of a Router.
type RouterOpts struct {
	// Logger for routed operations. Defaults to pgroute.DefaultLogger.
	Logger pgroute.Logger
	// Metrics counters. Nil disables counting.
	Metrics *Metrics
}

// Router is the uniform entry point over one active strategy. Writes always
// execute on the primary and then run the strategy's write-side update;
// reads execute wherever the strategy points and come back with the
// Decision that chose the target.
//
// If the chosen target is unreachable the operation fails with the
// underlying error. Retrying against an alternate node is the caller's
// policy, never the router's.
type Router struct {
	registry *Registry
	sessions *SessionStore
	strategy Strategy
	logger   pgroute.Logger
	metrics  *Metrics
}

// NewRouter builds a router with default options.
func NewRouter(registry *Registry, sessions *SessionStore, strategy Strategy) *Router {
	return NewRouterWithOpts(registry, sessions, strategy, RouterOpts{})
}

// NewRouterWithOpts builds a router with an explicit logger and/or metrics.
func NewRouterWithOpts(registry *Registry, sessions *SessionStore, strategy Strategy, opts RouterOpts) *Router {
	if opts.Logger == nil {
		opts.Logger = pgroute.DefaultLogger
	}
	return &Router{
		registry: registry,
		sessions: sessions,
		strategy: strategy,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Strategy returns the active strategy.
func (r *Router) Strategy() Strategy {
	return r.strategy
}

// Sessions returns the injected session store.
func (r *Router) Sessions() *SessionStore {
	return r.sessions
}

// Registry returns the topology the router operates on.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Write appends data on the primary for the session and returns the record
// id. After the insert commits, the active strategy's write-side update
// runs; if that update fails the id is still returned along with the error,
// so the caller sees a committed write whose consistency tracking is stale.
func (r *Router) Write(ctx context.Context, sessionID, data string) (int64, error) {
	sess := r.sessions.GetOrCreate(sessionID)

	recordID, err := r.registry.Primary().Endpoint.InsertRecord(ctx, sessionID, data)
	if err != nil {
		return 0, err
	}

	r.metrics.WriteRouted(r.strategy.Name())
	r.logger.Report(pgroute.LogWriteRouted, sessionID, recordID)

	if err := r.strategy.RecordWrite(ctx, sess); err != nil {
		return recordID, err
	}
	return recordID, nil
}

// Read returns up to limit of the newest rows from wherever the strategy
// points the session, along with the routing decision.
func (r *Router) Read(ctx context.Context, sessionID string, limit int) ([]pgroute.Record, Decision, error) {
	return r.read(ctx, sessionID, func(ctx context.Context, d Decision) ([]pgroute.Record, error) {
		return d.Endpoint.RecentRecords(ctx, limit)
	})
}

// ReadOwn is Read restricted to rows the session itself wrote.
func (r *Router) ReadOwn(ctx context.Context, sessionID string, limit int) ([]pgroute.Record, Decision, error) {
	return r.read(ctx, sessionID, func(ctx context.Context, d Decision) ([]pgroute.Record, error) {
		return d.Endpoint.RecentRecordsByUser(ctx, sessionID, limit)
	})
}

func (r *Router) read(ctx context.Context, sessionID string,
	query func(context.Context, Decision) ([]pgroute.Record, error)) ([]pgroute.Record, Decision, error) {

	sess := r.sessions.GetOrCreate(sessionID)

	decision, err := r.strategy.Pick(ctx, sess)
	if err != nil {
		return nil, Decision{}, err
	}

	records, err := query(ctx, decision)
	if err != nil {
		return nil, decision, err
	}

	r.metrics.ReadRouted(r.strategy.Name(), decision.Node.Role)
	r.logger.Report(pgroute.LogReadRouted, sessionID, decision.Label, len(records))
	return records, decision, nil
}

// Do executes an arbitrary parameterized statement for the session.
// Mutating statements go to the primary and run the strategy's write-side
// update; read statements go through the strategy. Statements that cannot
// be classified are treated as writes.
func (r *Router) Do(ctx context.Context, sessionID, sql string, args ...interface{}) ([][]interface{}, Decision, error) {
	sess := r.sessions.GetOrCreate(sessionID)

	if RequiresWrite(sql, true) {
		decision := primaryDecision(r.registry, LabelPrimary)
		values, err := decision.Endpoint.Query(ctx, sql, args...)
		if err != nil {
			return nil, decision, err
		}
		r.metrics.WriteRouted(r.strategy.Name())
		if err := r.strategy.RecordWrite(ctx, sess); err != nil {
			return values, decision, err
		}
		return values, decision, nil
	}

	decision, err := r.strategy.Pick(ctx, sess)
	if err != nil {
		return nil, Decision{}, err
	}
	values, err := decision.Endpoint.Query(ctx, sql, args...)
	if err != nil {
		return nil, decision, err
	}
	r.metrics.ReadRouted(r.strategy.Name(), decision.Node.Role)
	return values, decision, nil
}

// Close closes every endpoint of the registry.
func (r *Router) Close() error {
	return r.registry.Close()
}

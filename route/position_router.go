package route

import (
	"context"

	pgroute "github.com/pgstack/go-pgroute"
)

// PositionRouter routes a read to a replica only once the replica has
// replayed past the session's last recorded write position.
//
// The check is exact at the moment it runs but a write landing between the
// check and the subsequent read can still outrun it. That race is accepted:
// a replica that passed the check can only fall further behind the *newer*
// write, never behind the one the session recorded, so the recorded write
// stays visible.
type PositionRouter struct {
	registry *Registry
	logger   pgroute.Logger
	metrics  *Metrics
}

// NewPositionRouter builds the router with the default logger and no
// metrics.
func NewPositionRouter(registry *Registry) *PositionRouter {
	return NewPositionRouterWithOpts(registry, RouterOpts{})
}

// NewPositionRouterWithOpts builds the router with an explicit logger
// and/or metrics.
func NewPositionRouterWithOpts(registry *Registry, opts RouterOpts) *PositionRouter {
	if opts.Logger == nil {
		opts.Logger = pgroute.DefaultLogger
	}
	return &PositionRouter{
		registry: registry,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

func (pr *PositionRouter) Name() string {
	return "position"
}

// RecordWrite captures the primary's current log position right after the
// session's write committed. On failure the session keeps its previous
// position and the error is surfaced; the guarantee is never silently
// weakened.
func (pr *PositionRouter) RecordWrite(ctx context.Context, sess *Session) error {
	pos, err := pr.registry.Primary().Endpoint.CurrentPosition(ctx)
	if err != nil {
		return err
	}
	sess.RecordWritePosition(pos)
	return nil
}

// IsCaughtUp reports whether replica replayed past the session's recorded
// write position. A session with no recorded write treats any replica as
// caught up. A failed or timed-out position report fails closed: the
// replica counts as not caught up, never as fresh.
func (pr *PositionRouter) IsCaughtUp(ctx context.Context, sess *Session, replica Member) bool {
	pos, ok := sess.LastWritePosition()
	if !ok {
		return true
	}

	replay, err := replica.Endpoint.ReplayPosition(ctx)
	if err != nil {
		pr.logger.Report(pgroute.LogPositionCheckFailed, replica.Node.ID, err)
		pr.metrics.PositionCheckFailed()
		return false
	}

	return pos.ReachedBy(replay)
}

// Pick returns the next replica in round-robin order if it is caught up,
// else the primary.
func (pr *PositionRouter) Pick(ctx context.Context, sess *Session) (Decision, error) {
	replica, err := pr.registry.NextReplica()
	if err != nil {
		return primaryDecision(pr.registry, LabelPrimaryNoReplicas), nil
	}
	return pr.PickPreferred(ctx, sess, replica), nil
}

// PickPreferred evaluates one specific replica against the session and
// returns it if caught up, else the primary.
func (pr *PositionRouter) PickPreferred(ctx context.Context, sess *Session, replica Member) Decision {
	if pr.IsCaughtUp(ctx, sess, replica) {
		return Decision{Node: replica.Node, Endpoint: replica.Endpoint, Label: LabelReplicaCaughtUp}
	}
	return primaryDecision(pr.registry, LabelPrimaryLagging)
}

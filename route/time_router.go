package route

import (
	"context"
	"time"
)

// DefaultWriteThreshold is how long after a write the TimeRouter keeps a
// session on the primary.
const DefaultWriteThreshold = 5 * time.Second

// TimeRouter routes a session to the primary for a fixed window after its
// latest write and to a replica otherwise.
//
// This is a heuristic, not a guarantee: it routes to the primary even when
// the replica already caught up, and to a replica even when lag exceeds the
// threshold. Callers that need exact read-your-writes use PositionRouter.
type TimeRouter struct {
	registry  *Registry
	threshold time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewTimeRouter builds the router. A non-positive threshold selects
// DefaultWriteThreshold.
func NewTimeRouter(registry *Registry, threshold time.Duration) *TimeRouter {
	if threshold <= 0 {
		threshold = DefaultWriteThreshold
	}
	return &TimeRouter{
		registry:  registry,
		threshold: threshold,
		now:       time.Now,
	}
}

func (tr *TimeRouter) Name() string {
	return "time"
}

// Threshold returns the configured window.
func (tr *TimeRouter) Threshold() time.Duration {
	return tr.threshold
}

// RecordWrite stamps the session with the current time.
func (tr *TimeRouter) RecordWrite(_ context.Context, sess *Session) error {
	sess.RecordWriteTime(tr.now())
	return nil
}

// Pick returns the primary iff the session wrote less than threshold ago;
// otherwise a replica in round-robin order. A session that never wrote goes
// straight to a replica.
func (tr *TimeRouter) Pick(_ context.Context, sess *Session) (Decision, error) {
	if last, ok := sess.LastWriteTime(); ok && tr.now().Sub(last) < tr.threshold {
		return primaryDecision(tr.registry, LabelPrimaryRecentWrite), nil
	}

	replica, err := tr.registry.NextReplica()
	if err != nil {
		// The primary is the only node there is.
		return primaryDecision(tr.registry, LabelPrimaryNoReplicas), nil
	}
	return Decision{Node: replica.Node, Endpoint: replica.Endpoint, Label: LabelReplica}, nil
}

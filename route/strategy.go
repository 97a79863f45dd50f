// Package route implements the read-routing decision logic: three
// strategies that decide, per read, whether a session should target the
// primary or a specific replica, and a facade that executes queries against
// the chosen node.
//
// Exactly one strategy is active per Router. The strategies encode
// different consistency contracts:
//
// - TimeRouter: heuristic read-your-writes, approximate.
//
// - PositionRouter: exact log-position catch-up check, fail-closed.
//
// - StickyRouter: deterministic per-session replica assignment, monotonic
// reads only.
package route

import (
	"context"

	pgroute "github.com/pgstack/go-pgroute"
)

// Decision is the outcome of one routing evaluation. It always resolves to
// exactly one target.
type Decision struct {
	Node     pgroute.Node
	Endpoint pgroute.Endpoint
	// Label names the chosen source and the reason it was chosen.
	Label string
}

// Strategy decides where reads of a session go. A decision is a pure
// computation over in-memory session state, except that PositionRouter also
// consults live replica state under the endpoint's bounded timeout.
type Strategy interface {
	Name() string

	// RecordWrite updates sess after a write committed on the primary.
	RecordWrite(ctx context.Context, sess *Session) error

	// Pick returns the node the next read of sess should target.
	Pick(ctx context.Context, sess *Session) (Decision, error)
}

func primaryDecision(reg *Registry, label string) Decision {
	primary := reg.Primary()
	return Decision{Node: primary.Node, Endpoint: primary.Endpoint, Label: label}
}

package pgroute

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a PostgreSQL write-ahead log location. It is monotonically
// increasing on the primary; each replica reports its own, independently
// lagging, replay position.
//
// The textual pg_lsn form "X/Y" is a pair of hex numbers and is not
// byte-sortable ("2/0" follows "16/0" lexicographically but precedes it in
// the log), so positions must always be compared through Compare or
// ReachedBy, never as strings.
type Position uint64

// ParsePosition parses the textual pg_lsn form "X/Y".
func ParsePosition(s string) (Position, error) {
	slash := strings.IndexByte(s, '/')
	if slash < 0 {
		return 0, fmt.Errorf("malformed log position %q: expected X/Y", s)
	}

	hi, err := strconv.ParseUint(s[:slash], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed log position %q: %w", s, err)
	}
	lo, err := strconv.ParseUint(s[slash+1:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed log position %q: %w", s, err)
	}

	return Position(hi<<32 | lo), nil
}

// String formats the position in the pg_lsn form "X/Y".
func (p Position) String() string {
	return fmt.Sprintf("%X/%X", uint64(p)>>32, uint64(p)&0xFFFFFFFF)
}

// Compare returns -1, 0 or 1 if p is before, at or after other in log order.
func (p Position) Compare(other Position) int {
	switch {
	case p < other:
		return -1
	case p > other:
		return 1
	default:
		return 0
	}
}

// ReachedBy reports whether a node that replayed up to replay is guaranteed
// to contain the effects of the write recorded at p. Assumes replay is
// monotonic on that node.
func (p Position) ReachedBy(replay Position) bool {
	return p <= replay
}

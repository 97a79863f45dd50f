package pgroute

import "fmt"

// ClientError is an error produced by this client, i.e. connection failures,
// timeouts or misconfiguration. Errors reported by a PostgreSQL endpoint
// itself (constraint violations, malformed statements) are returned as the
// driver produced them, without wrapping.
type ClientError struct {
	Code uint32
	Msg  string
}

// Error converts a ClientError to a string.
func (clierr ClientError) Error() string {
	return fmt.Sprintf("%s (0x%x)", clierr.Msg, clierr.Code)
}

// Temporary returns true if next attempt to perform the operation may
// succeed.
//
// Currently it returns true when:
//
// - the endpoint is not reachable at the moment
//
// - the request timed out
//
// - a replica's replay position could not be obtained
func (clierr ClientError) Temporary() bool {
	switch clierr.Code {
	case ErrConnectionNotReady, ErrTimeouted, ErrPositionUnavailable:
		return true
	default:
		return false
	}
}

// Client error codes.
const (
	// ErrConnectionNotReady: the endpoint is unreachable or refused
	// authentication.
	ErrConnectionNotReady = 0x4000 + iota
	// ErrConnectionClosed: the connection has been closed by Close.
	ErrConnectionClosed = 0x4000 + iota
	// ErrTimeouted: the request exceeded the configured timeout.
	ErrTimeouted = 0x4000 + iota
	// ErrConfiguration: the routing configuration is invalid, e.g. an empty
	// replica set for sticky routing. Detected before any routing math runs.
	ErrConfiguration = 0x4000 + iota
	// ErrPositionUnavailable: a log position report failed or timed out.
	// The log-position strategy treats this as "not caught up".
	ErrPositionUnavailable = 0x4000 + iota
)

package pgroute

import (
	"fmt"
	"log"
	"log/slog"
)

type LogKind int

const (
	// LogWriteRouted is reported after a write committed on the primary.
	LogWriteRouted LogKind = iota + 1
	// LogReadRouted is reported after a routing decision resolved a read.
	LogReadRouted
	// LogPositionCheckFailed is reported when a replica's replay position
	// could not be obtained and the read was rerouted to the primary.
	LogPositionCheckFailed
	// LogConnected is reported when an endpoint connection is established.
	LogConnected
)

// Logger is the logger type expected to be passed in options.
type Logger interface {
	Report(event LogKind, v ...interface{})
}

// DefaultLogger is used whenever no Logger is configured.
var DefaultLogger Logger = defaultLogger{}

type defaultLogger struct{}

func (d defaultLogger) Report(event LogKind, v ...interface{}) {
	switch event {
	case LogWriteRouted:
		session := v[0].(string)
		recordID := v[1].(int64)
		log.Printf("pgroute: session %s wrote record %d to primary\n", session, recordID)
	case LogReadRouted:
		session := v[0].(string)
		label := v[1].(string)
		rows := v[2].(int)
		log.Printf("pgroute: session %s read %d rows from %s\n", session, rows, label)
	case LogPositionCheckFailed:
		node := v[0].(string)
		err := v[1].(error)
		log.Printf("pgroute: position check on %s failed: %s, failing closed to primary\n", node, err.Error())
	case LogConnected:
		node := v[0].(string)
		log.Printf("pgroute: connected to %s\n", node)
	default:
		args := append([]interface{}{"pgroute: unexpected event ", event}, v...)
		log.Print(args...)
	}
}

// SlogLogger forwards reports to a structured slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogLogger{logger: logger}
}

func (l SlogLogger) Report(event LogKind, v ...interface{}) {
	switch event {
	case LogWriteRouted:
		l.logger.Info("write routed to primary",
			slog.String("session", v[0].(string)),
			slog.Int64("record_id", v[1].(int64)))
	case LogReadRouted:
		l.logger.Info("read routed",
			slog.String("session", v[0].(string)),
			slog.String("source", v[1].(string)),
			slog.Int("rows", v[2].(int)))
	case LogPositionCheckFailed:
		l.logger.Warn("position check failed, failing closed to primary",
			slog.String("node", v[0].(string)),
			slog.String("error", v[1].(error).Error()))
	case LogConnected:
		l.logger.Info("endpoint connected", slog.String("node", v[0].(string)))
	default:
		l.logger.Warn("unexpected event", slog.String("args", fmt.Sprint(v...)))
	}
}

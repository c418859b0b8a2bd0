package monitor

import "log"

// AlertSink is a pluggable delivery target for formatted alert lines —
// stdout logging by default (LogSink), or a custom sink such as the admin
// dashboard's WebSocket broadcast.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts through the standard logger, matching the
// gateway's own ambient logging style.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Println(message)
	return nil
}

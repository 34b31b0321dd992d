// Package alert turns fused frames into something a user notices. Sinks here implement
// pipeline.Sink.
package alert

import (
	"context"

	"go.viam.com/obstaclealert/logging"
	"go.viam.com/obstaclealert/pipeline"
)

// LogSink logs every dangerous frame at warn level and every other frame at debug level.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink returns a LogSink writing to logger.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver implements pipeline.Sink.
func (s *LogSink) Deliver(ctx context.Context, event pipeline.Event) {
	res := event.Result
	if res.Danger {
		s.logger.Warnw("obstacle ahead",
			"seq", event.Seq,
			"label", res.Label,
			"class_id", res.ClassID,
			"distance_m", res.DistanceMeters,
		)
		return
	}
	s.logger.CDebugw(ctx, "path clear", "seq", event.Seq, "found", res.Found, "distance_m", res.DistanceMeters)
}

// MultiSink delivers each event to every sink in order.
type MultiSink []pipeline.Sink

// Deliver implements pipeline.Sink.
func (ms MultiSink) Deliver(ctx context.Context, event pipeline.Event) {
	for _, s := range ms {
		s.Deliver(ctx, event)
	}
}

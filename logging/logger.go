package logging

import "context"

// Logger is the structured logger every package writes through. Plain "f" methods format a
// message; "w" methods take alternating keys and values that appenders render as fields.
type Logger interface {
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebugw logs at debug level, or regardless of level when ctx carries a debug tag.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	SetLevel(level Level)
	GetLevel() Level
	// Sublogger returns a logger named "<name>.<subname>" writing to the same appenders.
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	Sync() error
}

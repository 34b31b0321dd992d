// Package logging contains the structured logger used throughout obstaclealert. A process
// configures one logger at startup, installs it with ReplaceGlobal, and hands subloggers of it to
// each component.
package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewLogger("obstacle-alert", INFO)
)

// ReplaceGlobal installs logger as the process logger returned by Global.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the process logger. Until ReplaceGlobal is called it logs Info+ to stdout.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewLogger returns a logger that outputs level and above to stdout in UTC. More appenders, such
// as a file, can be added with AddAppender.
func NewLogger(name string, level Level) Logger {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     true,
		appenders: []Appender{NewStdoutAppender()},
	}
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test object in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger := &impl{
		level:     NewAtomicLevelAt(DEBUG),
		appenders: []Appender{NewTestAppender(tb), observerCore},
	}
	return logger, observedLogs
}

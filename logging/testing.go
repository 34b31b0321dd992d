package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns a logger appender that logs to the underlying `testing.TB`
// object. Writing logs with `tb.Log` does two things:
//   - Prepends the log with the filename/line number that called the `tb.Log` method. This is not
//     useful to us.
//   - Correctly associates the log line with a Golang "Test*" function.
//
// Additionally, this test appender will log in the local/machine timezone.
//
// Pipeline tests run fusion workers in parallel; logging through `tb.Log` keeps each line
// attached to the test that produced it rather than whichever test happens to own stdout.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}

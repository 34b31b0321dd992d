package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable lines from log events and write them to the desired
// output sync. E.g: stdout or a file.
type ConsoleAppender struct {
	mu sync.Mutex
	io.Writer
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return &ConsoleAppender{Writer: os.Stdout}
}

// NewWriterAppender creates a new appender that outputs to the input writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{Writer: writer}
}

// NewFileAppender will create an Appender that writes to a size-rotated file. The returned
// io.Closer releases the open file handle.
func NewFileAppender(filename string) (*ConsoleAppender, io.Closer) {
	logger := &lumberjack.Logger{
		Filename:   filepath.Clean(filename),
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		Compress:   true,
	}
	return &ConsoleAppender{Writer: logger}, logger
}

// Write outputs the log entry to the underlying stream.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	if err != nil {
		return err
	}

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = fmt.Fprintln(appender.Writer, line)
	return err
}

// formatEntry renders an entry as tab separated time, level, logger name, caller and message,
// followed by the fields as a single json object.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	const maxLength = 10
	toPrint := make([]string, 0, maxLength)
	toPrint = append(toPrint, entry.Time.Format(DefaultTimeFormatStr))

	toPrint = append(toPrint, strings.ToUpper(entry.Level.String()))
	if entry.LoggerName != "" {
		toPrint = append(toPrint, entry.LoggerName)
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, callerToString(&entry.Caller))
	}
	toPrint = append(toPrint, entry.Message)
	if len(fields) == 0 {
		return strings.Join(toPrint, "\t"), nil
	}

	// Use zap's json encoder which will encode our slice of fields in-order. As opposed to the
	// random iteration order of a map. Call it with an empty Entry object such that only the
	// fields become "map-ified".
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		// Return what we have along with the error.
		return strings.Join(toPrint, "\t"), err
	}
	toPrint = append(toPrint, string(buf.Bytes()))
	return strings.Join(toPrint, "\t"), nil
}

// Sync is a no-op unless the underlying writer can be synced.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.Writer.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil && !isIgnorableSyncErr(err) {
			return err
		}
	}
	return nil
}

// Syncing a terminal or pipe returns EINVAL on linux. That is not worth reporting.
func isIgnorableSyncErr(err error) bool {
	return strings.Contains(err.Error(), "invalid argument") ||
		strings.Contains(err.Error(), "inappropriate ioctl")
}

// callerToString renders a caller as "package/file.go:line".
func callerToString(caller *zapcore.EntryCaller) string {
	return caller.TrimmedPath()
}

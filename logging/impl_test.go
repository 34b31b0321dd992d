package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

type User struct {
	Name string
}

type StructWithStruct struct {
	x int
	Y User
	z string
}

func newBufferLogger(name string, level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &impl{name, NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}
	return logger, buf
}

// assertLogMatches will fuzzy match log lines. Notably, this checks the time format, but ignores
// the exact time. And it expects a match on the filename, but the exact line number can be wrong.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	// Use the length of the first string as a weak verification of checking that the result looks like a date.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])
	test.That(t, actualParts[2], test.ShouldEqual, expectedParts[2])

	actualFilename, actualLineNumber, found := strings.Cut(actualParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, found := strings.Cut(expectedParts[3], ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)
	_, err = strconv.Atoi(actualLineNumber)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, actualParts[4], test.ShouldEqual, expectedParts[4])
	if len(actualParts) == 5 {
		return
	}

	expectedMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(expectedParts[5]), &expectedMap), test.ShouldBeNil)
	actualMap := make(map[string]any)
	test.That(t, json.Unmarshal([]byte(actualParts[5]), &actualMap), test.ShouldBeNil)
	test.That(t, actualMap, test.ShouldResemble, expectedMap)
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferLogger("fusion", DEBUG)

	logger.Infof("fused %d frames", 3)
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	INFO	fusion	logging/impl_test.go:69	fused 3 frames`)

	logger.Warnw("obstacle", "distance_m", 1.2, "label", "person")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	WARN	fusion	logging/impl_test.go:73	obstacle	{"distance_m":1.2,"label":"person"}`)

	logger.Infow("StructWithStruct", "key", "val", "StructWithStruct", StructWithStruct{1, User{"alice"}, "foo"})
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	INFO	fusion	logging/impl_test.go:77	StructWithStruct	{"StructWithStruct":{"Y":{"Name":"alice"}},"key":"val"}`)

	logger.Errorw("unpaired", "dangling")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	ERROR	fusion	logging/impl_test.go:81	unpaired	{"dangling":"unpaired log key"}`)

	logger.Debugf("remapped to %v", "(5,5)")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	DEBUG	fusion	logging/impl_test.go:85	remapped to (5,5)`)

	logger.Debugw("scan", "roi", "[100,200)")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	DEBUG	fusion	logging/impl_test.go:89	scan	{"roi":"[100,200)"}`)

	logger.Warnf("skipped %s", "frame")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	WARN	fusion	logging/impl_test.go:93	skipped frame`)

	logger.Errorf("failed: %v", "bad mask")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	ERROR	fusion	logging/impl_test.go:97	failed: bad mask`)

	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("pipeline", WARN)

	logger.Debugw("dropped")
	logger.Infof("dropped")
	logger.Infow("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warnf("kept")
	test.That(t, buf.String(), test.ShouldContainSubstring, "kept")
	buf.Reset()

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debugf("now %s", "visible")
	test.That(t, buf.String(), test.ShouldContainSubstring, "now visible")
}

func TestDebugTag(t *testing.T) {
	logger, buf := newBufferLogger("replay", INFO)

	logger.CDebugw(context.Background(), "hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, DebugTag(context.Background()), test.ShouldEqual, "")

	ctx := WithDebugTag(context.Background(), "")
	test.That(t, DebugTag(ctx), test.ShouldHaveLength, 6)

	logger.CDebugw(ctx, "shown", "frame", 3)
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	DEBUG	replay	logging/impl_test.go:132	shown	{"frame":3,"debug_tag":"`+DebugTag(ctx)+`"}`)

	logger.CDebugw(WithDebugTag(context.Background(), "run7"), "tagged")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	DEBUG	replay	logging/impl_test.go:136	tagged	{"debug_tag":"run7"}`)

	// Without a tag, CDebugw follows the level like Debugw.
	logger.SetLevel(DEBUG)
	logger.CDebugw(context.Background(), "untagged")
	assertLogMatches(t, buf,
		`2023-10-30T13:19:45.806Z	DEBUG	replay	logging/impl_test.go:142	untagged`)
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("obstaclealert", INFO)
	sub := logger.Sublogger("pipeline")

	sub.Infow("hello")
	test.That(t, buf.String(), test.ShouldContainSubstring, "obstaclealert.pipeline")

	// Sublogger levels are independent of the parent.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestGlobalLogger(t *testing.T) {
	original := Global()
	defer ReplaceGlobal(original)
	test.That(t, original.GetLevel(), test.ShouldEqual, INFO)

	logger, buf := newBufferLogger("obstacle-alert", DEBUG)
	ReplaceGlobal(logger)
	Global().Sublogger("config").Debugw("read config")
	test.That(t, buf.String(), test.ShouldContainSubstring, "obstacle-alert.config")
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("alert", "label", "person")
	logger.Debugf("debug line")

	test.That(t, logs.FilterMessage("alert").Len(), test.ShouldEqual, 1)
	entry := logs.FilterMessage("alert").All()[0]
	test.That(t, entry.ContextMap()["label"], test.ShouldEqual, "person")
	test.That(t, logs.Len(), test.ShouldEqual, 2)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, json.Unmarshal([]byte(`"warn"`), &level), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := json.Marshal(ERROR)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"error"`)
}

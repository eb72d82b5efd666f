package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	// Some sample logs from existing code.
	Infof("registered campaign %d with pincode %x", sampleInt, sampleBytes)
	Debugw("claim accepted", "campaign", 1, "nullifier", "abc123")
	Errorf("cannot commit claim record: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelFiltering(t *testing.T) {
	c := qt.New(t)
	buf := new(bytes.Buffer)
	logTestWriter = buf
	t.Cleanup(func() {
		Init("error", "stderr", nil)
	})

	Init(LogLevelWarn, logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)
	buf.Reset()

	Debugw("hidden debug", "key", "value")
	Infow("hidden info", "key", "value")
	c.Assert(buf.String(), qt.Equals, "")

	Warnw("visible warning", "campaign", 7)
	c.Assert(buf.String(), qt.Contains, "visible warning")
	c.Assert(buf.String(), qt.Contains, "campaign=7")
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	logTestWriter = io.Discard
	errBuf := new(bytes.Buffer)
	t.Cleanup(func() {
		Init("error", "stderr", nil)
	})

	Init(LogLevelDebug, logTestWriterName, errBuf)
	Infow("not an error")
	c.Assert(errBuf.String(), qt.Equals, "")

	Errorw(errSample, "transfer failed")
	c.Assert(strings.Contains(errBuf.String(), "transfer failed"), qt.IsTrue)
	c.Assert(strings.Contains(errBuf.String(), errSample.Error()), qt.IsTrue)
}

func TestInvalidLevel(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() {
		Init("error", "stderr", nil)
	})
	c.Assert(func() { Init("verbose", "stderr", nil) }, qt.PanicMatches, `invalid log level: "verbose"`)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}

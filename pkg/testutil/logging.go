package testutil

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// Package loggers are derived from the standard logger, so tests run at trace
// level with output discarded unless -test.v is set.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	for _, arg := range os.Args {
		if arg == "-test.v" || strings.HasPrefix(arg, "-test.v=") && arg != "-test.v=false" {
			return
		}
	}
	logrus.SetOutput(io.Discard)
}

// CaptureLogs sends standard logger output to the returned buffer as JSON
// lines until the test completes.
func CaptureLogs(t *testing.T) *LogBuffer {
	logger := logrus.StandardLogger()
	out, formatter := logger.Out, logger.Formatter

	buf := &LogBuffer{}
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	t.Cleanup(func() {
		logger.SetOutput(out)
		logger.SetFormatter(formatter)
	})
	return buf
}

// LogBuffer is a concurrency safe log sink.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

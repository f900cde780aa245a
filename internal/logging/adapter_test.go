package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/alecthomas/zerodi/internal/logging"
)

func newTextLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		format   string
		args     []any
		expected []string
	}{
		{"SingleLine", slog.LevelInfo, "Hello %s", []any{"World"}, []string{"Hello World"}},
		{"TrailingNewline", slog.LevelWarn, "go list: %d packages\n", []any{3}, []string{"go list: 3 packages"}},
		{"MultipleLines", slog.LevelDebug, "first\nsecond", nil, []string{"first", "second"}},
		{"BlankLinesDropped", slog.LevelInfo, "first\n\nsecond\n", nil, []string{"first", "second"}},
		{"GoCommandTiming", slog.LevelDebug, "%.3fs for %v", []any{1.5, "go list -json ./..."}, []string{`msg="go command" duration=1.5s command="go list -json ./..."`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logging.Logf(newTextLogger(&buf), tt.level)(tt.format, tt.args...)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			assert.Equal(t, len(tt.expected), len(lines))
			for i, line := range lines {
				assert.Contains(t, line, "level="+tt.level.String())
				assert.Contains(t, line, tt.expected[i])
			}
		})
	}
}

func TestLogfConcurrent(t *testing.T) {
	var buf bytes.Buffer
	logf := logging.Logf(newTextLogger(&buf), slog.LevelInfo)
	wg := sync.WaitGroup{}
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logf("message %d", i)
		}()
	}
	wg.Wait()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 10, len(lines))
}

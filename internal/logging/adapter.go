package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// goCommandTiming matches the timing lines go/packages writes after running the go command,
// eg. "0.153s for go list -json ./...".
var goCommandTiming = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)s for (.+)$`)

// Logf returns a printf-style function logging each non-empty line of its output to logger
// at level.
//
// Timing lines of the go command are logged as "go command" records with duration and command
// attributes.
func Logf(logger *slog.Logger, level slog.Level) func(format string, args ...any) {
	return func(format string, args ...any) {
		for line := range strings.Lines(fmt.Sprintf(format, args...)) {
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				continue
			}
			logLine(logger, level, line)
		}
	}
}

func logLine(logger *slog.Logger, level slog.Level, line string) {
	ctx := context.Background()
	if match := goCommandTiming.FindStringSubmatch(line); match != nil {
		seconds, err := strconv.ParseFloat(match[1], 64)
		if err == nil {
			logger.Log(ctx, level, "go command",
				slog.Duration("duration", time.Duration(seconds*float64(time.Second))),
				slog.String("command", match[2]))
			return
		}
	}
	logger.Log(ctx, level, line)
}

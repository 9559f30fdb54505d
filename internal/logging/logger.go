// Package logging provides leveled logging and run tracing for aisoc.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A RunLogger for structured JSONL simulation traces (.aisoc/runs.jsonl)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/nvandessel/aisociety/internal/society"
	"github.com/nvandessel/aisociety/internal/telemetry"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, complete per-year series are included in traces.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// replaceLevel labels the custom trace level.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// NewLogger creates a leveled slog.Logger writing to w.
// Format "json" emits JSON lines; anything else renders through tint,
// with color only when w is a terminal.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)

	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: replaceLevel,
		}))
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       lvl,
		TimeFormat:  "15:04:05",
		NoColor:     !isTerminal(w),
		ReplaceAttr: replaceLevel,
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RunLogger writes structured simulation events to .aisoc/runs.jsonl.
// It is safe for concurrent use. A nil RunLogger is safe to use;
// all methods are no-ops on nil receiver.
type RunLogger struct {
	out   *JSONL
	level slog.Level
}

// NewRunLogger creates a run logger writing to dir/runs.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewRunLogger(dir string, level string) *RunLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	out, err := OpenJSONL(dir, "runs.jsonl")
	if err != nil {
		return nil
	}
	return &RunLogger{out: out, level: lvl}
}

// Tracing reports whether full series should be included in events.
func (rl *RunLogger) Tracing() bool {
	return rl != nil && rl.level <= LevelTrace
}

// Log writes an event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (rl *RunLogger) Log(event map[string]any) {
	if rl == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	_ = rl.out.Write(entry)
}

// LogSimulation records one completed simulation from source. Full series
// are included only at trace level; the trace ID is added when ctx carries
// a span. Safe to call on nil receiver.
func (rl *RunLogger) LogSimulation(ctx context.Context, source string, res *society.Result, elapsed time.Duration) {
	if rl == nil || res == nil {
		return
	}

	summary := res.Summary()
	entry := map[string]any{
		"event":            "simulate",
		"source":           source,
		"params":           res.Params,
		"seed":             res.Seed,
		"duration_ms":      elapsed.Milliseconds(),
		"final_avg_income": summary.AvgIncome.Final,
		"final_stability":  summary.Stability.Final,
		"final_gini":       summary.Gini.Final,
	}
	if id := telemetry.TraceID(ctx); id != "" {
		entry["trace_id"] = id
	}
	if rl.Tracing() {
		entry["avg_income"] = res.AvgIncome
		entry["stability"] = res.Stability
		entry["gini"] = res.Gini
	}
	rl.Log(entry)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (rl *RunLogger) Close() {
	if rl == nil {
		return
	}
	_ = rl.out.Close()
}

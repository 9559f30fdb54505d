package mcp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/aisociety/internal/logging"
)

// AuditEntry is one MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger records every tool call in .aisoc/audit.jsonl. A nil
// AuditLogger is a no-op.
type AuditLogger struct {
	out *logging.JSONL
}

// NewAuditLogger opens dir/audit.jsonl for appending. When the file cannot
// be opened the failure is logged and nil is returned, so tool calls still
// succeed without an audit trail.
func NewAuditLogger(dir string, logger *slog.Logger) *AuditLogger {
	out, err := logging.OpenJSONL(dir, "audit.jsonl")
	if err != nil {
		logger.Warn("audit log disabled", "error", err)
		return nil
	}
	return &AuditLogger{out: out}
}

// Log appends entry as one JSON line. Safe to call on nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}
	_ = a.out.Write(entry)
}

// Close closes the audit file. Safe to call on nil receiver and more than once.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	return a.out.Close()
}

// auditParams turns tool arguments into loggable strings. Labels are
// free text and only their presence is recorded.
func auditParams(params map[string]any) map[string]string {
	result := make(map[string]string, len(params))
	for key, val := range params {
		switch key {
		case "label":
			if s, _ := val.(string); s != "" {
				result[key] = "(set)"
			}
		default:
			result[key] = fmt.Sprintf("%v", val)
		}
	}
	return result
}

// auditTool records a tool invocation that began at start.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	entry := AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "success",
		Params:     params,
	}
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
		s.logger.Debug("tool failed", "tool", toolName, "error", err)
	}
	s.auditLogger.Log(entry)
}

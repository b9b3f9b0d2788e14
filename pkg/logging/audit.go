package logging

import (
	"context"
	"log/slog"
)

// AuditEvent describes a security-relevant action, such as a mutating tool call
// issued against the cluster.
type AuditEvent struct {
	// Action is the operation performed, usually the tool name.
	Action string
	// Outcome is "success", "failure" or "denied".
	Outcome string
	// SessionID identifies the conversation. Pass it through TruncateSessionID.
	SessionID string
	// Target is the affected object, e.g. "demo/web".
	Target string
	// Details carries extra context such as the error kind.
	Details string
}

// auditSessionIDLength is how many characters of a session id are kept in logs.
const auditSessionIDLength = 8

// TruncateSessionID shortens a session id so that logs stay correlatable without
// exposing the full identifier.
func TruncateSessionID(id string) string {
	if len(id) <= auditSessionIDLength {
		return id
	}
	return id[:auditSessionIDLength] + "..."
}

// Audit logs an audit event at INFO level with the [AUDIT] prefix.
func Audit(event AuditEvent) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	if logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.Details != "" {
		attrs = append(attrs, slog.String("details", event.Details))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// AuditLogger writes security and workflow audit records through slog.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (al *AuditLogger) emit(level slog.Level, auditType, eventType string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(context.Background(), level, "audit", append(base, attrs...)...)
}

func optional(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

// LogAuthAttempt logs login, logout and registration attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{slog.Bool("success", event.Success)}
	attrs = optional(attrs, "user_id", event.UserID)
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	attrs = optional(attrs, "ip_address", event.IPAddress)
	attrs = optional(attrs, "user_agent", event.UserAgent)
	attrs = optional(attrs, "failure_reason", event.FailureReason)

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.emit(level, "auth", event.EventType, attrs...)
}

// LogPasswordChange logs password resets and profile password updates
func (al *AuditLogger) LogPasswordChange(userID, method string, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.emit(level, "password", "password_change",
		slog.String("user_id", userID),
		slog.String("method", method),
		slog.Bool("success", success),
	)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(eventType, userID string, metadata map[string]string) {
	attrs := []slog.Attr{slog.String("user_id", userID)}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(slog.LevelInfo, "account", eventType, attrs...)
}

// LogDecision records an admin decision on a policy request or claim.
func (al *AuditLogger) LogDecision(entity, entityID, decision, adminID string) {
	al.emit(slog.LevelInfo, "decision", entity+"_decided",
		slog.String("entity_id", entityID),
		slog.String("decision", decision),
		slog.String("admin_id", adminID),
	)
}

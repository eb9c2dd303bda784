package server

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of protocol action being logged.
type AuditEvent string

const (
	AuditAttachSuccess    AuditEvent = "attach_success"
	AuditAttachRejected   AuditEvent = "attach_rejected"
	AuditSidRejected      AuditEvent = "sid_rejected"
	AuditNotAttached      AuditEvent = "not_attached"
	AuditSessionConflict  AuditEvent = "session_conflict"
	AuditLoginSuccess     AuditEvent = "login_success"
	AuditLoginFailure     AuditEvent = "login_failure"
	AuditLoginRateLimited AuditEvent = "login_rate_limited"
	AuditLogout           AuditEvent = "logout"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{logger: logger.With("component", "audit")}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logEvent records a successful protocol step attributed to a broker.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, brokerID string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("broker", brokerID)}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure records a rejected request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{slog.String("reason", reason)}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

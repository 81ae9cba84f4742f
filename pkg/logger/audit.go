package logger

import (
	"context"
	"log/slog"
	"time"
)

// AccessEvent is one door access attempt as written to the audit log.
type AccessEvent struct {
	EventID   string
	LockerID  string
	Timestamp time.Time
	Status    string
	Reason    string
	SourceIP  string
}

// AuthEvent is one register or login attempt.
type AuthEvent struct {
	EventType     string
	UserID        int64
	Email         string
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger writes security-relevant events as "audit" log records.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAccessAttempt records a door access attempt. Anything other than
// SUCCESS is logged at warn level.
func (al *AuditLogger) LogAccessAttempt(ctx context.Context, event AccessEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "access"),
		slog.String("event_id", event.EventID),
		slog.String("locker_id", event.LockerID),
		slog.String("status", event.Status),
		slog.String("reason", event.Reason),
		slog.String("timestamp", event.Timestamp.UTC().Format(time.RFC3339Nano)),
	}
	if event.SourceIP != "" {
		attrs = append(attrs, slog.String("ip_address", event.SourceIP))
	}

	level := slog.LevelInfo
	if event.Status != "SUCCESS" {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAuthAttempt records a register or login attempt.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuthEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockerAction records an occupancy change such as an assignment or a
// release. These never reach the access audit sink.
func (al *AuditLogger) LogLockerAction(ctx context.Context, action string, lockerID, userID int64, actorID int64) {
	attrs := []slog.Attr{
		slog.String("audit_type", "locker"),
		slog.String("event_type", action),
		slog.Int64("locker_id", lockerID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	if actorID != 0 {
		attrs = append(attrs, slog.Int64("actor_id", actorID))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

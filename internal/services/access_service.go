package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/google/uuid"
)

// maxLockerRefLen bounds the locker reference stored with an audit entry.
const maxLockerRefLen = 64

// AccessAttempt is a keypad's request to open a locker door.
type AccessAttempt struct {
	LockerRef string // locker id as it appeared in the request path
	OTP       string
	SourceIP  string
}

// AccessService decides whether a presented OTP opens a locker. It never
// modifies the locker and records every outcome to the audit sink.
type AccessService struct {
	lockers      LockerReader
	sink         AuditSink
	auditTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

func NewAccessService(lockers LockerReader, sink AuditSink, auditTimeout time.Duration, logger *slog.Logger) *AccessService {
	return &AccessService{
		lockers:      lockers,
		sink:         sink,
		auditTimeout: auditTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

// VerifyAccess returns nil when the door may open. Checks run in order and
// the first failure wins: missing OTP, unknown locker, locker not occupied,
// OTP expired, OTP mismatch.
func (s *AccessService) VerifyAccess(ctx context.Context, attempt AccessAttempt) error {
	if attempt.OTP == "" {
		s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonMissingOTP)
		return models.ErrMissingOTP
	}

	lockerID, err := strconv.ParseInt(attempt.LockerRef, 10, 64)
	if err != nil || lockerID <= 0 {
		s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonNotFound)
		return models.ErrLockerNotFound
	}

	locker, err := s.lockers.GetByID(ctx, lockerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonNotFound)
			return models.ErrLockerNotFound
		}
		s.logger.Error("failed to load locker for access check",
			slog.Int64("locker_id", lockerID),
			slog.Any("error", err),
		)
		s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonLookupFailed)
		return models.ErrInternalServer
	}

	if !locker.IsOccupied() {
		s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonNotOccupied)
		return models.ErrLockerNotOccupied
	}

	if locker.OTPValidUntil == nil || s.now().After(*locker.OTPValidUntil) {
		s.record(ctx, attempt, models.AccessStatusExpired, models.AccessReasonExpired)
		return models.ErrOTPExpired
	}

	if locker.OTPSalt == nil || locker.CurrentOTPHash == nil ||
		!auth.VerifyOTP(attempt.OTP, *locker.OTPSalt, *locker.CurrentOTPHash) {
		s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonInvalidOTP)
		return models.ErrInvalidOTP
	}

	s.record(ctx, attempt, models.AccessStatusSuccess, models.AccessReasonGranted)
	return nil
}

// RecordRateLimited audits an attempt that was rejected by the rate limiter
// before any check ran.
func (s *AccessService) RecordRateLimited(ctx context.Context, attempt AccessAttempt) {
	s.record(ctx, attempt, models.AccessStatusFailed, models.AccessReasonRateLimited)
}

// record writes the outcome to the sink. The write outlives a cancelled
// request but is bounded by auditTimeout, and its failure never changes
// the access decision.
func (s *AccessService) record(ctx context.Context, attempt AccessAttempt, status, reason string) {
	entry := models.AccessLogEntry{
		EventID:   uuid.NewString(),
		LockerID:  truncateRef(attempt.LockerRef),
		Timestamp: s.now().UTC(),
		Status:    status,
		Reason:    reason,
		SourceIP:  attempt.SourceIP,
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()

	if err := s.sink.Record(writeCtx, entry); err != nil {
		s.logger.Warn("failed to record access attempt",
			slog.String("event_id", entry.EventID),
			slog.String("locker_id", entry.LockerID),
			slog.String("status", status),
			slog.Any("error", err),
		)
	}
}

func truncateRef(ref string) string {
	if utf8.RuneCountInString(ref) <= maxLockerRefLen {
		return ref
	}
	return string([]rune(ref)[:maxLockerRefLen])
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/config"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
)

// MaxRentalDays bounds the rental length so expiry timestamps stay representable.
const MaxRentalDays = 3650

// AssignInput is a request to claim a locker.
type AssignInput struct {
	UserID   int64
	LockerID int64
	Days     int    // 0 selects the configured default
	Color    string // "" selects the configured default
}

// LockerService implements the occupancy lifecycle of lockers: assignment,
// OTP rotation, release and extension requests.
type LockerService struct {
	lockers     LockerRepository
	requests    LockerRequestRepository
	notifier    ExtensionNotifier
	cfg         config.LockerConfig
	issueOTP    func() (auth.LockerOTP, error)
	now         func() time.Time
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewLockerService(
	lockers LockerRepository,
	requests LockerRequestRepository,
	notifier ExtensionNotifier,
	cfg config.LockerConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *LockerService {
	if notifier == nil {
		notifier = NewNoopNotifier(logger)
	}
	return &LockerService{
		lockers:     lockers,
		requests:    requests,
		notifier:    notifier,
		cfg:         cfg,
		issueOTP:    auth.GenerateOTP,
		now:         time.Now,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Assign claims an available locker for a user who holds none and returns
// the initial OTP. Preconditions are checked in order: missing ids, user
// already holding a locker, locker missing or not available.
func (s *LockerService) Assign(ctx context.Context, in AssignInput) (*models.Assignment, error) {
	if in.UserID <= 0 || in.LockerID <= 0 {
		return nil, fmt.Errorf("%w: user_id and locker_id are required", models.ErrBadRequest)
	}

	days := in.Days
	if days == 0 {
		days = s.cfg.DefaultDays
	}
	if days < 1 || days > MaxRentalDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", models.ErrBadRequest, MaxRentalDays)
	}

	color := in.Color
	if color == "" {
		color = s.cfg.DefaultColor
	}

	hasLocker, err := s.userHasLocker(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if hasLocker {
		return nil, models.ErrAlreadyHasLocker
	}

	locker, err := s.lockers.GetByID(ctx, in.LockerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrLockerUnavailable
		}
		s.logger.Error("failed to load locker", slog.Int64("locker_id", in.LockerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if locker.Status != models.LockerStatusAvailable {
		return nil, models.ErrLockerUnavailable
	}

	otp, err := s.issueOTP()
	if err != nil {
		s.logger.Error("failed to issue OTP", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	claim := models.Claim{
		LockerID:      in.LockerID,
		UserID:        in.UserID,
		AssignedAt:    now,
		ExpiresAt:     now.Add(time.Duration(days) * 24 * time.Hour),
		OTPHash:       otp.Hash,
		OTPSalt:       otp.Salt,
		OTPValidUntil: now.Add(s.cfg.AssignOTPValidity),
		ColorHex:      color,
	}

	claimed, err := s.lockers.TryClaim(ctx, claim)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			return nil, fmt.Errorf("%w: unknown user", models.ErrBadRequest)
		}
		s.logger.Error("failed to claim locker", slog.Int64("locker_id", in.LockerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !claimed {
		// A concurrent request won; report whichever precondition it broke.
		hasLocker, err := s.userHasLocker(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if hasLocker {
			return nil, models.ErrAlreadyHasLocker
		}
		return nil, models.ErrLockerUnavailable
	}

	s.auditLogger.LogLockerAction(ctx, "assign", in.LockerID, in.UserID, 0)

	return &models.Assignment{
		LockerID:      in.LockerID,
		Code:          otp.Code,
		OTPValidUntil: claim.OTPValidUntil,
		ExpiresAt:     claim.ExpiresAt,
	}, nil
}

func (s *LockerService) userHasLocker(ctx context.Context, userID int64) (bool, error) {
	_, err := s.lockers.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	default:
		s.logger.Error("failed to look up user's locker", slog.Int64("user_id", userID), slog.Any("error", err))
		return false, models.ErrInternalServer
	}
}

// RotateOTP replaces the OTP of the user's locker with a short-lived one.
// Occupancy and the rental window are untouched.
func (s *LockerService) RotateOTP(ctx context.Context, userID int64) (*models.IssuedOTP, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrBadRequest)
	}

	otp, err := s.issueOTP()
	if err != nil {
		s.logger.Error("failed to issue OTP", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	validUntil := s.now().Add(s.cfg.RotateOTPValidity)
	lockerID, err := s.lockers.RotateOTP(ctx, models.OTPRotation{
		UserID:        userID,
		OTPHash:       otp.Hash,
		OTPSalt:       otp.Salt,
		OTPValidUntil: validUntil,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoLocker
		}
		s.logger.Error("failed to rotate OTP", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.IssuedOTP{LockerID: lockerID, Code: otp.Code, ValidUntil: validUntil}, nil
}

func (s *LockerService) ListAvailable(ctx context.Context) ([]*models.Locker, error) {
	lockers, err := s.lockers.ListAvailable(ctx)
	if err != nil {
		s.logger.Error("failed to list available lockers", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return lockers, nil
}

// GetMyLocker returns the locker the user occupies.
func (s *LockerService) GetMyLocker(ctx context.Context, userID int64) (*models.Locker, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrBadRequest)
	}

	locker, err := s.lockers.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoLocker
		}
		s.logger.Error("failed to get user's locker", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return locker, nil
}

// CancelByOwner releases the user's locker immediately.
func (s *LockerService) CancelByOwner(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user_id is required", models.ErrBadRequest)
	}

	lockerID, err := s.lockers.ReleaseByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNoLocker
		}
		s.logger.Error("failed to release locker", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogLockerAction(ctx, "cancel", lockerID, userID, userID)
	return nil
}

// ForceRelease frees an occupied locker on behalf of an administrator.
func (s *LockerService) ForceRelease(ctx context.Context, lockerID, actorID int64) error {
	if lockerID <= 0 {
		return fmt.Errorf("%w: locker id is required", models.ErrBadRequest)
	}

	if err := s.lockers.Release(ctx, lockerID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: locker not found or not occupied", models.ErrNotFound)
		}
		s.logger.Error("failed to force-release locker", slog.Int64("locker_id", lockerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogLockerAction(ctx, "force_release", lockerID, 0, actorID)
	return nil
}

// RequestExtension records a pending time-change request against the
// user's locker. The rental window itself is not changed.
func (s *LockerService) RequestExtension(ctx context.Context, userID int64, days int) (*models.LockerRequest, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrBadRequest)
	}
	if days == 0 {
		days = s.cfg.DefaultDays
	}
	if days < 1 || days > MaxRentalDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", models.ErrBadRequest, MaxRentalDays)
	}

	notes := fmt.Sprintf("Extension requested for %d additional days", days)
	req, err := s.requests.CreateForUser(ctx, userID, models.RequestTypeChangeTime, notes)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoLocker
		}
		s.logger.Error("failed to create extension request", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.notifier.NotifyExtensionRequested(ctx, ExtensionNotice{
		RequestID: req.ID,
		LockerID:  req.LockerID,
		UserID:    userID,
		Days:      days,
		CreatedAt: req.CreatedAt,
	}); err != nil {
		s.logger.Warn("failed to notify administrators of extension request",
			slog.Int64("request_id", req.ID),
			slog.Any("error", err),
		)
	}

	return req, nil
}

// ListAll returns every locker with its occupant for administrators.
func (s *LockerService) ListAll(ctx context.Context) ([]*models.LockerWithOwner, error) {
	lockers, err := s.lockers.ListWithOwners(ctx)
	if err != nil {
		s.logger.Error("failed to list lockers", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return lockers, nil
}

// ListRequests returns occupant requests in the given status, newest first.
func (s *LockerService) ListRequests(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
	if status == "" {
		status = models.RequestStatusPending
	}
	if !models.IsValidRequestStatus(status) {
		return nil, fmt.Errorf("%w: unknown request status %q", models.ErrBadRequest, status)
	}

	requests, err := s.requests.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list locker requests", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return requests, nil
}

package services

import (
	"context"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
)

// UserRepository is the account store used by AuthService.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	CountByRole(ctx context.Context, role string) (int64, error)
}

// LockerRepository is the locker store. Every state change is a single
// conditional write.
type LockerRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Locker, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Locker, error)
	ListAvailable(ctx context.Context) ([]*models.Locker, error)
	ListWithOwners(ctx context.Context) ([]*models.LockerWithOwner, error)
	TryClaim(ctx context.Context, c models.Claim) (bool, error)
	RotateOTP(ctx context.Context, rot models.OTPRotation) (int64, error)
	ReleaseByUser(ctx context.Context, userID int64) (int64, error)
	Release(ctx context.Context, lockerID int64) error
}

// LockerReader is the read-only view AccessService needs.
type LockerReader interface {
	GetByID(ctx context.Context, id int64) (*models.Locker, error)
}

// LockerRequestRepository stores occupant requests.
type LockerRequestRepository interface {
	CreateForUser(ctx context.Context, userID int64, requestType, notes string) (*models.LockerRequest, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error)
}

// AuditSink is an append-only destination for access attempts.
type AuditSink interface {
	Record(ctx context.Context, entry models.AccessLogEntry) error
}

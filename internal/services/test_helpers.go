package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id int64) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, id int64, hash string) error
	CountByRoleFunc        func(ctx context.Context, role string) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, hash)
	}
	return nil
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, nil
}

// MockLockerRepository implements LockerRepository for testing
type MockLockerRepository struct {
	GetByIDFunc        func(ctx context.Context, id int64) (*models.Locker, error)
	GetByUserIDFunc    func(ctx context.Context, userID int64) (*models.Locker, error)
	ListAvailableFunc  func(ctx context.Context) ([]*models.Locker, error)
	ListWithOwnersFunc func(ctx context.Context) ([]*models.LockerWithOwner, error)
	TryClaimFunc       func(ctx context.Context, c models.Claim) (bool, error)
	RotateOTPFunc      func(ctx context.Context, rot models.OTPRotation) (int64, error)
	ReleaseByUserFunc  func(ctx context.Context, userID int64) (int64, error)
	ReleaseFunc        func(ctx context.Context, lockerID int64) error
}

func (m *MockLockerRepository) GetByID(ctx context.Context, id int64) (*models.Locker, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockerRepository) GetByUserID(ctx context.Context, userID int64) (*models.Locker, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockerRepository) ListAvailable(ctx context.Context) ([]*models.Locker, error) {
	if m.ListAvailableFunc != nil {
		return m.ListAvailableFunc(ctx)
	}
	return []*models.Locker{}, nil
}

func (m *MockLockerRepository) ListWithOwners(ctx context.Context) ([]*models.LockerWithOwner, error) {
	if m.ListWithOwnersFunc != nil {
		return m.ListWithOwnersFunc(ctx)
	}
	return []*models.LockerWithOwner{}, nil
}

func (m *MockLockerRepository) TryClaim(ctx context.Context, c models.Claim) (bool, error) {
	if m.TryClaimFunc != nil {
		return m.TryClaimFunc(ctx, c)
	}
	return false, nil
}

func (m *MockLockerRepository) RotateOTP(ctx context.Context, rot models.OTPRotation) (int64, error) {
	if m.RotateOTPFunc != nil {
		return m.RotateOTPFunc(ctx, rot)
	}
	return 0, models.ErrNotFound
}

func (m *MockLockerRepository) ReleaseByUser(ctx context.Context, userID int64) (int64, error) {
	if m.ReleaseByUserFunc != nil {
		return m.ReleaseByUserFunc(ctx, userID)
	}
	return 0, models.ErrNotFound
}

func (m *MockLockerRepository) Release(ctx context.Context, lockerID int64) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, lockerID)
	}
	return models.ErrNotFound
}

// MockLockerRequestRepository implements LockerRequestRepository for testing
type MockLockerRequestRepository struct {
	CreateForUserFunc func(ctx context.Context, userID int64, requestType, notes string) (*models.LockerRequest, error)
	ListByStatusFunc  func(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error)
}

func (m *MockLockerRequestRepository) CreateForUser(ctx context.Context, userID int64, requestType, notes string) (*models.LockerRequest, error) {
	if m.CreateForUserFunc != nil {
		return m.CreateForUserFunc(ctx, userID, requestType, notes)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockerRequestRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, status, limit, offset)
	}
	return []*models.LockerRequest{}, nil
}

// RecordingSink is an AuditSink that keeps entries in memory.
type RecordingSink struct {
	mu      sync.Mutex
	Entries []models.AccessLogEntry
	Err     error
}

func (s *RecordingSink) Record(ctx context.Context, entry models.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, entry)
	return s.Err
}

func (s *RecordingSink) Last() models.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Entries) == 0 {
		return models.AccessLogEntry{}
	}
	return s.Entries[len(s.Entries)-1]
}

// MockNotifier implements ExtensionNotifier for testing
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, notice ExtensionNotice) error
	Notices    []ExtensionNotice
}

func (m *MockNotifier) NotifyExtensionRequested(ctx context.Context, notice ExtensionNotice) error {
	m.Notices = append(m.Notices, notice)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, notice)
	}
	return nil
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateFunc func(user *models.User) (string, error)
	Expiry       time.Duration
}

func (m *MockTokenIssuer) GenerateAccessToken(user *models.User) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(user)
	}
	return "test-token", nil
}

func (m *MockTokenIssuer) AccessTokenExpiry() time.Duration {
	return m.Expiry
}

// newTestLogger returns a logger that discards output.
func newTestLogger() (*slog.Logger, *pkglogger.AuditLogger) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return logger, pkglogger.NewAuditLogger(logger)
}

// NewTestUser creates a test user with the given fields.
func NewTestUser(id int64, email, name string) *models.User {
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		CreatedAt: time.Now(),
	}
}

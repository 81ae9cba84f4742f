package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkgauth "github.com/Diego-Toledo1/secure-smart-locker/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(repo UserRepository, tokens TokenIssuer) *AuthService {
	logger, auditLogger := newTestLogger()
	return NewAuthService(repo, tokens, nil, logger, auditLogger)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)
	return hash
}

// ============================================================================
// Register
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	var stored *models.User
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			stored = user
			created := *user
			created.ID = 11
			created.CreatedAt = time.Now()
			return &created, nil
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	user, err := svc.Register(context.Background(), "  Alice@Example.COM ", "Alice", "Correct-Horse-9", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, int64(11), user.ID)
	assert.Equal(t, "alice@example.com", stored.Email)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.NotEqual(t, "Correct-Horse-9", stored.PasswordHash)
	assert.NoError(t, pkgauth.ComparePassword(stored.PasswordHash, "Correct-Horse-9"))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	_, err := svc.Register(context.Background(), "alice@example.com", "Alice", "Correct-Horse-9", "")
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockTokenIssuer{})

	tests := []struct {
		name     string
		email    string
		userName string
		password string
	}{
		{"missing email", "", "Alice", "Correct-Horse-9"},
		{"missing name", "alice@example.com", " ", "Correct-Horse-9"},
		{"short password", "alice@example.com", "Alice", "short"},
		{"common password", "alice@example.com", "Alice", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.userName, tt.password, "")
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

// ============================================================================
// Login
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	user := NewTestUser(3, "bob@example.com", "Bob")
	user.PasswordHash = mustHash(t, "Correct-Horse-9")

	var lookedUp string
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			lookedUp = email
			return user, nil
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{Expiry: time.Hour})

	res, err := svc.Login(context.Background(), "BOB@example.com", "Correct-Horse-9", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", lookedUp)
	assert.Equal(t, "test-token", res.Token)
	assert.Equal(t, time.Hour, res.ExpiresIn)
	assert.Equal(t, int64(3), res.User.ID)
}

func TestAuthService_Login_IssuesVerifiableToken(t *testing.T) {
	user := NewTestUser(3, "bob@example.com", "Bob")
	user.PasswordHash = mustHash(t, "Correct-Horse-9")
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) { return user, nil },
	}
	tm := auth.NewTokenManager("a-test-secret-that-is-long-enough-for-hs256", time.Hour)
	svc := newTestAuthService(repo, tm)

	res, err := svc.Login(context.Background(), "bob@example.com", "Correct-Horse-9", "")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	user := NewTestUser(3, "bob@example.com", "Bob")
	user.PasswordHash = mustHash(t, "Correct-Horse-9")

	tests := []struct {
		name  string
		email string
	}{
		{"unknown email", "nobody@example.com"},
		{"wrong password", "bob@example.com"},
	}

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == user.Email {
				return user, nil
			}
			return nil, models.ErrNotFound
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, "Wrong-Horse-9", "")
			assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_Login_AppliesTimingDelayOnFailure(t *testing.T) {
	logger, auditLogger := newTestLogger()
	td := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 30 * time.Millisecond})
	svc := NewAuthService(&MockUserRepository{}, &MockTokenIssuer{}, td, logger, auditLogger)

	start := time.Now()
	_, err := svc.Login(context.Background(), "nobody@example.com", "Wrong-Horse-9", "")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAuthService_Login_UpgradesLegacyHash(t *testing.T) {
	salt := "abc123"
	sum := sha256.Sum256([]byte("Legacy-Pass-1" + salt))
	user := NewTestUser(4, "old@example.com", "Old")
	user.PasswordHash = salt + "$" + hex.EncodeToString(sum[:])

	var upgraded string
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) { return user, nil },
		UpdatePasswordHashFunc: func(ctx context.Context, id int64, hash string) error {
			upgraded = hash
			return nil
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	_, err := svc.Login(context.Background(), "old@example.com", "Legacy-Pass-1", "")
	require.NoError(t, err)

	require.NotEmpty(t, upgraded)
	assert.False(t, pkgauth.IsLegacyHash(upgraded))
	assert.NoError(t, pkgauth.ComparePassword(upgraded, "Legacy-Pass-1"))
}

func TestAuthService_Login_UpgradeFailureStillSucceeds(t *testing.T) {
	salt := "abc123"
	sum := sha256.Sum256([]byte("Legacy-Pass-1" + salt))
	user := NewTestUser(4, "old@example.com", "Old")
	user.PasswordHash = salt + "$" + hex.EncodeToString(sum[:])

	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) { return user, nil },
		UpdatePasswordHashFunc: func(ctx context.Context, id int64, hash string) error {
			return errors.New("write failed")
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	_, err := svc.Login(context.Background(), "old@example.com", "Legacy-Pass-1", "")
	assert.NoError(t, err)
}

func TestAuthService_Login_RepositoryError(t *testing.T) {
	repo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, errors.New("connection reset")
		},
	}
	svc := newTestAuthService(repo, &MockTokenIssuer{})

	_, err := svc.Login(context.Background(), "bob@example.com", "Correct-Horse-9", "")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

// ============================================================================
// EnsureAdmin
// ============================================================================

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Run("creates admin when none exists", func(t *testing.T) {
		var created *models.User
		repo := &MockUserRepository{
			CountByRoleFunc: func(ctx context.Context, role string) (int64, error) { return 0, nil },
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				created = user
				user.ID = 1
				return user, nil
			},
		}
		svc := newTestAuthService(repo, &MockTokenIssuer{})

		require.NoError(t, svc.EnsureAdmin(context.Background(), "Admin@Example.com", "Admin-Pass-99"))
		require.NotNil(t, created)
		assert.Equal(t, models.RoleAdmin, created.Role)
		assert.Equal(t, "admin@example.com", created.Email)
	})

	t.Run("skips when admin exists", func(t *testing.T) {
		repo := &MockUserRepository{
			CountByRoleFunc: func(ctx context.Context, role string) (int64, error) { return 1, nil },
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				t.Fatal("unexpected create")
				return nil, nil
			},
		}
		svc := newTestAuthService(repo, &MockTokenIssuer{})
		assert.NoError(t, svc.EnsureAdmin(context.Background(), "admin@example.com", "Admin-Pass-99"))
	})

	t.Run("skips when not configured", func(t *testing.T) {
		svc := newTestAuthService(&MockUserRepository{}, &MockTokenIssuer{})
		assert.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
	})

	t.Run("rejects weak password", func(t *testing.T) {
		svc := newTestAuthService(&MockUserRepository{}, &MockTokenIssuer{})
		assert.Error(t, svc.EnsureAdmin(context.Background(), "admin@example.com", "short"))
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkgauth "github.com/Diego-Toledo1/secure-smart-locker/pkg/auth"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(user *models.User) (string, error)
	AccessTokenExpiry() time.Duration
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresIn time.Duration
}

// AuthService handles account registration and login.
type AuthService struct {
	repo        UserRepository
	tokens      TokenIssuer
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(repo UserRepository, tokens TokenIssuer, timingDelay *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, email, name, password, ip string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" || name == "" {
		return nil, fmt.Errorf("%w: email and name are required", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, passwordError(err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
				EventType:     "register",
				Email:         email,
				IPAddress:     ip,
				FailureReason: "email_taken",
			})
			return nil, models.ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
		EventType: "register",
		UserID:    created.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})

	return created, nil
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password produce the same error and, with a timing delay
// configured, take about the same time.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrBadRequest)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.loginFailed(ctx, 0, email, ip, "invalid_credentials")
			s.timingDelay.WaitFrom(start, false)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.loginFailed(ctx, user.ID, email, ip, "invalid_credentials")
		s.timingDelay.WaitFrom(start, false)
		return nil, models.ErrInvalidCredentials
	}

	if pkgauth.IsLegacyHash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
		EventType: "login",
		UserID:    user.ID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})
	s.timingDelay.WaitFrom(start, true)

	return &LoginResult{
		User:      user,
		Token:     token,
		ExpiresIn: s.tokens.AccessTokenExpiry(),
	}, nil
}

// upgradeHash replaces a legacy salted digest with bcrypt. Failure is
// logged and the login still succeeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hashed, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash legacy password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hashed); err != nil {
		s.logger.Warn("failed to store upgraded password hash", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.PasswordHash = hashed
	s.logger.Info("upgraded legacy password hash", slog.Int64("user_id", user.ID))
}

func (s *AuthService) loginFailed(ctx context.Context, userID int64, email, ip, reason string) {
	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
		EventType:     "login",
		UserID:        userID,
		Email:         email,
		IPAddress:     ip,
		FailureReason: reason,
	})
}

// EnsureAdmin creates an administrator account when none exists. It is a
// no-op if any admin is present or if email or password is empty.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	count, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("admin password rejected: %w", err)
	}

	hashed, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         "Administrator",
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", slog.Int64("user_id", created.ID))
	return nil
}

func passwordError(err error) error {
	var pve *pkgauth.PasswordValidationError
	if errors.As(err, &pve) {
		return fmt.Errorf("%w: password %s", models.ErrBadRequest, strings.Join(pve.Errors, ", "))
	}
	return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
}

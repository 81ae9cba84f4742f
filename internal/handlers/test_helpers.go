package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/services"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID int64, email string) *http.Request {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		Email:  email,
		Role:   models.RoleUser,
	}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

// WithAdminContext adds admin user claims to request context
func WithAdminContext(req *http.Request, userID int64, email string) *http.Request {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		Email:  email,
		Role:   models.RoleAdmin,
	}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, email, name, password, ip string) (*models.User, error)
	LoginFunc    func(ctx context.Context, email, password, ip string) (*services.LoginResult, error)
}

func (m *MockAuthService) Register(ctx context.Context, email, name, password, ip string) (*models.User, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, name, password, ip)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ip string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, ip)
}

// MockLockerService implements LockerServiceInterface and AdminServiceInterface for testing
type MockLockerService struct {
	AssignFunc           func(ctx context.Context, in services.AssignInput) (*models.Assignment, error)
	RotateOTPFunc        func(ctx context.Context, userID int64) (*models.IssuedOTP, error)
	ListAvailableFunc    func(ctx context.Context) ([]*models.Locker, error)
	GetMyLockerFunc      func(ctx context.Context, userID int64) (*models.Locker, error)
	CancelByOwnerFunc    func(ctx context.Context, userID int64) error
	RequestExtensionFunc func(ctx context.Context, userID int64, days int) (*models.LockerRequest, error)
	ListAllFunc          func(ctx context.Context) ([]*models.LockerWithOwner, error)
	ForceReleaseFunc     func(ctx context.Context, lockerID, actorID int64) error
	ListRequestsFunc     func(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error)
}

func (m *MockLockerService) Assign(ctx context.Context, in services.AssignInput) (*models.Assignment, error) {
	if m.AssignFunc == nil {
		return nil, models.ErrLockerUnavailable
	}
	return m.AssignFunc(ctx, in)
}

func (m *MockLockerService) RotateOTP(ctx context.Context, userID int64) (*models.IssuedOTP, error) {
	if m.RotateOTPFunc == nil {
		return nil, models.ErrNoLocker
	}
	return m.RotateOTPFunc(ctx, userID)
}

func (m *MockLockerService) ListAvailable(ctx context.Context) ([]*models.Locker, error) {
	if m.ListAvailableFunc == nil {
		return []*models.Locker{}, nil
	}
	return m.ListAvailableFunc(ctx)
}

func (m *MockLockerService) GetMyLocker(ctx context.Context, userID int64) (*models.Locker, error) {
	if m.GetMyLockerFunc == nil {
		return nil, models.ErrNoLocker
	}
	return m.GetMyLockerFunc(ctx, userID)
}

func (m *MockLockerService) CancelByOwner(ctx context.Context, userID int64) error {
	if m.CancelByOwnerFunc == nil {
		return models.ErrNoLocker
	}
	return m.CancelByOwnerFunc(ctx, userID)
}

func (m *MockLockerService) RequestExtension(ctx context.Context, userID int64, days int) (*models.LockerRequest, error) {
	if m.RequestExtensionFunc == nil {
		return nil, models.ErrNoLocker
	}
	return m.RequestExtensionFunc(ctx, userID, days)
}

func (m *MockLockerService) ListAll(ctx context.Context) ([]*models.LockerWithOwner, error) {
	if m.ListAllFunc == nil {
		return []*models.LockerWithOwner{}, nil
	}
	return m.ListAllFunc(ctx)
}

func (m *MockLockerService) ForceRelease(ctx context.Context, lockerID, actorID int64) error {
	if m.ForceReleaseFunc == nil {
		return models.ErrNotFound
	}
	return m.ForceReleaseFunc(ctx, lockerID, actorID)
}

func (m *MockLockerService) ListRequests(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
	if m.ListRequestsFunc == nil {
		return []*models.LockerRequest{}, nil
	}
	return m.ListRequestsFunc(ctx, status, limit, offset)
}

// MockAccessService implements AccessServiceInterface for testing
type MockAccessService struct {
	VerifyAccessFunc func(ctx context.Context, attempt services.AccessAttempt) error
	RateLimited      []services.AccessAttempt
}

func (m *MockAccessService) VerifyAccess(ctx context.Context, attempt services.AccessAttempt) error {
	if m.VerifyAccessFunc == nil {
		return nil
	}
	return m.VerifyAccessFunc(ctx, attempt)
}

func (m *MockAccessService) RecordRateLimited(ctx context.Context, attempt services.AccessAttempt) {
	m.RateLimited = append(m.RateLimited, attempt)
}

// MockAccessLogReader implements AccessLogReader for testing
type MockAccessLogReader struct {
	ListByLockerFunc func(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error)
}

func (m *MockAccessLogReader) ListByLocker(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error) {
	if m.ListByLockerFunc == nil {
		return []models.AccessLogEntry{}, nil
	}
	return m.ListByLockerFunc(ctx, lockerID, limit)
}

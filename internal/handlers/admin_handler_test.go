package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/handlers"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── ListLockers ───────────────────────────────────────────────────────────────

func TestListLockers_IncludesOwner(t *testing.T) {
	name, email := "Alice", "alice@example.com"
	svc := &handlers.MockLockerService{
		ListAllFunc: func(ctx context.Context) ([]*models.LockerWithOwner, error) {
			return []*models.LockerWithOwner{
				{Locker: models.Locker{ID: 1, Code: "L-01", Status: models.LockerStatusOccupied}, UserName: &name, UserEmail: &email},
				{Locker: models.Locker{ID: 2, Code: "L-02", Status: models.LockerStatusAvailable}},
			}, nil
		},
	}
	h := handlers.NewAdminHandler(svc, nil)

	req := httptest.NewRequest("GET", "/admin/lockers", nil)
	w := httptest.NewRecorder()
	h.ListLockers(w, req)

	var resp []handlers.AdminLockerResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp, 2)
	require.NotNil(t, resp[0].UserName)
	assert.Equal(t, "Alice", *resp[0].UserName)
	assert.Nil(t, resp[1].UserEmail)
}

func TestListLockers_ServiceError_Returns500(t *testing.T) {
	svc := &handlers.MockLockerService{
		ListAllFunc: func(ctx context.Context) ([]*models.LockerWithOwner, error) {
			return nil, models.ErrInternalServer
		},
	}
	h := handlers.NewAdminHandler(svc, nil)

	req := httptest.NewRequest("GET", "/admin/lockers", nil)
	w := httptest.NewRecorder()
	h.ListLockers(w, req)

	handlers.AssertErrorResponse(t, w, 500, pkghttp.CodeInternal)
}

// ── ForceRelease ──────────────────────────────────────────────────────────────

func TestForceRelease_Success(t *testing.T) {
	var gotLocker, gotActor int64
	svc := &handlers.MockLockerService{
		ForceReleaseFunc: func(ctx context.Context, lockerID, actorID int64) error {
			gotLocker, gotActor = lockerID, actorID
			return nil
		},
	}
	h := handlers.NewAdminHandler(svc, nil)

	req := httptest.NewRequest("DELETE", "/admin/lockers/5/force-release", nil)
	req = handlers.WithURLParam(req, "id", "5")
	req = handlers.WithAdminContext(req, 99, "admin@example.com")
	w := httptest.NewRecorder()
	h.ForceRelease(w, req)

	var resp pkghttp.MessageResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, int64(5), gotLocker)
	assert.Equal(t, int64(99), gotActor)
}

func TestForceRelease_InvalidID(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, nil)

	req := httptest.NewRequest("DELETE", "/admin/lockers/abc/force-release", nil)
	req = handlers.WithURLParam(req, "id", "abc")
	w := httptest.NewRecorder()
	h.ForceRelease(w, req)

	handlers.AssertErrorResponse(t, w, 400, pkghttp.CodeBadRequest)
}

func TestForceRelease_NotOccupied(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, nil)

	req := httptest.NewRequest("DELETE", "/admin/lockers/5/force-release", nil)
	req = handlers.WithURLParam(req, "id", "5")
	w := httptest.NewRecorder()
	h.ForceRelease(w, req)

	handlers.AssertErrorResponse(t, w, 404, pkghttp.CodeNotFound)
}

// ── ListRequests ──────────────────────────────────────────────────────────────

func TestListRequests_PassesFilters(t *testing.T) {
	var gotStatus string
	var gotLimit, gotOffset int
	svc := &handlers.MockLockerService{
		ListRequestsFunc: func(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
			gotStatus, gotLimit, gotOffset = status, limit, offset
			return []*models.LockerRequest{{ID: 1, Status: status, CreatedAt: time.Now()}}, nil
		},
	}
	h := handlers.NewAdminHandler(svc, nil)

	req := httptest.NewRequest("GET", "/admin/locker-requests?status=pending&limit=10&offset=20", nil)
	w := httptest.NewRecorder()
	h.ListRequests(w, req)

	var resp []handlers.LockerRequestResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp, 1)
	assert.Equal(t, "pending", gotStatus)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
}

func TestListRequests_InvalidLimit(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, nil)

	req := httptest.NewRequest("GET", "/admin/locker-requests?limit=0", nil)
	w := httptest.NewRecorder()
	h.ListRequests(w, req)

	handlers.AssertErrorResponse(t, w, 400, pkghttp.CodeBadRequest)
}

func TestListRequests_UnknownStatus(t *testing.T) {
	svc := &handlers.MockLockerService{
		ListRequestsFunc: func(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
			return nil, models.ErrBadRequest
		},
	}
	h := handlers.NewAdminHandler(svc, nil)

	req := httptest.NewRequest("GET", "/admin/locker-requests?status=archived", nil)
	w := httptest.NewRecorder()
	h.ListRequests(w, req)

	handlers.AssertErrorResponse(t, w, 400, pkghttp.CodeBadRequest)
}

// ── ListAccessLogs ────────────────────────────────────────────────────────────

func TestListAccessLogs(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var gotLocker string
	logs := &handlers.MockAccessLogReader{
		ListByLockerFunc: func(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error) {
			gotLocker = lockerID
			return []models.AccessLogEntry{
				{EventID: "e1", LockerID: lockerID, Timestamp: ts, Status: "SUCCESS", Reason: "Access Granted"},
			}, nil
		},
	}
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, logs)

	req := httptest.NewRequest("GET", "/admin/lockers/5/access-logs", nil)
	req = handlers.WithURLParam(req, "id", "5")
	w := httptest.NewRecorder()
	h.ListAccessLogs(w, req)

	var resp []handlers.AccessLogResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "5", gotLocker)
	assert.Equal(t, "2026-03-01T10:00:00Z", resp[0].Timestamp)
}

func TestListAccessLogs_NotQueryable(t *testing.T) {
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, nil)

	req := httptest.NewRequest("GET", "/admin/lockers/5/access-logs", nil)
	req = handlers.WithURLParam(req, "id", "5")
	w := httptest.NewRecorder()
	h.ListAccessLogs(w, req)

	handlers.AssertErrorResponse(t, w, 404, pkghttp.CodeNotFound)
}

func TestListAccessLogs_StoreError(t *testing.T) {
	logs := &handlers.MockAccessLogReader{
		ListByLockerFunc: func(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error) {
			return nil, errors.New("db down")
		},
	}
	h := handlers.NewAdminHandler(&handlers.MockLockerService{}, logs)

	req := httptest.NewRequest("GET", "/admin/lockers/5/access-logs", nil)
	req = handlers.WithURLParam(req, "id", "5")
	w := httptest.NewRecorder()
	h.ListAccessLogs(w, req)

	handlers.AssertErrorResponse(t, w, 500, pkghttp.CodeInternal)
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface is the administrator view of lockers.
type AdminServiceInterface interface {
	ListAll(ctx context.Context) ([]*models.LockerWithOwner, error)
	ForceRelease(ctx context.Context, lockerID, actorID int64) error
	ListRequests(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error)
}

// AccessLogReader reads recorded access attempts for one locker.
type AccessLogReader interface {
	ListByLocker(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error)
}

// AdminHandler handles admin HTTP requests.
type AdminHandler struct {
	service    AdminServiceInterface
	accessLogs AccessLogReader
}

// NewAdminHandler creates a new AdminHandler. accessLogs may be nil when
// the audit sink cannot be queried.
func NewAdminHandler(service AdminServiceInterface, accessLogs AccessLogReader) *AdminHandler {
	return &AdminHandler{service: service, accessLogs: accessLogs}
}

// AdminLockerResponse is one row of the admin locker listing.
type AdminLockerResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
	ColorHex  *string    `json:"color_hex"`
	UserName  *string    `json:"user_name"`
	UserEmail *string    `json:"user_email"`
}

// LockerRequestResponse is one occupant request.
type LockerRequestResponse struct {
	ID          int64     `json:"id"`
	LockerID    int64     `json:"locker_id"`
	UserID      int64     `json:"user_id"`
	RequestType string    `json:"request_type"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessLogResponse is one recorded access attempt.
type AccessLogResponse struct {
	EventID   string `json:"event_id"`
	LockerID  string `json:"locker_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	SourceIP  string `json:"source_ip,omitempty"`
}

// ListLockers handles GET /admin/lockers
func (h *AdminHandler) ListLockers(w http.ResponseWriter, r *http.Request) {
	lockers, err := h.service.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]AdminLockerResponse, 0, len(lockers))
	for _, l := range lockers {
		resp = append(resp, AdminLockerResponse{
			ID:        l.ID,
			Code:      l.Code,
			Status:    l.Status,
			ExpiresAt: l.ExpiresAt,
			ColorHex:  l.ColorHex,
			UserName:  l.UserName,
			UserEmail: l.UserEmail,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ForceRelease handles DELETE /admin/lockers/{id}/force-release
func (h *AdminHandler) ForceRelease(w http.ResponseWriter, r *http.Request) {
	lockerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || lockerID <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid locker ID")
		return
	}

	var actorID int64
	if claims := auth.GetUserFromContext(r); claims != nil {
		actorID = claims.UserID
	}

	if err := h.service.ForceRelease(r.Context(), lockerID, actorID); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, fmt.Sprintf("Locker %d force-released", lockerID))
}

// ListRequests handles GET /admin/locker-requests
// Accepts ?status= (default pending), ?limit= (1-100, default 50) and ?offset=.
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	q := r.URL.Query()

	if l := q.Get("limit"); l != "" {
		if err := parseIntParam(l, &limit, 1, 100); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
	}
	if o := q.Get("offset"); o != "" {
		if err := parseIntParam(o, &offset, 0, 10000); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid offset parameter")
			return
		}
	}

	requests, err := h.service.ListRequests(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]LockerRequestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, LockerRequestResponse{
			ID:          req.ID,
			LockerID:    req.LockerID,
			UserID:      req.UserID,
			RequestType: req.RequestType,
			Status:      req.Status,
			Notes:       req.Notes,
			CreatedAt:   req.CreatedAt,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// ListAccessLogs handles GET /admin/lockers/{id}/access-logs
// Accepts optional ?limit= (1-200, default 50).
func (h *AdminHandler) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	if h.accessLogs == nil {
		pkghttp.WriteNotFound(w, "Access logs are not queryable with the configured audit sink")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if err := parseIntParam(l, &limit, 1, 200); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
	}

	entries, err := h.accessLogs.ListByLocker(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to retrieve access logs")
		return
	}

	resp := make([]AccessLogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, AccessLogResponse{
			EventID:   e.EventID,
			LockerID:  e.LockerID,
			Timestamp: e.TimestampString(),
			Status:    e.Status,
			Reason:    e.Reason,
			SourceIP:  e.SourceIP,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/services"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
)

// LockerServiceInterface is the occupant-facing locker lifecycle.
type LockerServiceInterface interface {
	Assign(ctx context.Context, in services.AssignInput) (*models.Assignment, error)
	RotateOTP(ctx context.Context, userID int64) (*models.IssuedOTP, error)
	ListAvailable(ctx context.Context) ([]*models.Locker, error)
	GetMyLocker(ctx context.Context, userID int64) (*models.Locker, error)
	CancelByOwner(ctx context.Context, userID int64) error
	RequestExtension(ctx context.Context, userID int64, days int) (*models.LockerRequest, error)
}

// LockerHandler handles /lockers requests.
type LockerHandler struct {
	service LockerServiceInterface
	logger  *slog.Logger
}

func NewLockerHandler(service LockerServiceInterface, logger *slog.Logger) *LockerHandler {
	return &LockerHandler{service: service, logger: logger}
}

// AssignRequest is the body of POST /lockers/assign
type AssignRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	LockerID int64  `json:"locker_id" validate:"required,gt=0"`
	Days     int    `json:"days" validate:"omitempty,gte=1,lte=3650"`
	Color    string `json:"color" validate:"omitempty,max=32"`
}

// UserRequest is the body of requests that only identify the occupant.
type UserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// TimeChangeRequest is the body of POST /lockers/my-locker/request-time-change
type TimeChangeRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Days   int   `json:"days" validate:"omitempty,gte=1,lte=3650"`
}

// AssignResponse carries the only copy of the initial OTP.
type AssignResponse struct {
	Message       string    `json:"message"`
	LockerID      int64     `json:"locker_id"`
	InitialOTP    string    `json:"initial_otp"`
	OTPValidUntil time.Time `json:"otp_valid_until"`
	ExpiresAt     time.Time `json:"expires_at"`
	QRCode        string    `json:"qr_code,omitempty"`
}

// OTPResponse carries a rotated OTP.
type OTPResponse struct {
	OTP        string    `json:"otp"`
	LockerID   int64     `json:"locker_id"`
	ValidUntil time.Time `json:"valid_until"`
	QRCode     string    `json:"qr_code,omitempty"`
}

// LockerSummary is a locker as listed to prospective renters.
type LockerSummary struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// MyLockerResponse is the occupant's view of their locker.
type MyLockerResponse struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
	ColorHex  *string    `json:"color_hex"`
}

// RequestCreatedResponse acknowledges an extension request.
type RequestCreatedResponse struct {
	Message   string `json:"message"`
	RequestID int64  `json:"request_id"`
}

// authorizeUser writes 403 unless the caller may act for userID.
func authorizeUser(w http.ResponseWriter, r *http.Request, userID int64) bool {
	if !auth.CanActFor(auth.GetUserFromContext(r), userID) {
		pkghttp.WriteForbidden(w, "Cannot act on another user's locker")
		return false
	}
	return true
}

func wantsQR(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("qr"))
	return v
}

// qrFor renders code as a QR data URL. Rendering failures drop the image
// but never the code.
func (h *LockerHandler) qrFor(r *http.Request, code string) string {
	if !wantsQR(r) {
		return ""
	}
	qr, err := auth.OTPQRCode(code)
	if err != nil {
		h.logger.Warn("failed to render OTP QR code", slog.Any("error", err))
		return ""
	}
	return qr
}

// Assign handles POST /lockers/assign
func (h *LockerHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !authorizeUser(w, r, req.UserID) {
		return
	}

	a, err := h.service.Assign(r.Context(), services.AssignInput{
		UserID:   req.UserID,
		LockerID: req.LockerID,
		Days:     req.Days,
		Color:    req.Color,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AssignResponse{
		Message:       "Assigned",
		LockerID:      a.LockerID,
		InitialOTP:    a.Code,
		OTPValidUntil: a.OTPValidUntil,
		ExpiresAt:     a.ExpiresAt,
		QRCode:        h.qrFor(r, a.Code),
	})
}

// RefreshOTP handles POST /lockers/my-locker/otp/refresh
func (h *LockerHandler) RefreshOTP(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !authorizeUser(w, r, req.UserID) {
		return
	}

	issued, err := h.service.RotateOTP(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, OTPResponse{
		OTP:        issued.Code,
		LockerID:   issued.LockerID,
		ValidUntil: issued.ValidUntil,
		QRCode:     h.qrFor(r, issued.Code),
	})
}

// ListAvailable handles GET /lockers/available
func (h *LockerHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	lockers, err := h.service.ListAvailable(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]LockerSummary, 0, len(lockers))
	for _, l := range lockers {
		resp = append(resp, LockerSummary{ID: l.ID, Code: l.Code, Status: l.Status})
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// GetMyLocker handles GET /lockers/my-locker?user_id=
func (h *LockerHandler) GetMyLocker(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		pkghttp.WriteBadRequest(w, "user_id is required")
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		pkghttp.WriteBadRequest(w, "user_id must be a positive integer")
		return
	}
	if !authorizeUser(w, r, userID) {
		return
	}

	l, err := h.service.GetMyLocker(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MyLockerResponse{
		ID:        l.ID,
		Code:      l.Code,
		Status:    l.Status,
		ExpiresAt: l.ExpiresAt,
		ColorHex:  l.ColorHex,
	})
}

// Cancel handles POST /lockers/my-locker/request-cancel
func (h *LockerHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !authorizeUser(w, r, req.UserID) {
		return
	}

	if err := h.service.CancelByOwner(r.Context(), req.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Locker released successfully")
}

// RequestTimeChange handles POST /lockers/my-locker/request-time-change
func (h *LockerHandler) RequestTimeChange(w http.ResponseWriter, r *http.Request) {
	var req TimeChangeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !authorizeUser(w, r, req.UserID) {
		return
	}

	created, err := h.service.RequestExtension(r.Context(), req.UserID, req.Days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RequestCreatedResponse{
		Message:   fmt.Sprintf("Request #%d sent to administrator", created.ID),
		RequestID: created.ID,
	})
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/services"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccessServiceInterface decides keypad access attempts.
type AccessServiceInterface interface {
	VerifyAccess(ctx context.Context, attempt services.AccessAttempt) error
	RecordRateLimited(ctx context.Context, attempt services.AccessAttempt)
}

// SecurityHandler serves the keypad-facing endpoints.
type SecurityHandler struct {
	service    AccessServiceInterface
	ipResolver *pkghttp.ClientIPResolver
}

func NewSecurityHandler(service AccessServiceInterface, ipResolver *pkghttp.ClientIPResolver) *SecurityHandler {
	return &SecurityHandler{service: service, ipResolver: ipResolver}
}

// AccessAttemptRequest is the body of an access attempt.
type AccessAttemptRequest struct {
	OTP string `json:"otp"`
}

// AccessGrantedResponse tells the keypad to open the door.
type AccessGrantedResponse struct {
	Message  string `json:"message"`
	DoorOpen bool   `json:"door_open"`
}

// AccessAttempt handles POST /security/lockers/{id}/access-attempt
func (h *SecurityHandler) AccessAttempt(w http.ResponseWriter, r *http.Request) {
	var req AccessAttemptRequest
	// An unreadable body is recorded as a missing OTP.
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		req.OTP = ""
	}

	err := h.service.VerifyAccess(r.Context(), services.AccessAttempt{
		LockerRef: chi.URLParam(r, "id"),
		OTP:       req.OTP,
		SourceIP:  h.ipResolver.ClientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingOTP):
			pkghttp.WriteBadRequest(w, "Missing OTP")
		case errors.Is(err, models.ErrLockerNotFound):
			pkghttp.WriteNotFound(w, "Locker not found")
		case errors.Is(err, models.ErrLockerNotOccupied):
			pkghttp.WriteForbidden(w, "Locker not in use")
		case errors.Is(err, models.ErrOTPExpired):
			pkghttp.WriteForbidden(w, "Code has expired")
		case errors.Is(err, models.ErrInvalidOTP):
			pkghttp.WriteUnauthorized(w, "Incorrect code")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AccessGrantedResponse{Message: "Access granted", DoorOpen: true})
}

// RateLimited answers an access attempt rejected by the rate limiter. The
// attempt is still audited.
func (h *SecurityHandler) RateLimited(w http.ResponseWriter, r *http.Request) {
	h.service.RecordRateLimited(r.Context(), services.AccessAttempt{
		LockerRef: chi.URLParam(r, "id"),
		SourceIP:  h.ipResolver.ClientIP(r),
	})
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

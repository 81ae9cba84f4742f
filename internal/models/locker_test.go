package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocker_IsOccupied(t *testing.T) {
	assert.True(t, (&Locker{Status: LockerStatusOccupied}).IsOccupied())
	assert.False(t, (&Locker{Status: LockerStatusAvailable}).IsOccupied())
}

func TestIsValidRequestStatus(t *testing.T) {
	assert.True(t, IsValidRequestStatus(RequestStatusPending))
	assert.True(t, IsValidRequestStatus(RequestStatusApproved))
	assert.False(t, IsValidRequestStatus("done"))
	assert.False(t, IsValidRequestStatus(""))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleUser))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("superuser"))
}

func TestTokenClaims_IsAdmin(t *testing.T) {
	assert.True(t, (&TokenClaims{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&TokenClaims{Role: RoleUser}).IsAdmin())
}

func TestAccessLogEntry_TimestampString(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	e := AccessLogEntry{Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 500, loc)}

	assert.Equal(t, "2025-03-01T10:00:00.0000005Z", e.TimestampString())
}

func TestLockerErrors_WrapSentinels(t *testing.T) {
	assert.ErrorIs(t, ErrAlreadyHasLocker, ErrConflict)
	assert.ErrorIs(t, ErrLockerUnavailable, ErrConflict)
	assert.ErrorIs(t, ErrNoLocker, ErrNotFound)
	assert.ErrorIs(t, ErrMissingOTP, ErrBadRequest)
	assert.ErrorIs(t, ErrOTPExpired, ErrForbidden)
	assert.ErrorIs(t, ErrLockerNotOccupied, ErrForbidden)
	assert.ErrorIs(t, ErrInvalidOTP, ErrUnauthorized)
}

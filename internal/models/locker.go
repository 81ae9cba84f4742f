package models

import (
	"time"
)

// Locker statuses
const (
	LockerStatusAvailable = "available"
	LockerStatusOccupied  = "occupied"
)

// Locker is one physical locker. While it is available every occupancy
// field is nil; while occupied they are all set.
type Locker struct {
	ID             int64
	Code           string
	Status         string
	CurrentUserID  *int64
	AssignedAt     *time.Time
	ExpiresAt      *time.Time
	CurrentOTPHash *string
	OTPSalt        *string
	OTPValidUntil  *time.Time
	ColorHex       *string
}

func (l *Locker) IsOccupied() bool {
	return l.Status == LockerStatusOccupied
}

// LockerWithOwner is a locker joined with its occupant for the admin listing.
type LockerWithOwner struct {
	Locker
	UserName  *string
	UserEmail *string
}

// Claim describes the occupancy written by a successful assignment.
type Claim struct {
	LockerID      int64
	UserID        int64
	AssignedAt    time.Time
	ExpiresAt     time.Time
	OTPHash       string
	OTPSalt       string
	OTPValidUntil time.Time
	ColorHex      string
}

// OTPRotation replaces the OTP of the locker a user occupies.
type OTPRotation struct {
	UserID        int64
	OTPHash       string
	OTPSalt       string
	OTPValidUntil time.Time
}

// Assignment is returned once to the user who claimed a locker. Code is the
// only copy of the plaintext OTP.
type Assignment struct {
	LockerID      int64
	Code          string
	OTPValidUntil time.Time
	ExpiresAt     time.Time
}

// IssuedOTP is a rotated OTP handed back to its owner.
type IssuedOTP struct {
	LockerID   int64
	Code       string
	ValidUntil time.Time
}

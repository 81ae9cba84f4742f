package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Locker errors. Each wraps the sentinel that decides its HTTP status.
var (
	ErrAlreadyHasLocker  = fmt.Errorf("%w: user already has a locker", ErrConflict)
	ErrLockerUnavailable = fmt.Errorf("%w: locker not available", ErrConflict)
	ErrNoLocker          = fmt.Errorf("%w: no locker", ErrNotFound)
	ErrLockerNotFound    = fmt.Errorf("%w: locker not found", ErrNotFound)

	ErrMissingOTP        = fmt.Errorf("%w: missing OTP", ErrBadRequest)
	ErrLockerNotOccupied = fmt.Errorf("%w: locker not occupied", ErrForbidden)
	ErrOTPExpired        = fmt.Errorf("%w: OTP expired", ErrForbidden)
	ErrInvalidOTP        = fmt.Errorf("%w: invalid OTP", ErrUnauthorized)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
)

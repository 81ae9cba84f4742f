package models

import (
	"time"
)

// Request types
const (
	RequestTypeChangeTime = "change_time"
)

// Request statuses
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// LockerRequest is a pending change submitted by a locker's occupant.
// Nothing in the service resolves it automatically.
type LockerRequest struct {
	ID          int64
	LockerID    int64
	UserID      int64
	RequestType string
	Status      string
	Notes       string
	CreatedAt   time.Time
}

// IsValidRequestStatus reports whether s names a request status.
func IsValidRequestStatus(s string) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

package models

import (
	"time"
)

// Access attempt outcomes recorded to the audit sink
const (
	AccessStatusSuccess = "SUCCESS"
	AccessStatusFailed  = "FAILED"
	AccessStatusExpired = "EXPIRED"
)

// Access attempt reasons
const (
	AccessReasonGranted      = "Access Granted"
	AccessReasonMissingOTP   = "Missing OTP"
	AccessReasonNotFound     = "Locker not found"
	AccessReasonNotOccupied  = "Locker not occupied"
	AccessReasonExpired      = "OTP Expired"
	AccessReasonInvalidOTP   = "Invalid OTP"
	AccessReasonLookupFailed = "Lookup failed"
	AccessReasonRateLimited  = "Rate limited"
)

// AccessLogEntry is one append-only record of an access attempt.
type AccessLogEntry struct {
	EventID   string    `json:"event_id" dynamodbav:"event_id"`
	LockerID  string    `json:"locker_id" dynamodbav:"locker_id"`
	Timestamp time.Time `json:"-" dynamodbav:"-"`
	Status    string    `json:"status" dynamodbav:"status"`
	Reason    string    `json:"reason" dynamodbav:"reason"`
	SourceIP  string    `json:"source_ip,omitempty" dynamodbav:"source_ip,omitempty"`
}

// TimestampString renders Timestamp the way it is stored by every sink.
func (e AccessLogEntry) TimestampString() string {
	return e.Timestamp.UTC().Format(time.RFC3339Nano)
}

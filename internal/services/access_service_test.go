package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accessFixture struct {
	clock   *fakeClock
	store   *memLockerStore
	lockers *LockerService
	access  *AccessService
	sink    *RecordingSink
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := newMemLockerStore(1, 2)
	sink := &RecordingSink{}
	logger, _ := newTestLogger()

	access := NewAccessService(store, sink, time.Second, logger)
	access.now = clock.Now

	return &accessFixture{
		clock:   clock,
		store:   store,
		lockers: newTestLockerService(store, &MockLockerRequestRepository{}, nil, clock),
		access:  access,
		sink:    sink,
	}
}

func (f *accessFixture) verify(lockerID int64, otp string) error {
	return f.access.VerifyAccess(context.Background(), AccessAttempt{
		LockerRef: strconv.FormatInt(lockerID, 10),
		OTP:       otp,
		SourceIP:  "10.0.0.5",
	})
}

func wrongCode(code string) string {
	if code == "123456" {
		return "654321"
	}
	return "123456"
}

func TestAccessService_GrantsValidOTP(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	assert.NoError(t, f.verify(1, a.Code))

	entry := f.sink.Last()
	assert.Equal(t, models.AccessStatusSuccess, entry.Status)
	assert.Equal(t, models.AccessReasonGranted, entry.Reason)
	assert.Equal(t, "1", entry.LockerID)
	assert.Equal(t, "10.0.0.5", entry.SourceIP)
	assert.NotEmpty(t, entry.EventID)

	// Verification never mutates the locker.
	l, _ := f.store.GetByID(context.Background(), 1)
	assert.True(t, l.IsOccupied())
	assert.NoError(t, f.verify(1, a.Code))
}

func TestAccessService_ExpiredAfterWindow(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)

	err = f.verify(1, a.Code)
	assert.ErrorIs(t, err, models.ErrOTPExpired)
	assert.ErrorIs(t, err, models.ErrForbidden)

	entry := f.sink.Last()
	assert.Equal(t, models.AccessStatusExpired, entry.Status)
	assert.Equal(t, models.AccessReasonExpired, entry.Reason)
}

func TestAccessService_ValidAtBoundary(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	f.clock.Advance(15 * time.Minute)
	assert.NoError(t, f.verify(1, a.Code))
}

func TestAccessService_RotationInvalidatesPreviousOTP(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	issued, err := f.lockers.RotateOTP(context.Background(), 7)
	require.NoError(t, err)

	if issued.Code != a.Code {
		err = f.verify(1, a.Code)
		assert.ErrorIs(t, err, models.ErrInvalidOTP)
	}
	assert.NoError(t, f.verify(1, issued.Code))

	f.clock.Advance(16 * time.Second)
	assert.ErrorIs(t, f.verify(1, issued.Code), models.ErrOTPExpired)
}

func TestAccessService_InvalidOTP(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	err = f.verify(1, wrongCode(a.Code))
	assert.ErrorIs(t, err, models.ErrInvalidOTP)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	entry := f.sink.Last()
	assert.Equal(t, models.AccessStatusFailed, entry.Status)
	assert.Equal(t, models.AccessReasonInvalidOTP, entry.Reason)
}

func TestAccessService_ExpiryCheckedBeforeCode(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.ErrorIs(t, f.verify(1, wrongCode(a.Code)), models.ErrOTPExpired)
}

func TestAccessService_FailureOrder(t *testing.T) {
	tests := []struct {
		name       string
		ref        string
		otp        string
		wantErr    error
		wantStatus string
		wantReason string
	}{
		{"missing OTP", "1", "", models.ErrMissingOTP, models.AccessStatusFailed, models.AccessReasonMissingOTP},
		{"missing OTP on unknown locker", "99", "", models.ErrMissingOTP, models.AccessStatusFailed, models.AccessReasonMissingOTP},
		{"unknown locker", "99", "123456", models.ErrLockerNotFound, models.AccessStatusFailed, models.AccessReasonNotFound},
		{"non-numeric locker", "abc", "123456", models.ErrLockerNotFound, models.AccessStatusFailed, models.AccessReasonNotFound},
		{"available locker", "2", "123456", models.ErrLockerNotOccupied, models.AccessStatusFailed, models.AccessReasonNotOccupied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAccessFixture(t)

			err := f.access.VerifyAccess(context.Background(), AccessAttempt{LockerRef: tt.ref, OTP: tt.otp})
			assert.ErrorIs(t, err, tt.wantErr)

			require.Len(t, f.sink.Entries, 1)
			assert.Equal(t, tt.wantStatus, f.sink.Entries[0].Status)
			assert.Equal(t, tt.wantReason, f.sink.Entries[0].Reason)
			assert.Equal(t, tt.ref, f.sink.Entries[0].LockerID)
		})
	}
}

func TestAccessService_ReleasedLockerNotOccupied(t *testing.T) {
	f := newAccessFixture(t)

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)
	require.NoError(t, f.lockers.CancelByOwner(context.Background(), 7))

	assert.ErrorIs(t, f.verify(1, a.Code), models.ErrLockerNotOccupied)
}

func TestAccessService_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	f := newAccessFixture(t)
	f.sink.Err = errors.New("dynamodb unavailable")

	a, err := f.lockers.Assign(context.Background(), AssignInput{UserID: 7, LockerID: 1})
	require.NoError(t, err)

	assert.NoError(t, f.verify(1, a.Code))
	assert.ErrorIs(t, f.verify(1, wrongCode(a.Code)), models.ErrInvalidOTP)
	assert.Len(t, f.sink.Entries, 2)
}

func TestAccessService_AuditOutlivesCancelledRequest(t *testing.T) {
	f := newAccessFixture(t)

	var sawCancelled bool
	sink := &ctxCheckingSink{check: func(ctx context.Context) { sawCancelled = ctx.Err() != nil }}
	f.access.sink = sink

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.access.VerifyAccess(ctx, AccessAttempt{LockerRef: "1", OTP: ""})
	assert.ErrorIs(t, err, models.ErrMissingOTP)
	assert.True(t, sink.called)
	assert.False(t, sawCancelled)
}

func TestAccessService_LookupFailure(t *testing.T) {
	sink := &RecordingSink{}
	logger, _ := newTestLogger()
	repo := &MockLockerRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.Locker, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewAccessService(repo, sink, time.Second, logger)

	err := svc.VerifyAccess(context.Background(), AccessAttempt{LockerRef: "1", OTP: "123456"})
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Equal(t, models.AccessReasonLookupFailed, sink.Last().Reason)
}

type ctxCheckingSink struct {
	check  func(ctx context.Context)
	called bool
}

func (s *ctxCheckingSink) Record(ctx context.Context, entry models.AccessLogEntry) error {
	s.called = true
	s.check(ctx)
	return nil
}

func TestAccessService_RecordRateLimited(t *testing.T) {
	f := newAccessFixture(t)

	f.access.RecordRateLimited(context.Background(), AccessAttempt{LockerRef: "1", SourceIP: "10.0.0.5"})

	require.Len(t, f.sink.Entries, 1)
	entry := f.sink.Last()
	assert.Equal(t, models.AccessStatusFailed, entry.Status)
	assert.Equal(t, models.AccessReasonRateLimited, entry.Reason)
	assert.Equal(t, "1", entry.LockerID)
	assert.Equal(t, "10.0.0.5", entry.SourceIP)
}

func TestAccessService_LongLockerRefIsTruncatedInAudit(t *testing.T) {
	f := newAccessFixture(t)
	ref := strings.Repeat("9", 500)

	err := f.access.VerifyAccess(context.Background(), AccessAttempt{LockerRef: ref, OTP: "123456"})
	assert.ErrorIs(t, err, models.ErrLockerNotFound)

	entry := f.sink.Last()
	assert.Equal(t, models.AccessReasonNotFound, entry.Reason)
	assert.Equal(t, strings.Repeat("9", 64), entry.LockerID)
}

func TestTruncateRef_KeepsWholeRunes(t *testing.T) {
	ref := strings.Repeat("é", 70)

	got := truncateRef(ref)

	assert.Equal(t, strings.Repeat("é", 64), got)
	assert.Equal(t, "42", truncateRef("42"))
}

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/config"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, models.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, models.ErrBadRequest},
		{"not null", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest},
		{"check", &pgconn.PgError{Code: "23514"}, models.ErrBadRequest},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, MapPostgresError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("claim: %w", &pgconn.PgError{Code: "23505", ConstraintName: "lockers_one_per_user"})

	assert.True(t, IsUniqueViolation(err, "lockers_one_per_user"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "users_email_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		err := WithTx(ctx, b, func(pgx.Tx) error { return nil })
		assert.NoError(t, err)
		assert.True(t, b.tx.committed)
		assert.False(t, b.tx.rolledBack)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		want := errors.New("insert failed")
		err := WithTx(ctx, b, func(pgx.Tx) error { return want })
		assert.ErrorIs(t, err, want)
		assert.False(t, b.tx.committed)
		assert.True(t, b.tx.rolledBack)
	})

	t.Run("returns commit error", func(t *testing.T) {
		want := errors.New("commit failed")
		b := &fakeBeginner{tx: &fakeTx{commitErr: want}}
		err := WithTx(ctx, b, func(pgx.Tx) error { return nil })
		assert.ErrorIs(t, err, want)
	})

	t.Run("rolls back and repanics", func(t *testing.T) {
		b := &fakeBeginner{tx: &fakeTx{}}
		assert.Panics(t, func() {
			_ = WithTx(ctx, b, func(pgx.Tx) error { panic("boom") })
		})
		assert.True(t, b.tx.rolledBack)
	})

	t.Run("begin error", func(t *testing.T) {
		want := errors.New("pool closed")
		err := WithTx(ctx, &fakeBeginner{err: want}, func(pgx.Tx) error { return nil })
		assert.ErrorIs(t, err, want)
	})
}

func TestNewPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "db", Port: 5432, User: "locker", Password: "pw", Name: "smart_locker", SSLMode: "disable",
		MaxConns: 8, MinConns: 1, ConnectTimeout: 3 * time.Second,
		ApplicationName: "secure-smart-locker",
	}

	pc, err := newPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 3*time.Second, pc.ConnConfig.ConnectTimeout)
	assert.Equal(t, "secure-smart-locker", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "smart_locker", pc.ConnConfig.Database)
}

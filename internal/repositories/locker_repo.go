package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/database"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockerColumns = `id, code, status, current_user_id, assigned_at, expires_at,
	current_otp_hash, otp_salt, otp_valid_until, color_hex`

// releaseSet clears every occupancy field in one assignment list.
const releaseSet = `status = 'available', current_user_id = NULL, assigned_at = NULL,
	expires_at = NULL, current_otp_hash = NULL, otp_salt = NULL,
	otp_valid_until = NULL, color_hex = NULL`

// oneLockerPerUserIndex enforces at most one occupied locker per user.
const oneLockerPerUserIndex = "lockers_one_per_user"

// LockerRepository owns every read and conditional write on the lockers table.
type LockerRepository struct {
	pool *pgxpool.Pool
}

func NewLockerRepository(db *database.DB) *LockerRepository {
	return &LockerRepository{pool: db.Pool}
}

func scanLockerRow(scanner rowScanner) (*models.Locker, error) {
	var l models.Locker

	err := scanner.Scan(
		&l.ID, &l.Code, &l.Status, &l.CurrentUserID, &l.AssignedAt, &l.ExpiresAt,
		&l.CurrentOTPHash, &l.OTPSalt, &l.OTPValidUntil, &l.ColorHex,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &l, nil
}

func scanLockerRows(rows pgx.Rows) ([]*models.Locker, error) {
	defer rows.Close()

	lockers := make([]*models.Locker, 0)
	for rows.Next() {
		l, err := scanLockerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locker: %w", err)
		}
		lockers = append(lockers, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locker rows: %w", err)
	}

	return lockers, nil
}

func (r *LockerRepository) GetByID(ctx context.Context, id int64) (*models.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE id = $1`

	return scanLockerRow(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID returns the locker the user currently occupies.
func (r *LockerRepository) GetByUserID(ctx context.Context, userID int64) (*models.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE current_user_id = $1`

	return scanLockerRow(r.pool.QueryRow(ctx, query, userID))
}

func (r *LockerRepository) ListAvailable(ctx context.Context) ([]*models.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE status = 'available' ORDER BY code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query available lockers: %w", err)
	}

	return scanLockerRows(rows)
}

// ListWithOwners returns every locker joined with its occupant, ordered by code.
func (r *LockerRepository) ListWithOwners(ctx context.Context) ([]*models.LockerWithOwner, error) {
	query := `
		SELECT l.id, l.code, l.status, l.current_user_id, l.assigned_at, l.expires_at,
		       l.current_otp_hash, l.otp_salt, l.otp_valid_until, l.color_hex,
		       u.name, u.email
		FROM lockers l
		LEFT JOIN users u ON u.id = l.current_user_id
		ORDER BY l.code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lockers: %w", err)
	}
	defer rows.Close()

	lockers := make([]*models.LockerWithOwner, 0)
	for rows.Next() {
		var lw models.LockerWithOwner
		l := &lw.Locker
		if err := rows.Scan(
			&l.ID, &l.Code, &l.Status, &l.CurrentUserID, &l.AssignedAt, &l.ExpiresAt,
			&l.CurrentOTPHash, &l.OTPSalt, &l.OTPValidUntil, &l.ColorHex,
			&lw.UserName, &lw.UserEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan locker: %w", database.MapPostgresError(err))
		}
		lockers = append(lockers, &lw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locker rows: %w", err)
	}

	return lockers, nil
}

// TryClaim occupies the locker only if it is still available and the user
// holds no other locker. It reports false when either condition no longer
// holds, so concurrent claims can never overwrite each other.
func (r *LockerRepository) TryClaim(ctx context.Context, c models.Claim) (bool, error) {
	query := `
		UPDATE lockers
		SET status = 'occupied', current_user_id = $2, assigned_at = $3, expires_at = $4,
		    current_otp_hash = $5, otp_salt = $6, otp_valid_until = $7, color_hex = $8
		WHERE id = $1
		  AND status = 'available'
		  AND NOT EXISTS (SELECT 1 FROM lockers WHERE current_user_id = $2)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		c.LockerID, c.UserID, c.AssignedAt, c.ExpiresAt,
		c.OTPHash, c.OTPSalt, c.OTPValidUntil, c.ColorHex,
	).Scan(&id)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case database.IsUniqueViolation(err, oneLockerPerUserIndex):
		// Lost a race against another claim by the same user.
		return false, nil
	default:
		return false, database.MapPostgresError(err)
	}
}

// RotateOTP replaces the OTP of the locker the user occupies and returns its id.
func (r *LockerRepository) RotateOTP(ctx context.Context, rot models.OTPRotation) (int64, error) {
	query := `
		UPDATE lockers
		SET current_otp_hash = $2, otp_salt = $3, otp_valid_until = $4
		WHERE current_user_id = $1 AND status = 'occupied'
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, rot.UserID, rot.OTPHash, rot.OTPSalt, rot.OTPValidUntil).Scan(&id)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return id, nil
}

// ReleaseByUser frees the locker the user occupies and returns its id.
func (r *LockerRepository) ReleaseByUser(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE lockers SET ` + releaseSet + ` WHERE current_user_id = $1 RETURNING id`

	var id int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&id); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return id, nil
}

// Release frees an occupied locker. An unknown or already available locker
// yields models.ErrNotFound.
func (r *LockerRepository) Release(ctx context.Context, lockerID int64) error {
	query := `UPDATE lockers SET ` + releaseSet + ` WHERE id = $1 AND status = 'occupied'`

	result, err := r.pool.Exec(ctx, query, lockerID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ReleaseExpired frees every locker whose rental ended before now.
func (r *LockerRepository) ReleaseExpired(ctx context.Context, now time.Time) ([]int64, error) {
	query := `UPDATE lockers SET ` + releaseSet + ` WHERE status = 'occupied' AND expires_at < $1 RETURNING id`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to release expired lockers: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan locker id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating released lockers: %w", err)
	}

	return ids, nil
}

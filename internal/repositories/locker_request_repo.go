package repositories

import (
	"context"
	"fmt"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/database"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lockerRequestColumns = `id, locker_id, user_id, request_type, status, notes, created_at`

// LockerRequestRepository stores requests raised by locker occupants.
type LockerRequestRepository struct {
	pool *pgxpool.Pool
}

func NewLockerRequestRepository(db *database.DB) *LockerRequestRepository {
	return &LockerRequestRepository{pool: db.Pool}
}

func scanLockerRequestRow(scanner rowScanner) (*models.LockerRequest, error) {
	var req models.LockerRequest

	err := scanner.Scan(
		&req.ID, &req.LockerID, &req.UserID, &req.RequestType, &req.Status, &req.Notes, &req.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &req, nil
}

// CreateForUser records a request against the locker the user occupies.
// The locker row is share-locked so a concurrent release cannot slip between
// the lookup and the insert. A user without a locker yields models.ErrNotFound.
func (r *LockerRequestRepository) CreateForUser(ctx context.Context, userID int64, requestType, notes string) (*models.LockerRequest, error) {
	var created *models.LockerRequest

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var lockerID int64
		err := tx.QueryRow(ctx,
			`SELECT id FROM lockers WHERE current_user_id = $1 AND status = 'occupied' FOR SHARE`,
			userID,
		).Scan(&lockerID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		query := `
			INSERT INTO locker_requests (locker_id, user_id, request_type, status, notes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + lockerRequestColumns

		created, err = scanLockerRequestRow(tx.QueryRow(ctx, query,
			lockerID, userID, requestType, models.RequestStatusPending, notes,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// ListByStatus returns requests in the given status, newest first.
func (r *LockerRequestRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.LockerRequest, error) {
	query := `
		SELECT ` + lockerRequestColumns + `
		FROM locker_requests
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query locker requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.LockerRequest, 0)
	for rows.Next() {
		req, err := scanLockerRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locker request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locker request rows: %w", err)
	}

	return requests, nil
}

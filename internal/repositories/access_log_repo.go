package repositories

import (
	"context"
	"fmt"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/database"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessLogRepository is the PostgreSQL audit sink for access attempts.
// Rows are only ever inserted.
type AccessLogRepository struct {
	pool *pgxpool.Pool
}

func NewAccessLogRepository(db *database.DB) *AccessLogRepository {
	return &AccessLogRepository{pool: db.Pool}
}

// Record appends one access attempt.
func (r *AccessLogRepository) Record(ctx context.Context, entry models.AccessLogEntry) error {
	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}

	query := `
		INSERT INTO locker_access_logs (event_id, locker_id, timestamp, status, reason, source_ip)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`

	_, err := r.pool.Exec(ctx, query,
		entry.EventID, entry.LockerID, entry.Timestamp, entry.Status, entry.Reason, entry.SourceIP,
	)
	if err != nil {
		return fmt.Errorf("failed to record access attempt: %w", database.MapPostgresError(err))
	}

	return nil
}

// ListByLocker returns the most recent attempts against a locker reference.
func (r *AccessLogRepository) ListByLocker(ctx context.Context, lockerID string, limit int) ([]models.AccessLogEntry, error) {
	query := `
		SELECT event_id::text, locker_id, timestamp, status, reason, COALESCE(source_ip, '')
		FROM locker_access_logs
		WHERE locker_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, lockerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access logs: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AccessLogEntry, 0)
	for rows.Next() {
		var e models.AccessLogEntry
		if err := rows.Scan(&e.EventID, &e.LockerID, &e.Timestamp, &e.Status, &e.Reason, &e.SourceIP); err != nil {
			return nil, fmt.Errorf("failed to scan access log: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access log rows: %w", err)
	}

	return entries, nil
}

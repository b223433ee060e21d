// Package postgres implements repositories.KeyRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

const keyColumns = `key_id, user_id, created_at, expires_at, last_accessed,
	usage_count, status, ip_address, created_by`

// KeyRepository stores access keys in the access_keys table
type KeyRepository struct {
	pool *pgxpool.Pool
}

// NewKeyRepository creates a new PostgreSQL key repository
func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

func scanKey(row pgx.Row) (*models.AccessKey, error) {
	var k models.AccessKey
	var status string
	err := row.Scan(
		&k.KeyID, &k.UserID, &k.CreatedAt, &k.ExpiresAt, &k.LastAccessedAt,
		&k.UsageCount, &status, &k.SourceIP, &k.CreatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	k.Status = models.KeyStatus(status)
	return &k, nil
}

// Insert stores a new key
func (r *KeyRepository) Insert(ctx context.Context, key *models.AccessKey) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO access_keys (key_id, user_id, created_at, expires_at, usage_count, status, ip_address, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, key.KeyID, key.UserID, key.CreatedAt, key.ExpiresAt, key.UsageCount, string(key.Status), key.SourceIP, key.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

// FindByID returns the key with the given id
func (r *KeyRepository) FindByID(ctx context.Context, keyID string) (*models.AccessKey, error) {
	return scanKey(r.pool.QueryRow(ctx,
		"SELECT "+keyColumns+" FROM access_keys WHERE key_id = $1", keyID))
}

// FindByUser returns every key owned by userID, newest first
func (r *KeyRepository) FindByUser(ctx context.Context, userID string) ([]*models.AccessKey, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+keyColumns+" FROM access_keys WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	keys := []*models.AccessKey{}
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete removes a key; ErrNotFound if nothing was deleted
func (r *KeyRepository) Delete(ctx context.Context, keyID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM access_keys WHERE key_id = $1", keyID)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// UpdateStatus sets a key's status and returns the updated row
func (r *KeyRepository) UpdateStatus(ctx context.Context, keyID string, status models.KeyStatus) (*models.AccessKey, error) {
	return scanKey(r.pool.QueryRow(ctx,
		"UPDATE access_keys SET status = $2 WHERE key_id = $1 RETURNING "+keyColumns,
		keyID, string(status)))
}

// UpdateStatusByUser sets the status of every key owned by userID
func (r *KeyRepository) UpdateStatusByUser(ctx context.Context, userID string, status models.KeyStatus) (int64, error) {
	result, err := r.pool.Exec(ctx,
		"UPDATE access_keys SET status = $2 WHERE user_id = $1", userID, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to update user keys: %w", err)
	}
	return result.RowsAffected(), nil
}

// UpdateExpiry replaces a key's expiry and returns the updated row
func (r *KeyRepository) UpdateExpiry(ctx context.Context, keyID string, expiresAt time.Time) (*models.AccessKey, error) {
	return scanKey(r.pool.QueryRow(ctx,
		"UPDATE access_keys SET expires_at = $2 WHERE key_id = $1 RETURNING "+keyColumns,
		keyID, expiresAt))
}

// RecordUsage increments usage_count and stamps last_accessed in one
// statement, only while the key is still valid at at. A missing or no
// longer valid key yields ErrNotFound.
func (r *KeyRepository) RecordUsage(ctx context.Context, keyID string, at time.Time) (*models.AccessKey, error) {
	return scanKey(r.pool.QueryRow(ctx, `
		UPDATE access_keys
		SET usage_count = usage_count + 1, last_accessed = $2
		WHERE key_id = $1 AND status = 'active' AND expires_at > $2
		RETURNING `+keyColumns,
		keyID, at))
}

// Stats counts keys for the admin dashboard
func (r *KeyRepository) Stats(ctx context.Context, now, since time.Time) (*models.KeyStats, error) {
	var s models.KeyStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active' AND expires_at > $1),
			COUNT(*) FILTER (WHERE expires_at <= $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM access_keys
	`, now, since).Scan(&s.TotalKeys, &s.ActiveKeys, &s.ExpiredKeys, &s.RecentKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to count keys: %w", err)
	}
	return &s, nil
}

// Ping checks connectivity
func (r *KeyRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return r.pool.Ping(ctx)
}

var _ repositories.KeyRepository = (*KeyRepository)(nil)

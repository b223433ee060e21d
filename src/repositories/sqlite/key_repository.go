// Package sqlite implements repositories.KeyRepository on SQLite.
// Timestamps are stored as unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories"
)

const keyColumns = `key_id, user_id, created_at, expires_at, last_accessed,
	usage_count, status, ip_address, created_by`

// keyRow maps 1:1 to the access_keys columns
type keyRow struct {
	KeyID        string        `db:"key_id"`
	UserID       string        `db:"user_id"`
	CreatedAt    int64         `db:"created_at"`
	ExpiresAt    int64         `db:"expires_at"`
	LastAccessed sql.NullInt64 `db:"last_accessed"`
	UsageCount   int64         `db:"usage_count"`
	Status       string        `db:"status"`
	IPAddress    string        `db:"ip_address"`
	CreatedBy    string        `db:"created_by"`
}

func (r keyRow) toModel() *models.AccessKey {
	k := &models.AccessKey{
		KeyID:      r.KeyID,
		UserID:     r.UserID,
		CreatedAt:  time.UnixMilli(r.CreatedAt).UTC(),
		ExpiresAt:  time.UnixMilli(r.ExpiresAt).UTC(),
		UsageCount: r.UsageCount,
		Status:     models.KeyStatus(r.Status),
		SourceIP:   r.IPAddress,
		CreatedBy:  r.CreatedBy,
	}
	if r.LastAccessed.Valid {
		t := time.UnixMilli(r.LastAccessed.Int64).UTC()
		k.LastAccessedAt = &t
	}
	return k
}

// KeyRepository stores access keys in a SQLite access_keys table
type KeyRepository struct {
	db *sqlx.DB
}

// NewKeyRepository creates a new SQLite key repository
func NewKeyRepository(db *sqlx.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

func (r *KeyRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.AccessKey, error) {
	var row keyRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) &&
		(se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

// Insert stores a new key
func (r *KeyRepository) Insert(ctx context.Context, key *models.AccessKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_keys (key_id, user_id, created_at, expires_at, usage_count, status, ip_address, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, key.KeyID, key.UserID, key.CreatedAt.UnixMilli(), key.ExpiresAt.UnixMilli(),
		key.UsageCount, string(key.Status), key.SourceIP, key.CreatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

// FindByID returns the key with the given id
func (r *KeyRepository) FindByID(ctx context.Context, keyID string) (*models.AccessKey, error) {
	return r.getOne(ctx, "SELECT "+keyColumns+" FROM access_keys WHERE key_id = ?", keyID)
}

// FindByUser returns every key owned by userID, newest first
func (r *KeyRepository) FindByUser(ctx context.Context, userID string) ([]*models.AccessKey, error) {
	var rows []keyRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+keyColumns+" FROM access_keys WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}

	keys := make([]*models.AccessKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.toModel())
	}
	return keys, nil
}

// Delete removes a key; ErrNotFound if nothing was deleted
func (r *KeyRepository) Delete(ctx context.Context, keyID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM access_keys WHERE key_id = ?", keyID)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// UpdateStatus sets a key's status and returns the updated row
func (r *KeyRepository) UpdateStatus(ctx context.Context, keyID string, status models.KeyStatus) (*models.AccessKey, error) {
	return r.getOne(ctx,
		"UPDATE access_keys SET status = ? WHERE key_id = ? RETURNING "+keyColumns,
		string(status), keyID)
}

// UpdateStatusByUser sets the status of every key owned by userID
func (r *KeyRepository) UpdateStatusByUser(ctx context.Context, userID string, status models.KeyStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE access_keys SET status = ? WHERE user_id = ?", string(status), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update user keys: %w", err)
	}
	return result.RowsAffected()
}

// UpdateExpiry replaces a key's expiry and returns the updated row
func (r *KeyRepository) UpdateExpiry(ctx context.Context, keyID string, expiresAt time.Time) (*models.AccessKey, error) {
	return r.getOne(ctx,
		"UPDATE access_keys SET expires_at = ? WHERE key_id = ? RETURNING "+keyColumns,
		expiresAt.UnixMilli(), keyID)
}

// RecordUsage increments usage_count and stamps last_accessed in one
// statement, only while the key is still valid at at. A missing or no
// longer valid key yields ErrNotFound.
func (r *KeyRepository) RecordUsage(ctx context.Context, keyID string, at time.Time) (*models.AccessKey, error) {
	ms := at.UnixMilli()
	return r.getOne(ctx, `
		UPDATE access_keys
		SET usage_count = usage_count + 1, last_accessed = ?
		WHERE key_id = ? AND status = 'active' AND expires_at > ?
		RETURNING `+keyColumns,
		ms, keyID, ms)
}

// Stats counts keys for the admin dashboard
func (r *KeyRepository) Stats(ctx context.Context, now, since time.Time) (*models.KeyStats, error) {
	var s models.KeyStats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) AS total_keys,
			COALESCE(SUM(CASE WHEN status = 'active' AND expires_at > ? THEN 1 ELSE 0 END), 0) AS active_keys,
			COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0) AS expired_keys,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS recent_keys
		FROM access_keys
	`, now.UnixMilli(), now.UnixMilli(), since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count keys: %w", err)
	}
	return &s, nil
}

// Ping checks connectivity
func (r *KeyRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var _ repositories.KeyRepository = (*KeyRepository)(nil)

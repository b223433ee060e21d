package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
)

var (
	// ErrNotFound indicates no row matched the lookup
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a key_id collision on insert
	ErrDuplicateKey = errors.New("duplicate key id")
)

// KeyRepository defines durable storage for access keys.
// Every method is a single statement; implementations must apply
// RecordUsage atomically so concurrent validations never lose an increment,
// and must only count a key that is active and unexpired at the given time
// (ErrNotFound otherwise).
type KeyRepository interface {
	Insert(ctx context.Context, key *models.AccessKey) error
	FindByID(ctx context.Context, keyID string) (*models.AccessKey, error)
	FindByUser(ctx context.Context, userID string) ([]*models.AccessKey, error)
	Delete(ctx context.Context, keyID string) error
	UpdateStatus(ctx context.Context, keyID string, status models.KeyStatus) (*models.AccessKey, error)
	UpdateStatusByUser(ctx context.Context, userID string, status models.KeyStatus) (int64, error)
	UpdateExpiry(ctx context.Context, keyID string, expiresAt time.Time) (*models.AccessKey, error)
	RecordUsage(ctx context.Context, keyID string, at time.Time) (*models.AccessKey, error)
	Stats(ctx context.Context, now, since time.Time) (*models.KeyStats, error)
	Ping(ctx context.Context) error
}

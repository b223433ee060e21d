package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kuroukai/Kuroukai-free-api/src/logging"
	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories"
)

const (
	// maxUserIDLength bounds the opaque user identifier
	maxUserIDLength = 255

	// insertAttempts is how many fresh key ids are tried on collision
	insertAttempts = 3

	// recentWindow is the look-back for the "recent keys" statistic
	recentWindow = 24 * time.Hour
)

// expiryLayouts are accepted by EditExpiry, most specific first.
// Layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// KeyPolicy bounds key durations
type KeyPolicy struct {
	DefaultHours int
	MaxHours     int
}

// CreateKeyRequest describes a new key. A nil Hours uses the policy default.
type CreateKeyRequest struct {
	UserID    string
	Hours     *int
	SourceIP  string
	CreatedBy string
}

// KeyView is a key annotated with its validity at the time it was read
type KeyView struct {
	Key           *models.AccessKey
	Valid         bool
	TimeRemaining models.TimeRemaining
}

// KeyService implements the key lifecycle on top of a KeyRepository
type KeyService struct {
	repo   repositories.KeyRepository
	policy KeyPolicy
	clock  Clock
	logger zerolog.Logger
	newID  func() (string, error)
}

// NewKeyService creates a new key service
func NewKeyService(repo repositories.KeyRepository, policy KeyPolicy, clock Clock) *KeyService {
	if clock == nil {
		clock = SystemClock()
	}
	return &KeyService{
		repo:   repo,
		policy: policy,
		clock:  clock,
		logger: logging.NewLogger("key_service"),
		newID:  generateKeyID,
	}
}

// generateKeyID returns a random (v4) UUID backed by crypto/rand
func generateKeyID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// now is truncated to what the stores persist
func (ks *KeyService) now() time.Time {
	return ks.clock.Now().UTC().Truncate(time.Millisecond)
}

// storeErr maps repository errors onto service errors, logging the unexpected ones
func (ks *KeyService) storeErr(op, id string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrKeyNotFound
	case errors.Is(err, repositories.ErrDuplicateKey):
		return ErrDuplicateKey
	}
	ks.logger.Error().Err(err).Str("op", op).Str("id", id).Msg("key store failure")
	return fmt.Errorf("%w: %s", ErrStoreFailure, op)
}

func (ks *KeyService) view(k *models.AccessKey, now time.Time) KeyView {
	return KeyView{
		Key:           k,
		Valid:         k.IsValid(now),
		TimeRemaining: models.RemainingUntil(k.ExpiresAt, now),
	}
}

// ResolveHours applies the policy to a requested duration
func (ks *KeyService) ResolveHours(hours *int) (int, error) {
	if hours == nil {
		return ks.policy.DefaultHours, nil
	}
	h := *hours
	if h <= 0 {
		return 0, ErrInvalidDuration
	}
	if ks.policy.MaxHours > 0 && h > ks.policy.MaxHours {
		h = ks.policy.MaxHours
	}
	if h > models.KeyHoursLimit {
		h = models.KeyHoursLimit
	}
	return h, nil
}

// CreateKey issues a new active key for a user
func (ks *KeyService) CreateKey(ctx context.Context, req CreateKeyRequest) (*models.AccessKey, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || len(userID) > maxUserIDLength {
		return nil, ErrInvalidUserID
	}

	hours, err := ks.ResolveHours(req.Hours)
	if err != nil {
		return nil, err
	}

	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = models.CreatedByAPI
	}

	now := ks.now()
	key := &models.AccessKey{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(hours) * time.Hour),
		Status:    models.KeyStatusActive,
		SourceIP:  req.SourceIP,
		CreatedBy: createdBy,
	}

	for attempt := 1; attempt <= insertAttempts; attempt++ {
		key.KeyID, err = ks.newID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key id: %w", err)
		}

		err = ks.repo.Insert(ctx, key)
		if err == nil {
			ks.logger.Info().
				Str("key_id", key.KeyID).
				Str("user_id", userID).
				Int("hours", hours).
				Str("created_by", createdBy).
				Msg("key created")
			return key, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ks.storeErr("insert", key.KeyID, err)
		}
		ks.logger.Warn().Str("key_id", key.KeyID).Int("attempt", attempt).Msg("key id collision, regenerating")
	}

	return nil, ErrDuplicateKey
}

// Validate checks a key and, when valid, records one usage
func (ks *KeyService) Validate(ctx context.Context, keyID string) (*KeyView, error) {
	key, err := ks.repo.FindByID(ctx, keyID)
	if err != nil {
		return nil, ks.storeErr("find", keyID, err)
	}

	now := ks.now()
	if !key.IsValid(now) {
		v := ks.view(key, now)
		return &v, nil
	}

	counted, err := ks.repo.RecordUsage(ctx, keyID, now)
	if err == nil {
		v := ks.view(counted, now)
		return &v, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, ks.storeErr("record_usage", keyID, err)
	}

	// The key was deleted, deactivated or re-dated after it was read.
	// Report the current row without counting the validation.
	key, err = ks.repo.FindByID(ctx, keyID)
	if err != nil {
		return nil, ks.storeErr("find", keyID, err)
	}
	v := ks.view(key, now)
	v.Valid = false
	return &v, nil
}

// GetInfo reads a key without recording usage
func (ks *KeyService) GetInfo(ctx context.Context, keyID string) (*KeyView, error) {
	key, err := ks.repo.FindByID(ctx, keyID)
	if err != nil {
		return nil, ks.storeErr("find", keyID, err)
	}

	v := ks.view(key, ks.now())
	return &v, nil
}

// ListForUser returns the user's keys, newest first
func (ks *KeyService) ListForUser(ctx context.Context, userID string) ([]KeyView, error) {
	keys, err := ks.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, ks.storeErr("find_by_user", userID, err)
	}

	now := ks.now()
	views := make([]KeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, ks.view(k, now))
	}
	return views, nil
}

// SetActive switches a key between active and inactive.
// Activating a blocked key unblocks it.
func (ks *KeyService) SetActive(ctx context.Context, keyID string, active bool) (*models.AccessKey, error) {
	status := models.KeyStatusInactive
	if active {
		status = models.KeyStatusActive
	}

	key, err := ks.repo.UpdateStatus(ctx, keyID, status)
	if err != nil {
		return nil, ks.storeErr("update_status", keyID, err)
	}

	ks.logger.Info().Str("key_id", keyID).Str("status", string(status)).Msg("key status changed")
	return key, nil
}

// ParseExpiry parses an admin-supplied expiry timestamp
func ParseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// EditExpiry replaces a key's expiry. Past timestamps are accepted and
// simply make the key expired.
func (ks *KeyService) EditExpiry(ctx context.Context, keyID, raw string) (*models.AccessKey, error) {
	expiresAt, err := ParseExpiry(raw)
	if err != nil {
		return nil, err
	}

	key, err := ks.repo.UpdateExpiry(ctx, keyID, expiresAt)
	if err != nil {
		return nil, ks.storeErr("update_expiry", keyID, err)
	}

	ks.logger.Info().Str("key_id", keyID).Time("expires_at", expiresAt).Msg("key expiry changed")
	return key, nil
}

// DeleteKey permanently removes a key
func (ks *KeyService) DeleteKey(ctx context.Context, keyID string) error {
	if err := ks.repo.Delete(ctx, keyID); err != nil {
		return ks.storeErr("delete", keyID, err)
	}

	ks.logger.Info().Str("key_id", keyID).Msg("key deleted")
	return nil
}

// BlockUser marks every key the user owns as blocked and returns how many
// were changed. A user without keys is reported as ErrKeyNotFound.
func (ks *KeyService) BlockUser(ctx context.Context, userID string) (int64, error) {
	n, err := ks.repo.UpdateStatusByUser(ctx, userID, models.KeyStatusBlocked)
	if err != nil {
		return 0, ks.storeErr("block_user", userID, err)
	}
	if n == 0 {
		return 0, ErrKeyNotFound
	}

	ks.logger.Warn().Str("user_id", userID).Int64("keys", n).Msg("user blocked")
	return n, nil
}

// Stats summarizes the key table
func (ks *KeyService) Stats(ctx context.Context) (*models.KeyStats, error) {
	now := ks.now()
	stats, err := ks.repo.Stats(ctx, now, now.Add(-recentWindow))
	if err != nil {
		return nil, ks.storeErr("stats", "", err)
	}
	return stats, nil
}

// Ping reports whether the key store is reachable
func (ks *KeyService) Ping(ctx context.Context) error {
	return ks.repo.Ping(ctx)
}

package mock

import (
	"context"
	"time"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories"
)

// KeyRepository is a mock implementation of repositories.KeyRepository
type KeyRepository struct {
	// Function stubs that can be overridden in tests
	InsertFunc             func(ctx context.Context, key *models.AccessKey) error
	FindByIDFunc           func(ctx context.Context, keyID string) (*models.AccessKey, error)
	FindByUserFunc         func(ctx context.Context, userID string) ([]*models.AccessKey, error)
	DeleteFunc             func(ctx context.Context, keyID string) error
	UpdateStatusFunc       func(ctx context.Context, keyID string, status models.KeyStatus) (*models.AccessKey, error)
	UpdateStatusByUserFunc func(ctx context.Context, userID string, status models.KeyStatus) (int64, error)
	UpdateExpiryFunc       func(ctx context.Context, keyID string, expiresAt time.Time) (*models.AccessKey, error)
	RecordUsageFunc        func(ctx context.Context, keyID string, at time.Time) (*models.AccessKey, error)
	StatsFunc              func(ctx context.Context, now, since time.Time) (*models.KeyStats, error)
	PingFunc               func(ctx context.Context) error

	// Call tracking
	Calls map[string][]interface{}
}

// NewKeyRepository creates a new mock key repository
func NewKeyRepository() *KeyRepository {
	return &KeyRepository{
		Calls: make(map[string][]interface{}),
	}
}

func (m *KeyRepository) Insert(ctx context.Context, key *models.AccessKey) error {
	m.Calls["Insert"] = append(m.Calls["Insert"], key)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, key)
	}
	return nil
}

func (m *KeyRepository) FindByID(ctx context.Context, keyID string) (*models.AccessKey, error) {
	m.Calls["FindByID"] = append(m.Calls["FindByID"], keyID)
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, keyID)
	}
	return nil, repositories.ErrNotFound
}

func (m *KeyRepository) FindByUser(ctx context.Context, userID string) ([]*models.AccessKey, error) {
	m.Calls["FindByUser"] = append(m.Calls["FindByUser"], userID)
	if m.FindByUserFunc != nil {
		return m.FindByUserFunc(ctx, userID)
	}
	return []*models.AccessKey{}, nil
}

func (m *KeyRepository) Delete(ctx context.Context, keyID string) error {
	m.Calls["Delete"] = append(m.Calls["Delete"], keyID)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, keyID)
	}
	return nil
}

func (m *KeyRepository) UpdateStatus(ctx context.Context, keyID string, status models.KeyStatus) (*models.AccessKey, error) {
	m.Calls["UpdateStatus"] = append(m.Calls["UpdateStatus"], keyID, status)
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, keyID, status)
	}
	return nil, repositories.ErrNotFound
}

func (m *KeyRepository) UpdateStatusByUser(ctx context.Context, userID string, status models.KeyStatus) (int64, error) {
	m.Calls["UpdateStatusByUser"] = append(m.Calls["UpdateStatusByUser"], userID, status)
	if m.UpdateStatusByUserFunc != nil {
		return m.UpdateStatusByUserFunc(ctx, userID, status)
	}
	return 0, nil
}

func (m *KeyRepository) UpdateExpiry(ctx context.Context, keyID string, expiresAt time.Time) (*models.AccessKey, error) {
	m.Calls["UpdateExpiry"] = append(m.Calls["UpdateExpiry"], keyID, expiresAt)
	if m.UpdateExpiryFunc != nil {
		return m.UpdateExpiryFunc(ctx, keyID, expiresAt)
	}
	return nil, repositories.ErrNotFound
}

func (m *KeyRepository) RecordUsage(ctx context.Context, keyID string, at time.Time) (*models.AccessKey, error) {
	m.Calls["RecordUsage"] = append(m.Calls["RecordUsage"], keyID, at)
	if m.RecordUsageFunc != nil {
		return m.RecordUsageFunc(ctx, keyID, at)
	}
	return nil, repositories.ErrNotFound
}

func (m *KeyRepository) Stats(ctx context.Context, now, since time.Time) (*models.KeyStats, error) {
	m.Calls["Stats"] = append(m.Calls["Stats"], now, since)
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, now, since)
	}
	return &models.KeyStats{}, nil
}

func (m *KeyRepository) Ping(ctx context.Context) error {
	m.Calls["Ping"] = append(m.Calls["Ping"], nil)
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Ensure KeyRepository implements the interface
var _ repositories.KeyRepository = (*KeyRepository)(nil)

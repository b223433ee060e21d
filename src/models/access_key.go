package models

import "time"

// AccessKey is a time-limited credential bound to an external user identifier
type AccessKey struct {
	KeyID          string     `json:"key_id" db:"key_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	LastAccessedAt *time.Time `json:"last_accessed" db:"last_accessed"`
	UsageCount     int64      `json:"usage_count" db:"usage_count"`
	Status         KeyStatus  `json:"status" db:"status"`
	SourceIP       string     `json:"ip_address,omitempty" db:"ip_address"`
	CreatedBy      string     `json:"created_by,omitempty" db:"created_by"`
}

// IsActive returns true if the key's persisted status is active
func (k *AccessKey) IsActive() bool {
	return k.Status == KeyStatusActive
}

// IsExpired reports whether the key's expiry is at or before now
func (k *AccessKey) IsExpired(now time.Time) bool {
	return !k.ExpiresAt.After(now)
}

// IsValid reports whether the key is active and not expired at now.
// Validity is computed, never persisted.
func (k *AccessKey) IsValid(now time.Time) bool {
	return k.IsActive() && !k.IsExpired(now)
}

package models

// KeyStats summarizes the key table for the admin dashboard
type KeyStats struct {
	TotalKeys   int64 `json:"total_keys" db:"total_keys"`
	ActiveKeys  int64 `json:"active_keys" db:"active_keys"`
	ExpiredKeys int64 `json:"expired_keys" db:"expired_keys"`
	RecentKeys  int64 `json:"recent_keys" db:"recent_keys"`
}

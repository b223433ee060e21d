package models

import "time"

// AdminSession is an authenticated admin console session
type AdminSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
}

// ExpiresAt returns when the session stops being valid for the given ttl
func (s *AdminSession) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// IsExpired reports whether the session has outlived ttl at now
func (s *AdminSession) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) >= ttl
}

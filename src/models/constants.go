package models

// KeyStatus represents the persisted state of an access key
type KeyStatus string

const (
	// KeyStatusActive indicates the key may be used while unexpired
	KeyStatusActive KeyStatus = "active"
	// KeyStatusInactive indicates the key was switched off by an admin
	KeyStatusInactive KeyStatus = "inactive"
	// KeyStatusBlocked indicates the key's owner was blocked
	KeyStatusBlocked KeyStatus = "blocked"
)

// IsValid reports whether s is one of the known statuses
func (s KeyStatus) IsValid() bool {
	switch s {
	case KeyStatusActive, KeyStatusInactive, KeyStatusBlocked:
		return true
	}
	return false
}

// KeyHoursLimit is the longest key duration accepted anywhere (100 years).
// Larger values would overflow time.Duration arithmetic.
const KeyHoursLimit = 100 * 365 * 24

// Key origins recorded in created_by
const (
	CreatedByAPI   = "api"
	CreatedByCLI   = "cli"
	CreatedByAdmin = "admin"
)

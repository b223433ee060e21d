package models

import (
	"fmt"
	"time"
)

// TimeRemaining describes how long a key has left before it expires
type TimeRemaining struct {
	Expired   bool   `json:"expired"`
	Remaining int64  `json:"remaining"` // milliseconds
	Hours     int64  `json:"hours"`
	Minutes   int64  `json:"minutes"`
	Formatted string `json:"formatted"`
}

// RemainingUntil computes the time left between now and expiresAt.
// A non-positive difference is reported as expired with zero remaining.
func RemainingUntil(expiresAt, now time.Time) TimeRemaining {
	diff := expiresAt.Sub(now)
	if diff <= 0 {
		return TimeRemaining{
			Expired:   true,
			Formatted: "Expired",
		}
	}

	hours := int64(diff / time.Hour)
	minutes := int64((diff % time.Hour) / time.Minute)

	return TimeRemaining{
		Expired:   false,
		Remaining: diff.Milliseconds(),
		Hours:     hours,
		Minutes:   minutes,
		Formatted: fmt.Sprintf("%dh %dm", hours, minutes),
	}
}

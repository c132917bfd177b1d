package model

import "time"

// WarnRecord is a single warning issued to a user.
type WarnRecord struct {
	Reason    string    `json:"reason" db:"reason"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// WarnDocument maps a user ID to its warnings in issue order.
type WarnDocument map[string][]WarnRecord

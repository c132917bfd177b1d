package model

import "time"

// Giveaway holds a running giveaway, keyed by its announcement message.
// It only lives as long as the process.
type Giveaway struct {
	MessageID string
	ChannelID string
	GuildID   string
	HostID    string
	// Host is the host's identity as written to the action log.
	Host      string
	Prize     string
	EndsAt    time.Time
}

package model

import "time"

// TicketState is the lifecycle state of a support ticket.
type TicketState string

const (
	TicketOpen    TicketState = "open"
	TicketClosing TicketState = "closing"
	TicketDeleted TicketState = "deleted"
)

// Ticket is a registry row describing one support ticket channel.
type Ticket struct {
	ChannelID string
	GuildID   string
	CreatorID string
	Name      string
	State     TicketState
	OpenedAt  time.Time
}

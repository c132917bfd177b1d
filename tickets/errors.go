package tickets

import (
	"errors"
	"fmt"

	"discord-modbot/model"
	"discord-modbot/utils"
)

var (
	// ErrNotAuthorized is returned when the actor is neither the creator nor staff.
	ErrNotAuthorized = errors.New("only the ticket creator or staff can do this")
	// ErrAlreadyOpen is returned when the creator already holds a ticket.
	ErrAlreadyOpen = errors.New("ticket already open")
	// ErrInvalidName is returned when a rename leaves nothing after sanitizing.
	ErrInvalidName = fmt.Errorf("%w: ticket name is empty after cleanup, use letters and digits", utils.ErrInvalidArgument)
	// ErrNotTicket is returned for channels that are not tickets.
	ErrNotTicket = errors.New("this channel is not a ticket")
)

// StateError reports a transition attempted from the wrong state.
type StateError struct {
	ChannelID string
	State     model.TicketState
	Want      model.TicketState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("ticket %s is %s, expected %s", e.ChannelID, e.State, e.Want)
}

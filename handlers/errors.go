package handlers

import (
	"errors"
	"fmt"

	"discord-modbot/giveaway"
	"discord-modbot/massdm"
	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/tickets"
	"discord-modbot/utils"

	"go.uber.org/zap"
)

const msgBotForbidden = "❌ I don't have permission to do that. Please check my roles."

// rejection is an expected failure with a message meant for the invoker.
type rejection struct {
	message string
}

func (r *rejection) Error() string {
	return r.message
}

func (r *rejection) Unwrap() error {
	return utils.ErrInvalidArgument
}

func rejectf(format string, args ...any) error {
	return &rejection{message: fmt.Sprintf(format, args...)}
}

// describeCommandError returns the reply for a failed command and whether the failure
// is unexpected and belongs in the action log.
func describeCommandError(err error) (string, bool) {
	var rej *rejection
	var stateErr *tickets.StateError
	switch {
	case errors.As(err, &rej):
		return rej.message, false
	case errors.Is(err, utils.ErrAuthorizationDenied):
		return msgBotForbidden, false
	case errors.Is(err, tickets.ErrNotTicket):
		return "❌ This command must be used in a ticket channel.", false
	case errors.Is(err, tickets.ErrNotAuthorized):
		return "❌ You are not allowed to do that with this ticket.", false
	case errors.Is(err, tickets.ErrInvalidName):
		return "❌ Invalid ticket name after cleanup. Please use alphanumeric characters.", false
	case errors.As(err, &stateErr):
		return "❌ This ticket is already being closed.", false
	case errors.Is(err, giveaway.ErrNotFound):
		return "❌ No running giveaway with that message ID.", false
	case errors.Is(err, massdm.ErrUnknownSession), errors.Is(err, massdm.ErrNotInvoker), errors.Is(err, massdm.ErrAlreadyClaimed):
		return "❌ " + capitalize(err.Error()) + ".", false
	case errors.Is(err, utils.ErrNotFound):
		return "❌ Target not found.", false
	case errors.Is(err, utils.ErrInvalidArgument):
		return "❌ Invalid argument(s). Please check the expected argument type.", false
	default:
		return "Unexpected error: " + err.Error(), true
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// reportCommandError answers the invoker and, for unexpected failures, records a
// command_error action.
func reportCommandError(c *commandContext, err error) {
	message, unexpected := describeCommandError(err)
	c.reply(message)
	if !unexpected {
		metrics.CommandsHandled.WithLabelValues(c.cmd.Name, "rejected").Inc()
		return
	}

	metrics.CommandsHandled.WithLabelValues(c.cmd.Name, "error").Inc()
	c.b.Logger.Error("Command failed",
		zap.String("command", c.cmd.Name),
		zap.String("user", c.m.Author.ID),
		zap.String("guild", c.m.GuildID),
		zap.Error(err))
	c.b.Recorder.Record(moderation.Action{
		Kind:      model.ActionCommandError,
		Moderator: c.b.BotIdentity(),
		Target:    c.actor(),
		Details:   fmt.Sprintf("Command %s failed: %v", c.cmd.Name, err),
	})
	mirrorLog(c.b, utils.Error, "Commands", c.cmd.Name, utils.Truncate(err.Error(), 1000))
}

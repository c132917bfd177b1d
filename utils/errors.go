package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrAuthorizationDenied means the platform refused an action for lack of bot privilege.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrInvalidArgument covers malformed input rejected before any mutation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means the target of an action does not exist.
	ErrNotFound = errors.New("not found")
)

// classifiedError keeps the platform error reachable through errors.As.
type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *classifiedError) Is(target error) bool {
	return target == e.kind
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// Classify maps discordgo REST failures onto the error taxonomy. Errors that are
// neither authorization nor not-found failures are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuthorizationDenied) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return &classifiedError{kind: ErrAuthorizationDenied, err: err}
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownBan,
			discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
			return &classifiedError{kind: ErrNotFound, err: err}
		}
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return &classifiedError{kind: ErrAuthorizationDenied, err: err}
		case http.StatusNotFound:
			return &classifiedError{kind: ErrNotFound, err: err}
		}
	}
	return err
}

// IsAuthorizationDenied reports whether err is, or classifies as, an authorization failure.
func IsAuthorizationDenied(err error) bool {
	return errors.Is(Classify(err), ErrAuthorizationDenied)
}

// IsNotFound reports whether err is, or classifies as, a missing target.
func IsNotFound(err error) bool {
	return errors.Is(Classify(err), ErrNotFound)
}

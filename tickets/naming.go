package tickets

import (
	"regexp"
	"strings"
)

// NamePrefix starts the name of every ticket channel.
const NamePrefix = "ticket-"

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9-]`)
	creatorName      = regexp.MustCompile(`^ticket-(\d+)$`)
)

// ChannelName is the name of a freshly opened ticket.
func ChannelName(creatorID string) string {
	return NamePrefix + creatorID
}

// Sanitize lowercases, turns spaces into dashes and strips everything outside [a-z0-9-].
func Sanitize(name string) (string, error) {
	cleaned := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	cleaned = invalidNameChars.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

// IsTicketName reports whether a channel name follows the ticket convention.
func IsTicketName(name string) bool {
	return strings.HasPrefix(name, NamePrefix)
}

// CreatorFromName extracts the creator ID from a ticket-<digits> name.
func CreatorFromName(name string) (string, bool) {
	m := creatorName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

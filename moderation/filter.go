package moderation

import "strings"

// Violation names the content rule a message broke.
type Violation string

const (
	ViolationNone    Violation = ""
	ViolationBadWord Violation = "bad_word"
	ViolationInvite  Violation = "invite"
)

const invitePattern = "discord.gg/"

// Filter checks message content against the bad-word list and the invite rule.
type Filter struct {
	badWords     []string
	blockInvites bool
}

func NewFilter(badWords []string, blockInvites bool) *Filter {
	words := make([]string, 0, len(badWords))
	for _, w := range badWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			words = append(words, w)
		}
	}
	return &Filter{badWords: words, blockInvites: blockInvites}
}

// Check returns every rule the content breaks, bad words first. canManageMessages
// exempts the author from the invite rule.
func (f *Filter) Check(content string, canManageMessages bool) []Violation {
	lower := strings.ToLower(content)
	var violations []Violation
	for _, w := range f.badWords {
		if strings.Contains(lower, w) {
			violations = append(violations, ViolationBadWord)
			break
		}
	}
	if f.blockInvites && !canManageMessages && strings.Contains(lower, invitePattern) {
		violations = append(violations, ViolationInvite)
	}
	return violations
}

// Notice is the in-channel message shown to the author, with %s for their mention.
func (v Violation) Notice() string {
	switch v {
	case ViolationBadWord:
		return "🚫 %s, your message contains a forbidden word."
	case ViolationInvite:
		return "🚫 %s, invite links are not allowed."
	default:
		return ""
	}
}

// Reason is the action log reason for a removal.
func (v Violation) Reason() string {
	switch v {
	case ViolationBadWord:
		return "Forbidden word"
	case ViolationInvite:
		return "Forbidden invite link"
	default:
		return ""
	}
}

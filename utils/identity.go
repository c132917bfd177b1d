package utils

import (
	"regexp"

	"github.com/bwmarrin/discordgo"
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)
var snowflakePattern = regexp.MustCompile(`^\d{15,21}$`)

// UserIdentity renders a user the way the action log stores identities.
func UserIdentity(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	return u.String() + " (" + u.ID + ")"
}

// ParseUserID accepts a mention (<@id> or <@!id>) or a bare snowflake.
func ParseUserID(arg string) (string, bool) {
	if m := mentionPattern.FindStringSubmatch(arg); m != nil {
		return m[1], true
	}
	if snowflakePattern.MatchString(arg) {
		return arg, true
	}
	return "", false
}

// StringPtr returns nil for the empty string, so optional log fields serialize as null.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

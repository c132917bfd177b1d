package utils

import "github.com/bwmarrin/discordgo"

// Permission levels
const (
	AdminPermission     = "admin"
	StaffPermission     = "staff"
	ModeratorPermission = "moderator"
	UserPermission      = "user"
)

// GuildPermissions computes a member's guild-wide permission bits from the guild's
// roles. The owner and administrators get every permission.
func GuildPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}

	var perms int64
	for _, role := range guild.Roles {
		// The @everyone role shares the guild's ID.
		if role.ID == guild.ID {
			perms |= role.Permissions
			break
		}
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID {
				perms |= role.Permissions
				break
			}
		}
	}

	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// HasPermission checks a permission bit; administrators hold all of them.
func HasPermission(perms, flag int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&flag == flag
}

// IsPrivilegedStaff reports whether the bits grant administrative or channel-management
// capability.
func IsPrivilegedStaff(perms int64) bool {
	return HasPermission(perms, discordgo.PermissionAdministrator) || HasPermission(perms, discordgo.PermissionManageChannels)
}

// PermissionLevel returns the highest permission level the bits grant.
func PermissionLevel(perms int64) string {
	switch {
	case perms&discordgo.PermissionAdministrator != 0:
		return AdminPermission
	case perms&discordgo.PermissionManageChannels != 0:
		return StaffPermission
	case perms&discordgo.PermissionManageMessages != 0:
		return ModeratorPermission
	default:
		return UserPermission
	}
}

// PrivilegedStaff returns the non-bot members of a guild holding staff capability.
func PrivilegedStaff(guild *discordgo.Guild) []*discordgo.Member {
	if guild == nil {
		return nil
	}
	var staff []*discordgo.Member
	for _, member := range guild.Members {
		if member.User == nil || member.User.Bot {
			continue
		}
		if IsPrivilegedStaff(GuildPermissions(guild, member)) {
			staff = append(staff, member)
		}
	}
	return staff
}

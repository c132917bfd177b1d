package utils

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "1",
		OwnerID: "100",
		Roles: []*discordgo.Role{
			{ID: "1", Permissions: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages},
			{ID: "10", Permissions: discordgo.PermissionAdministrator},
			{ID: "20", Permissions: discordgo.PermissionManageChannels},
			{ID: "30", Permissions: discordgo.PermissionManageMessages},
		},
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "100"}},
			{User: &discordgo.User{ID: "101"}, Roles: []string{"10"}},
			{User: &discordgo.User{ID: "102"}, Roles: []string{"20"}},
			{User: &discordgo.User{ID: "103"}, Roles: []string{"30"}},
			{User: &discordgo.User{ID: "104"}},
			{User: &discordgo.User{ID: "105", Bot: true}, Roles: []string{"10"}},
		},
	}
}

func TestGuildPermissionLevels(t *testing.T) {
	t.Parallel()

	guild := testGuild()
	want := map[string]string{
		"100": AdminPermission,
		"101": AdminPermission,
		"102": StaffPermission,
		"103": ModeratorPermission,
		"104": UserPermission,
	}
	for _, member := range guild.Members[:5] {
		perms := GuildPermissions(guild, member)
		assert.Equal(t, want[member.User.ID], PermissionLevel(perms), member.User.ID)
	}

	everyone := GuildPermissions(guild, guild.Members[4])
	assert.True(t, HasPermission(everyone, discordgo.PermissionSendMessages))
	assert.False(t, HasPermission(everyone, discordgo.PermissionManageMessages))
}

func TestPrivilegedStaff(t *testing.T) {
	t.Parallel()

	var ids []string
	for _, m := range PrivilegedStaff(testGuild()) {
		ids = append(ids, m.User.ID)
	}
	assert.Equal(t, []string{"100", "101", "102"}, ids)
	assert.Nil(t, PrivilegedStaff(nil))
}

func TestParseUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "<@123456789012345678>", want: "123456789012345678", ok: true},
		{in: "<@!123456789012345678>", want: "123456789012345678", ok: true},
		{in: "123456789012345678", want: "123456789012345678", ok: true},
		{in: "someone", ok: false},
		{in: "<@&123456789012345678>", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseUserID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

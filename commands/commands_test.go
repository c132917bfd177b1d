package commands

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		ok      bool
		cmd     string
		args    []string
	}{
		{name: "plain", content: "!ping", ok: true, cmd: "ping"},
		{name: "args", content: "!warn <@123> being  rude", ok: true, cmd: "warn", args: []string{"<@123>", "being", "rude"}},
		{name: "upper case", content: "!HELP", ok: true, cmd: "help"},
		{name: "newline after name", content: "!say\nhello", ok: true, cmd: "say", args: []string{"hello"}},
		{name: "no prefix", content: "ping", ok: false},
		{name: "prefix only", content: "!", ok: false},
		{name: "space after prefix", content: "! ping", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			inv, ok := Parse("!", tt.content)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.cmd, inv.Name)
			assert.Equal(t, tt.args, inv.Args)
		})
	}
}

func TestInvocationRest(t *testing.T) {
	t.Parallel()

	inv, ok := Parse("!", "!tempmute <@1> 10m  spamming   links")
	require.True(t, ok)
	assert.Equal(t, "<@1> 10m  spamming   links", inv.Rest(0))
	assert.Equal(t, "spamming   links", inv.Rest(2))
	assert.Equal(t, "", inv.Rest(4))
	assert.Equal(t, "10m", inv.Arg(1))
	assert.Equal(t, "", inv.Arg(9))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Definitions())

	poll, ok := r.Lookup("poll")
	require.True(t, ok)
	assert.Equal(t, "sondage", poll.Name)

	say, ok := r.Lookup("SAY")
	require.True(t, ok)
	assert.Equal(t, int64(discordgo.PermissionManageMessages), say.Permission)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	tempmute, _ := r.Lookup("tempmute")
	assert.Equal(t, "!tempmute <member> <duration> [reason]", tempmute.Usage("!"))

	ping, _ := r.Lookup("ping")
	assert.Equal(t, "!ping", ping.Usage("!"))

	names := map[string]bool{}
	for _, c := range r.Commands() {
		assert.False(t, names[c.Name], "duplicate %s", c.Name)
		names[c.Name] = true
	}
}

func TestHelpEmbed(t *testing.T) {
	t.Parallel()

	embed := NewRegistry(Definitions()).HelpEmbed("?")
	assert.Contains(t, embed.Description, "`?`")
	require.Len(t, embed.Fields, 3)
	for _, f := range embed.Fields {
		assert.LessOrEqual(t, len([]rune(f.Value)), 1024)
	}
}

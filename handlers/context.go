package handlers

import (
	"strings"

	"discord-modbot/bot"
	"discord-modbot/commands"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// commandContext carries one prefix command invocation through its handler.
type commandContext struct {
	s     *discordgo.Session
	b     *bot.Bot
	m     *discordgo.Message
	cmd   *commands.Command
	inv   commands.Invocation
	guild *discordgo.Guild
	// perms are the invoker's guild-wide permission bits.
	perms int64
}

type commandHandler func(c *commandContext) error

func (c *commandContext) reply(content string) *discordgo.Message {
	return utils.SendChannelMessage(c.s, c.m.ChannelID, content)
}

func (c *commandContext) replyEmbed(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	msg, err := c.s.ChannelMessageSendEmbed(c.m.ChannelID, embed)
	if err != nil {
		return nil, utils.Classify(err)
	}
	return msg, nil
}

// deleteInvocation removes the message that triggered the command.
func (c *commandContext) deleteInvocation() {
	if err := c.s.ChannelMessageDelete(c.m.ChannelID, c.m.ID); err != nil {
		c.b.Logger.Warn("Failed to delete command message",
			zap.String("command", c.cmd.Name),
			zap.String("user", c.m.Author.ID),
			zap.Error(err))
	}
}

// actor is the invoker's identity for the action log.
func (c *commandContext) actor() string {
	return utils.UserIdentity(c.m.Author)
}

func (c *commandContext) record(a moderation.Action) {
	if a.Moderator == "" {
		a.Moderator = c.actor()
	}
	c.b.Recorder.Record(a)
}

// isStaff reports whether the invoker holds privileged staff capability.
func (c *commandContext) isStaff() bool {
	return utils.IsPrivilegedStaff(c.perms)
}

func (c *commandContext) channel() (*discordgo.Channel, error) {
	ch, err := c.s.State.Channel(c.m.ChannelID)
	if err == nil {
		return ch, nil
	}
	ch, err = c.s.Channel(c.m.ChannelID)
	if err != nil {
		return nil, utils.Classify(err)
	}
	return ch, nil
}

// member resolves a command argument to a guild member: a mention, a raw ID, or a
// user name, global name or nickname of a cached member.
func (c *commandContext) member(arg string) (*discordgo.Member, error) {
	if id, ok := utils.ParseUserID(arg); ok {
		if m, err := c.s.State.Member(c.m.GuildID, id); err == nil {
			return withGuild(m, c.m.GuildID), nil
		}
		m, err := c.s.GuildMember(c.m.GuildID, id)
		if err != nil {
			if utils.IsNotFound(err) {
				return nil, invalidMember(arg)
			}
			return nil, utils.Classify(err)
		}
		return withGuild(m, c.m.GuildID), nil
	}

	if c.guild != nil {
		for _, m := range c.guild.Members {
			if matchesMemberName(m, arg) {
				return withGuild(m, c.m.GuildID), nil
			}
		}
	}
	return nil, invalidMember(arg)
}

// withGuild returns m with its guild set. Members cached in State are shared, so the
// field is set on a copy.
func withGuild(m *discordgo.Member, guildID string) *discordgo.Member {
	if m.GuildID != "" {
		return m
	}
	cp := *m
	cp.GuildID = guildID
	return &cp
}

func matchesMemberName(m *discordgo.Member, name string) bool {
	if m.User == nil {
		return false
	}
	for _, candidate := range []string{m.User.Username, m.User.String(), m.User.GlobalName, m.Nick} {
		if candidate != "" && strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

func invalidMember(arg string) error {
	return rejectf("❌ Invalid member `%s`. Check the identifier.", arg)
}

// memberTarget is the action log identity of a member.
func memberTarget(m *discordgo.Member) string {
	return utils.UserIdentity(m.User)
}

func orNone(reason string) string {
	if reason == "" {
		return "None"
	}
	return reason
}

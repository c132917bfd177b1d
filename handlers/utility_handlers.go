package handlers

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"discord-modbot/massdm"
	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	feedbackWorkers = 4
	dateLayout      = "02/01/2006 15:04"
)

var eightBallResponses = []string{
	"Yes, absolutely.", "It is certain.", "Without a doubt.", "Yes, definitely.",
	"You can count on it.", "As far as I know, yes.", "The outlook is good.",
	"Yes.", "Signs point to yes.", "Ask again later.",
	"I can't tell you right now.", "I don't have a crystal ball for that.",
	"Concentrate and ask again.", "Don't count on it.", "My answer is no.",
	"My sources say no.", "The outlook is not so good.", "Very doubtful.",
}

func handleSend(c *commandContext) error {
	defer c.deleteInvocation()

	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	message := c.inv.Rest(1)
	if err := utils.SendPrivateMessage(c.s, member.User.ID, message); err != nil {
		metrics.DirectMessages.WithLabelValues("failed").Inc()
		if utils.IsAuthorizationDenied(err) {
			return rejectf("❌ Cannot send a direct message to **%s**. Their privacy settings may block DMs from the bot.", member.DisplayName())
		}
		return err
	}
	metrics.DirectMessages.WithLabelValues("sent").Inc()
	c.reply(fmt.Sprintf("✅ Message sent to **%s**.", member.DisplayName()))
	c.record(moderation.Action{Kind: model.ActionSendDM, Target: memberTarget(member), Details: "Message: " + message})
	return nil
}

func handleSendAll(c *commandContext) error {
	message := c.inv.Rest(0)
	sess := c.b.MassDM.Create(c.m.GuildID, c.m.ChannelID, c.m.Author.ID, message)

	prompt, err := c.s.ChannelMessageSendComplex(c.m.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "⚠️ Mass message confirmation",
			Description: fmt.Sprintf("Are you sure you want to send the following message to **every member** of the server?\n\n```\n%s\n```\n\n**This cannot be undone!**", message),
			Color:       utils.ColorWarning,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Confirm", Style: discordgo.SuccessButton, CustomID: massdm.ConfirmPrefix + sess.ID},
				discordgo.Button{Label: "Cancel", Style: discordgo.DangerButton, CustomID: massdm.CancelPrefix + sess.ID},
			}},
		},
	})
	if err != nil {
		return utils.Classify(err)
	}
	c.b.MassDM.SetPrompt(sess.ID, prompt.ID)
	return nil
}

func handleGiveaway(c *commandContext) error {
	if strings.EqualFold(c.inv.Arg(0), "cancel") {
		g, err := c.b.Giveaways.Cancel(c.inv.Arg(1), c.m.Author)
		if err != nil {
			return err
		}
		c.reply(fmt.Sprintf("🛑 Giveaway for **%s** cancelled.", g.Prize))
		return nil
	}

	durationText := c.inv.Arg(0)
	d, err := utils.ParseDuration(durationText)
	if err != nil {
		return rejectf("❌ Invalid duration format. Use: `10s`, `5m`, `1h`, `2d`")
	}
	host := c.m.Member
	if host == nil {
		host = &discordgo.Member{User: c.m.Author}
	}
	if host.User == nil {
		host.User = c.m.Author
	}
	_, err = c.b.Giveaways.Start(c.m.GuildID, c.m.ChannelID, host, d, durationText, c.inv.Rest(1))
	return err
}

func handlePoll(c *commandContext) error {
	question := c.inv.Rest(0)
	msg, err := c.replyEmbed(&discordgo.MessageEmbed{
		Title:       "📊 Poll",
		Description: question,
		Color:       utils.ColorNeutral,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Poll created by " + displayName(c.m)},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	for _, emoji := range []string{"👍", "👎"} {
		if err := c.s.MessageReactionAdd(c.m.ChannelID, msg.ID, emoji); err != nil {
			c.b.Logger.Warn("Failed to add poll reaction", zap.String("emoji", emoji), zap.Error(err))
		}
	}
	c.deleteInvocation()
	return nil
}

func handleSay(c *commandContext) error {
	if err := c.s.ChannelMessageDelete(c.m.ChannelID, c.m.ID); err != nil {
		return utils.Classify(err)
	}
	if _, err := c.s.ChannelMessageSend(c.m.ChannelID, c.inv.Rest(0)); err != nil {
		return utils.Classify(err)
	}
	return nil
}

func handleFeedback(c *commandContext) error {
	message := c.inv.Rest(0)
	embed := &discordgo.MessageEmbed{
		Title:       "📝 New feedback",
		Description: message,
		Color:       utils.ColorInfo,
		Author:      &discordgo.MessageEmbedAuthor{Name: c.m.Author.String(), IconURL: c.m.Author.AvatarURL("")},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	staff := c.b.StaffIDs(c.m.GuildID)
	sent, failed := utils.FanOutPrivate(c.s, staff, feedbackWorkers, func(string) *discordgo.MessageSend {
		return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	}, func(userID string, err error) {
		c.b.Logger.Debug("Feedback DM failed", zap.String("user", userID), zap.Error(err))
	})

	c.reply(fmt.Sprintf("✅ Feedback sent to **%d** staff member(s). **%d** failure(s).", sent, failed))
	c.record(moderation.Action{Kind: model.ActionFeedback, Details: message})
	return nil
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.DisplayName()
}

func handleUserInfo(c *commandContext) error {
	var member *discordgo.Member
	if c.inv.Arg(0) != "" {
		var err error
		if member, err = c.member(c.inv.Rest(0)); err != nil {
			return err
		}
	} else {
		var err error
		if member, err = c.member(c.m.Author.ID); err != nil {
			return err
		}
	}

	var roles []string
	for _, roleID := range member.Roles {
		if roleID != c.m.GuildID {
			roles = append(roles, "<@&"+roleID+">")
		}
	}
	rolesText := "No roles"
	if len(roles) > 0 {
		rolesText = strings.Join(roles, ", ")
	}

	created := "unknown"
	if t, err := discordgo.SnowflakeTimestamp(member.User.ID); err == nil {
		created = t.UTC().Format(dateLayout)
	}
	joined := "unknown"
	if !member.JoinedAt.IsZero() {
		joined = member.JoinedAt.UTC().Format(dateLayout)
	}

	_, err := c.replyEmbed(&discordgo.MessageEmbed{
		Title:     "Information for " + member.DisplayName(),
		Color:     utils.ColorInfo,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL("256")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 ID", Value: member.User.ID},
			{Name: "🗓️ Joined the server", Value: joined, Inline: true},
			{Name: "📅 Account created", Value: created, Inline: true},
			{Name: "🛡️ Staff level", Value: utils.PermissionLevel(utils.GuildPermissions(c.guild, member)), Inline: true},
			{Name: "🎭 Roles", Value: utils.Truncate(rolesText, 1024)},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Requested by " + displayName(c.m), IconURL: c.m.Author.AvatarURL("")},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return err
}

func handleServerInfo(c *commandContext) error {
	g := c.guild
	if g == nil {
		var err error
		if g, err = c.s.GuildWithCounts(c.m.GuildID); err != nil {
			return utils.Classify(err)
		}
	}

	var text, voice int
	for _, ch := range g.Channels {
		switch ch.Type {
		case discordgo.ChannelTypeGuildText:
			text++
		case discordgo.ChannelTypeGuildVoice:
			voice++
		}
	}
	created := "unknown"
	if t, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		created = t.UTC().Format(dateLayout)
	}
	memberCount := g.MemberCount
	if memberCount == 0 {
		memberCount = g.ApproximateMemberCount
	}
	roles := len(g.Roles) - 1
	if roles < 0 {
		roles = 0
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Server information for **%s**", g.Name),
		Color: utils.ColorGiveaway,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🆔 Server ID", Value: g.ID, Inline: true},
			{Name: "👑 Owner", Value: "<@" + g.OwnerID + ">", Inline: true},
			{Name: "🗓️ Created", Value: created, Inline: true},
			{Name: "👥 Members", Value: fmt.Sprintf("%d", memberCount), Inline: true},
			{Name: "💬 Text channels", Value: fmt.Sprintf("%d", text), Inline: true},
			{Name: "🔊 Voice channels", Value: fmt.Sprintf("%d", voice), Inline: true},
			{Name: "🔗 Boost level", Value: fmt.Sprintf("Level %d (%d boosts)", g.PremiumTier, g.PremiumSubscriptionCount), Inline: true},
			{Name: "🎭 Roles", Value: fmt.Sprintf("%d", roles), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("256")}
	}
	_, err := c.replyEmbed(embed)
	return err
}

func handlePing(c *commandContext) error {
	c.reply(fmt.Sprintf("🏓 Pong! Latency: **%dms**", c.s.HeartbeatLatency().Milliseconds()))
	return nil
}

func handleEightBall(c *commandContext) error {
	response := eightBallResponses[rand.IntN(len(eightBallResponses))]
	_, err := c.replyEmbed(&discordgo.MessageEmbed{
		Title:       "🎱 Magic 8 Ball",
		Description: fmt.Sprintf("**Question:** %s\n**Answer:** %s", c.inv.Rest(0), response),
		Color:       0x9b59b6,
	})
	return err
}

func handleHelp(c *commandContext) error {
	_, err := c.replyEmbed(c.b.Commands.HelpEmbed(c.b.GetConfig().Prefix))
	return err
}

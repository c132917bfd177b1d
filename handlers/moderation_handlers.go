package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	clearPageSize      = 100
	clearNoticeTTL     = 5 * time.Second
	bulkDeleteMaxAge   = 14 * 24 * time.Hour
	banListPageSize    = 1000
	maxSlowmodeSeconds = 21600
)

func handleKick(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)
	if err := c.s.GuildMemberDeleteWithReason(c.m.GuildID, member.User.ID, reason); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("👢 **%s** has been kicked. Reason: %s", member.User.String(), orNone(reason)))
	c.record(moderation.Action{Kind: model.ActionKick, Target: memberTarget(member), Reason: reason})
	return nil
}

func handleBan(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)
	if err := c.s.GuildBanCreateWithReason(c.m.GuildID, member.User.ID, reason, 0); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("🔨 **%s** has been banned. Reason: %s", member.User.String(), orNone(reason)))
	c.record(moderation.Action{Kind: model.ActionBan, Target: memberTarget(member), Reason: reason})
	return nil
}

// guildBans pages through the whole ban list.
func guildBans(s *discordgo.Session, guildID string) ([]*discordgo.GuildBan, error) {
	var bans []*discordgo.GuildBan
	after := ""
	for {
		page, err := s.GuildBans(guildID, banListPageSize, "", after)
		if err != nil {
			return nil, utils.Classify(err)
		}
		bans = append(bans, page...)
		if len(page) < banListPageSize {
			return bans, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// findBan matches a ban by user ID, name#discriminator or plain user name,
// ignoring case.
func findBan(bans []*discordgo.GuildBan, identifier string) *discordgo.GuildBan {
	identifier = strings.TrimSpace(identifier)
	for _, ban := range bans {
		u := ban.User
		if u == nil {
			continue
		}
		if u.ID == identifier ||
			strings.EqualFold(u.Username+"#"+u.Discriminator, identifier) ||
			strings.EqualFold(u.String(), identifier) {
			return ban
		}
	}
	return nil
}

func handleUnban(c *commandContext) error {
	identifier := c.inv.Rest(0)
	bans, err := guildBans(c.s, c.m.GuildID)
	if err != nil {
		return err
	}
	ban := findBan(bans, identifier)
	if ban == nil {
		return rejectf("User `%s` not found in the ban list.", identifier)
	}
	if err := c.s.GuildBanDelete(c.m.GuildID, ban.User.ID); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("✅ **%s** has been unbanned.", ban.User.String()))
	c.record(moderation.Action{Kind: model.ActionUnban, Target: utils.UserIdentity(ban.User)})
	return nil
}

func handleClear(c *commandContext) error {
	amount, err := strconv.Atoi(c.inv.Arg(0))
	if err != nil || amount <= 0 {
		return rejectf("Invalid number of messages.")
	}

	// 1. Collect the requested messages plus the command itself
	messages, err := recentMessages(c.s, c.m.ChannelID, amount+1)
	if err != nil {
		return err
	}

	// 2. Bulk delete what the platform allows, one by one for the rest
	recent, old := splitByAge(messages, time.Now())
	deleted := 0
	for _, batch := range chunk(recent, clearPageSize) {
		if len(batch) == 1 {
			if err := c.s.ChannelMessageDelete(c.m.ChannelID, batch[0]); err != nil {
				return utils.Classify(err)
			}
		} else if err := c.s.ChannelMessagesBulkDelete(c.m.ChannelID, batch); err != nil {
			return utils.Classify(err)
		}
		deleted += len(batch)
	}
	for _, id := range old {
		if err := c.s.ChannelMessageDelete(c.m.ChannelID, id); err != nil {
			return utils.Classify(err)
		}
		deleted++
	}

	// 3. Confirm and log, not counting the command message
	count := deleted - 1
	if count < 0 {
		count = 0
	}
	if err := utils.SendTransientMessage(c.s, c.m.ChannelID, fmt.Sprintf("✅ **%d** messages deleted.", count), clearNoticeTTL); err != nil {
		c.b.Logger.Warn("Failed to send clear confirmation", zap.Error(err))
	}
	channelName := c.m.ChannelID
	if ch, err := c.channel(); err == nil {
		channelName = ch.Name
	}
	c.record(moderation.Action{
		Kind:    model.ActionClear,
		Details: fmt.Sprintf("%d messages deleted in %s", count, channelName),
	})
	return nil
}

// recentMessages returns up to limit messages of a channel, newest first.
func recentMessages(s *discordgo.Session, channelID string, limit int) ([]*discordgo.Message, error) {
	var messages []*discordgo.Message
	before := ""
	for len(messages) < limit {
		pageSize := min(limit-len(messages), clearPageSize)
		page, err := s.ChannelMessages(channelID, pageSize, before, "", "")
		if err != nil {
			return nil, utils.Classify(err)
		}
		messages = append(messages, page...)
		if len(page) < pageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	return messages, nil
}

// splitByAge separates messages young enough for a bulk delete from older ones.
func splitByAge(messages []*discordgo.Message, now time.Time) (recent, old []string) {
	for _, m := range messages {
		created, err := discordgo.SnowflakeTimestamp(m.ID)
		if err == nil && now.Sub(created) >= bulkDeleteMaxAge {
			old = append(old, m.ID)
			continue
		}
		recent = append(recent, m.ID)
	}
	return recent, old
}

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		batches = append(batches, ids[:n])
		ids = ids[n:]
	}
	return batches
}

func handleWarn(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)
	if reason == "" {
		reason = "No reason provided"
	}

	result, err := c.b.Moderation.Warn(c.m.GuildID, c.actor(), member.User, reason)
	if err != nil {
		return err
	}
	c.reply(fmt.Sprintf("⚠️ **%s** has been warned (**%d/%d**). Reason: **%s**", member.User.String(), result.Count, result.Threshold, reason))

	switch {
	case result.AutoBanned:
		c.reply(fmt.Sprintf("🚫 **%s** has been automatically banned after **%d** warnings.", member.User.String(), result.Threshold))
	case result.BanErr != nil && utils.IsAuthorizationDenied(result.BanErr):
		c.reply(fmt.Sprintf("❌ Could not ban %s automatically (missing permissions).", member.User.String()))
	case result.BanErr != nil:
		c.reply("Error during the automatic ban: " + result.BanErr.Error())
	}
	return nil
}

func handleUnwarn(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	if err := c.b.Moderation.ResetWarnings(c.actor(), member.User); err != nil {
		return err
	}
	c.reply(fmt.Sprintf("✅ All warnings for **%s** have been removed.", member.User.String()))
	return nil
}

func handleMute(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)
	if _, err := c.b.Muter.Mute(c.m.GuildID, member.User.ID); err != nil {
		return err
	}
	c.reply(fmt.Sprintf("🔇 **%s** has been muted. Reason: %s", member.Mention(), orNone(reason)))
	c.record(moderation.Action{Kind: model.ActionMute, Target: memberTarget(member), Reason: reason})
	return nil
}

func handleUnmute(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	if _, err := c.b.Muter.Unmute(c.m.GuildID, member.User.ID); err != nil {
		return err
	}
	c.reply(fmt.Sprintf("🔊 **%s** is no longer muted.", member.Mention()))
	c.record(moderation.Action{Kind: model.ActionUnmute, Target: memberTarget(member)})
	return nil
}

func handleTempMute(c *commandContext) error {
	member, err := c.member(c.inv.Arg(0))
	if err != nil {
		return err
	}
	durationText := c.inv.Arg(1)
	d, err := utils.ParseDuration(durationText)
	if err != nil {
		return rejectf("❌ Invalid duration format. Use: `10s`, `5m`, `1h`, `2d`")
	}
	reason := c.inv.Rest(2)

	if _, err := c.b.Muter.TempMute(c.m.GuildID, c.m.ChannelID, member.User, d); err != nil {
		return err
	}
	c.reply(fmt.Sprintf("⏳ **%s** has been muted for **%s**.", member.Mention(), durationText))
	c.record(moderation.Action{Kind: model.ActionTempMute, Target: memberTarget(member), Reason: reason, Duration: durationText})
	return nil
}

func parseIDArg(arg string) (string, error) {
	id, ok := utils.ParseUserID(arg)
	if !ok {
		return "", rejectf("❌ `%s` is not a valid user ID.", arg)
	}
	return id, nil
}

func handleBanID(c *commandContext) error {
	userID, err := parseIDArg(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)

	user, err := c.s.User(userID)
	if err != nil {
		if utils.IsNotFound(err) {
			return rejectf("❌ User with ID `%s` not found.", userID)
		}
		return utils.Classify(err)
	}
	if err := c.s.GuildBanCreateWithReason(c.m.GuildID, userID, reason, 0); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("🔨 User **`%s`** (ID: `%s`) has been banned.", user.String(), userID))
	c.record(moderation.Action{Kind: model.ActionBanID, Target: utils.UserIdentity(user), Reason: reason})
	return nil
}

func handleKickID(c *commandContext) error {
	userID, err := parseIDArg(c.inv.Arg(0))
	if err != nil {
		return err
	}
	reason := c.inv.Rest(1)

	member, err := c.s.GuildMember(c.m.GuildID, userID)
	if err != nil {
		if utils.IsNotFound(err) {
			return rejectf("❌ User with ID `%s` not found on this server.", userID)
		}
		return utils.Classify(err)
	}
	if err := c.s.GuildMemberDeleteWithReason(c.m.GuildID, userID, reason); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("👢 **`%s`** (ID: `%s`) has been kicked.", member.DisplayName(), userID))
	c.record(moderation.Action{Kind: model.ActionKickID, Target: memberTarget(member), Reason: reason})
	return nil
}

func handleUnbanID(c *commandContext) error {
	userID, err := parseIDArg(c.inv.Arg(0))
	if err != nil {
		return err
	}
	bans, err := guildBans(c.s, c.m.GuildID)
	if err != nil {
		return err
	}
	ban := findBan(bans, userID)
	if ban == nil {
		return rejectf("❌ User with ID `%s` not found in the ban list.", userID)
	}
	if err := c.s.GuildBanDelete(c.m.GuildID, userID); err != nil {
		return utils.Classify(err)
	}
	c.reply(fmt.Sprintf("✅ **`%s#%s`** (ID: `%s`) has been unbanned.", ban.User.Username, ban.User.Discriminator, userID))
	c.record(moderation.Action{Kind: model.ActionUnbanID, Target: utils.UserIdentity(ban.User)})
	return nil
}

// everyoneOverwrite returns the current @everyone overwrite of a channel.
func everyoneOverwrite(ch *discordgo.Channel, guildID string) (allow, deny int64) {
	for _, o := range ch.PermissionOverwrites {
		if o.ID == guildID && o.Type == discordgo.PermissionOverwriteTypeRole {
			return o.Allow, o.Deny
		}
	}
	return 0, 0
}

// lockBits denies or clears SendMessages while keeping the rest of an overwrite.
func lockBits(allow, deny int64, lock bool) (int64, int64) {
	allow &^= discordgo.PermissionSendMessages
	if lock {
		deny |= discordgo.PermissionSendMessages
	} else {
		deny &^= discordgo.PermissionSendMessages
	}
	return allow, deny
}

func setChannelLock(c *commandContext, lock bool) (*discordgo.Channel, error) {
	ch, err := c.channel()
	if err != nil {
		return nil, err
	}
	allow, deny := everyoneOverwrite(ch, c.m.GuildID)
	allow, deny = lockBits(allow, deny, lock)
	if err := c.s.ChannelPermissionSet(ch.ID, c.m.GuildID, discordgo.PermissionOverwriteTypeRole, allow, deny); err != nil {
		return nil, utils.Classify(err)
	}
	return ch, nil
}

func handleLock(c *commandContext) error {
	ch, err := setChannelLock(c, true)
	if err != nil {
		return err
	}
	c.reply("🔒 Channel **locked**. `@everyone` can no longer send messages here.")
	c.record(moderation.Action{Kind: model.ActionChannelLock, Target: channelTarget(ch), Details: fmt.Sprintf("Channel %s locked", ch.Name)})
	return nil
}

func handleUnlock(c *commandContext) error {
	ch, err := setChannelLock(c, false)
	if err != nil {
		return err
	}
	c.reply("🔓 Channel **unlocked**. `@everyone` can send messages here again.")
	c.record(moderation.Action{Kind: model.ActionChannelUnlock, Target: channelTarget(ch), Details: fmt.Sprintf("Channel %s unlocked", ch.Name)})
	return nil
}

func channelTarget(ch *discordgo.Channel) string {
	return fmt.Sprintf("#%s (%s)", ch.Name, ch.ID)
}

func handleSlowmode(c *commandContext) error {
	seconds, err := strconv.Atoi(c.inv.Arg(0))
	if err != nil || seconds < 0 || seconds > maxSlowmodeSeconds {
		return rejectf("❌ The slowmode must be between 0 and %d seconds (6 hours).", maxSlowmodeSeconds)
	}
	ch, err := c.s.ChannelEdit(c.m.ChannelID, &discordgo.ChannelEdit{RateLimitPerUser: &seconds})
	if err != nil {
		return utils.Classify(err)
	}

	if seconds == 0 {
		c.reply("✅ Slowmode **disabled** for this channel.")
		c.record(moderation.Action{Kind: model.ActionSlowmodeOff, Target: channelTarget(ch)})
		return nil
	}
	c.reply(fmt.Sprintf("✅ Slowmode set to **%d seconds** for this channel.", seconds))
	c.record(moderation.Action{Kind: model.ActionSlowmodeOn, Target: channelTarget(ch), Duration: fmt.Sprintf("%ds", seconds)})
	return nil
}

func handleRaid(c *commandContext) error {
	switch strings.ToLower(c.inv.Arg(0)) {
	case "on":
		c.b.RaidGuard.SetEnabled(true)
		c.reply("🛡️ Anti-raid mode **enabled**. New accounts and rapid spammers will be banned.")
		c.record(moderation.Action{Kind: model.ActionAntiRaid, Details: "Enabled"})
	case "off":
		c.b.RaidGuard.SetEnabled(false)
		c.reply("🏳️ Anti-raid mode **disabled**.")
		c.record(moderation.Action{Kind: model.ActionAntiRaid, Details: "Disabled"})
	default:
		return rejectf("❌ Invalid action. Use `%sraid on` or `%sraid off`.", c.b.GetConfig().Prefix, c.b.GetConfig().Prefix)
	}
	return nil
}

package handlers

import (
	"fmt"
	"time"

	"discord-modbot/antiraid"
	"discord-modbot/bot"
	"discord-modbot/commands"
	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const filterNoticeTTL = 5 * time.Second

type raidEnforcer interface {
	Enforce(m *discordgo.Message, reason antiraid.Reason) error
}

// messageRouter runs a guild message through the content filters, the anti-raid
// guard and the command dispatcher, in that order.
type messageRouter struct {
	platform    utils.MessageSender
	filter      func() *moderation.Filter
	guard       *antiraid.Guard
	enforcer    raidEnforcer
	recorder    moderation.ActionRecorder
	botIdentity func() string
	logger      *zap.Logger
	mirror      func(level utils.LogLevel, module, operation, extra string)

	prefix   func() string
	commands *commands.Registry
	run      func(m *discordgo.Message, cmd *commands.Command, inv commands.Invocation, perms int64)
}

func newMessageRouter(b *bot.Bot, handlers map[string]commandHandler) *messageRouter {
	return &messageRouter{
		platform:    b.Session,
		filter:      b.Filter,
		guard:       b.RaidGuard,
		enforcer:    b.RaidBans,
		recorder:    b.Recorder,
		botIdentity: b.BotIdentity,
		logger:      b.Logger.Named("router"),
		mirror: func(level utils.LogLevel, module, operation, extra string) {
			mirrorLog(b, level, module, operation, extra)
		},
		prefix:   func() string { return b.GetConfig().Prefix },
		commands: b.Commands,
		run: func(m *discordgo.Message, cmd *commands.Command, inv commands.Invocation, perms int64) {
			guild, _ := b.Session.State.Guild(m.GuildID)
			c := &commandContext{s: b.Session, b: b, m: m, cmd: cmd, inv: inv, guild: guild, perms: perms}
			dispatch(c, handlers[cmd.Name])
		},
	}
}

type permissionResolver interface {
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// resolvePermissions computes the author's permission bits from the cached guild.
// When the guild or member is not cached it asks the session, which falls back to REST.
func resolvePermissions(s permissionResolver, guild *discordgo.Guild, member *discordgo.Member, userID, channelID string) int64 {
	if guild != nil && member != nil {
		return utils.GuildPermissions(guild, member)
	}
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		zap.L().Debug("Failed to resolve member permissions",
			zap.String("user", userID),
			zap.String("channel", channelID),
			zap.Error(err))
		return 0
	}
	return perms
}

func handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate, r *messageRouter) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	guild, _ := s.State.Guild(m.GuildID)
	member := m.Member
	if member != nil && member.User == nil {
		member.User = m.Author
	}
	r.route(m.Message, resolvePermissions(s, guild, member, m.Author.ID, m.ChannelID))
}

func (r *messageRouter) route(m *discordgo.Message, perms int64) {
	// 1. Content filters
	r.applyFilters(m, perms)

	// 2. Anti-raid guard
	if r.guard.Enabled() && r.applyRaidGuard(m) {
		return
	}

	// 3. Commands
	inv, ok := commands.Parse(r.prefix(), m.Content)
	if !ok {
		return
	}
	cmd, ok := r.commands.Lookup(inv.Name)
	if !ok {
		return
	}
	r.run(m, cmd, inv, perms)
}

// applyFilters removes a message breaking a content rule. It never stops processing.
func (r *messageRouter) applyFilters(m *discordgo.Message, perms int64) {
	violations := r.filter().Check(m.Content, utils.HasPermission(perms, discordgo.PermissionManageMessages))
	for _, v := range violations {
		if err := r.platform.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			r.logger.Warn("Failed to delete filtered message",
				zap.String("violation", string(v)),
				zap.String("channel", m.ChannelID),
				zap.String("user", m.Author.ID),
				zap.Error(err))
			continue
		}
		metrics.FilteredMessages.WithLabelValues(string(v)).Inc()
		if err := utils.SendTransientMessage(r.platform, m.ChannelID, fmt.Sprintf(v.Notice(), m.Author.Mention()), filterNoticeTTL); err != nil {
			r.logger.Warn("Failed to send filter notice", zap.String("channel", m.ChannelID), zap.Error(err))
		}
		r.recorder.Record(moderation.Action{
			Kind:      model.ActionAutoDelete,
			Moderator: r.botIdentity(),
			Target:    utils.UserIdentity(m.Author),
			Reason:    v.Reason(),
			Details:   m.Content,
		})
		// The message is gone; later rules have nothing left to remove.
		return
	}
}

// applyRaidGuard reports whether the message was handled as part of a raid.
func (r *messageRouter) applyRaidGuard(m *discordgo.Message) bool {
	obs, err := antiraid.ObservationFromMessage(m)
	if err != nil {
		r.logger.Warn("Cannot evaluate message for raids", zap.String("message", m.ID), zap.Error(err))
		return false
	}
	reason := r.guard.Check(obs)
	if reason == antiraid.ReasonNone {
		return false
	}
	if err := r.enforcer.Enforce(m, reason); err != nil {
		r.logger.Warn("Anti-raid enforcement failed",
			zap.String("user", m.Author.ID),
			zap.String("reason", string(reason)),
			zap.Error(err))
		r.mirror(utils.Warn, "AntiRaid", "Enforce", fmt.Sprintf("User %s (%s): %v", m.Author.ID, reason, err))
		return false
	}
	return true
}

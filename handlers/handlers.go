package handlers

import (
	"fmt"

	"discord-modbot/bot"
	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func Register(b *bot.Bot) {
	addHandlers(b, commandHandlers())
}

func commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"kick":     handleKick,
		"ban":      handleBan,
		"unban":    handleUnban,
		"clear":    handleClear,
		"warn":     handleWarn,
		"unwarn":   handleUnwarn,
		"mute":     handleMute,
		"unmute":   handleUnmute,
		"tempmute": handleTempMute,
		"banid":    handleBanID,
		"kickid":   handleKickID,
		"unbanid":  handleUnbanID,
		"lock":     handleLock,
		"unlock":   handleUnlock,
		"slowmode": handleSlowmode,
		"raid":     handleRaid,

		"ticketpanel": handleTicketPanel,
		"ticket":      handleTicket,
		"rename":      handleRename,

		"send":       handleSend,
		"sendall":    handleSendAll,
		"giveaway":   handleGiveaway,
		"sondage":    handlePoll,
		"say":        handleSay,
		"feedback":   handleFeedback,
		"userinfo":   handleUserInfo,
		"serverinfo": handleServerInfo,
		"ping":       handlePing,
		"8ball":      handleEightBall,
		"sysinfo":    handleSystemInfo,
		"help":       handleHelp,
	}
}

func addHandlers(b *bot.Bot, handlers map[string]commandHandler) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Logger.Info("Logged in", zap.String("user", r.User.String()), zap.String("id", r.User.ID), zap.Int("guilds", len(r.Guilds)))
		mirrorLog(b, utils.Info, "System", "Startup", "Bot has started successfully.")
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		adopted := b.Tickets.Adopt(g.Channels)
		b.Logger.Info("Guild available",
			zap.String("guild", g.ID),
			zap.String("name", g.Name),
			zap.Int("adoptedTickets", adopted))
		if err := s.RequestGuildMembers(g.ID, "", 0, "", false); err != nil {
			b.Logger.Warn("Failed to request guild members", zap.String("guild", g.ID), zap.Error(err))
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		if b.Tickets.Forget(c.ID) {
			b.Logger.Info("Ticket channel removed", zap.String("channel", c.ID))
		}
	})
	router := newMessageRouter(b, handlers)
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		handleMessageCreate(s, m, router)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
}

// mirrorLog copies an event to the configured log channel. Delivery failures are only logged.
func mirrorLog(b model.Bot, level utils.LogLevel, module, operation, extra string) {
	send := utils.LogInfo
	switch level {
	case utils.Warn:
		send = utils.LogWarn
	case utils.Error:
		send = utils.LogError
	}
	if err := send(b.GetSession(), b.GetConfig().LogChannelID, module, operation, extra); err != nil {
		b.GetLogger().Warn("Failed to mirror log", zap.String("operation", operation), zap.Error(err))
	}
}

// dispatch checks the invoker's permission and the argument count, then runs the
// handler. A panic is reported like any unexpected error.
func dispatch(c *commandContext, handler commandHandler) {
	if handler == nil {
		return
	}
	prefix := c.b.GetConfig().Prefix

	if c.cmd.Permission != 0 && !utils.HasPermission(c.perms, c.cmd.Permission) {
		metrics.CommandsHandled.WithLabelValues(c.cmd.Name, "denied").Inc()
		c.b.Logger.Debug("Command denied",
			zap.String("command", c.cmd.Name),
			zap.String("user", c.m.Author.ID),
			zap.String("level", utils.PermissionLevel(c.perms)))
		c.reply(fmt.Sprintf("🚫 You don't have the permissions required for this command: `%s`.", permissionName(c.cmd.Permission)))
		return
	}
	if len(c.inv.Args) < c.cmd.MinArgs {
		metrics.CommandsHandled.WithLabelValues(c.cmd.Name, "usage").Inc()
		c.reply(fmt.Sprintf("❌ Missing argument(s). Usage: `%s`", c.cmd.Usage(prefix)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.b.Logger.Error("Command panicked", zap.String("command", c.cmd.Name), zap.Any("panic", r), zap.Stack("stack"))
			reportCommandError(c, fmt.Errorf("panic: %v", r))
		}
	}()

	c.b.Logger.Debug("Running command",
		zap.String("command", c.cmd.Name),
		zap.String("user", c.m.Author.ID),
		zap.String("guild", c.m.GuildID))
	if err := handler(c); err != nil {
		reportCommandError(c, err)
		return
	}
	metrics.CommandsHandled.WithLabelValues(c.cmd.Name, "ok").Inc()
}

func permissionName(flag int64) string {
	switch flag {
	case discordgo.PermissionAdministrator:
		return "Administrator"
	case discordgo.PermissionManageMessages:
		return "Manage Messages"
	case discordgo.PermissionManageChannels:
		return "Manage Channels"
	default:
		return fmt.Sprintf("0x%x", flag)
	}
}

package antiraid

import (
	"fmt"
	"time"

	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform is the part of *discordgo.Session used to enforce a verdict.
type Platform interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// Enforcer deletes the offending message, warns the channel and bans the author.
type Enforcer struct {
	platform    Platform
	recorder    moderation.ActionRecorder
	botIdentity func() string
	noticeTTL   time.Duration
	logger      *zap.Logger
}

func NewEnforcer(platform Platform, recorder moderation.ActionRecorder, botIdentity func() string, logger *zap.Logger) *Enforcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enforcer{
		platform:    platform,
		recorder:    recorder,
		botIdentity: botIdentity,
		noticeTTL:   5 * time.Second,
		logger:      logger,
	}
}

func notice(reason Reason) string {
	if reason == ReasonAccountTooNew {
		return "%s: account too new. Banned for safety."
	}
	return "%s: suspicious behavior detected. Message deleted."
}

func logReason(reason Reason) string {
	if reason == ReasonAccountTooNew {
		return "Account too new"
	}
	return "Rapid spam"
}

// Enforce applies a verdict to a message. A message that is already gone is not a
// failure. Otherwise it stops at the first platform failure and returns it; the caller
// keeps processing the message in that case.
func (e *Enforcer) Enforce(m *discordgo.Message, reason Reason) error {
	metrics.RaidVerdicts.WithLabelValues(string(reason)).Inc()

	// 1. Remove the message; a content filter may already have done so
	if err := e.platform.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		if !utils.IsNotFound(err) {
			return fmt.Errorf("failed to delete raid message %s: %w", m.ID, utils.Classify(err))
		}
		e.logger.Debug("Raid message already removed", zap.String("messageID", m.ID))
	}

	// 2. Tell the channel
	if err := utils.SendTransientMessage(e.platform, m.ChannelID, fmt.Sprintf(notice(reason), m.Author.Mention()), e.noticeTTL); err != nil {
		return fmt.Errorf("failed to send raid notice: %w", utils.Classify(err))
	}

	// 3. Ban the author
	if err := e.platform.GuildBanCreateWithReason(m.GuildID, m.Author.ID, "Raid detected: "+string(reason), 0); err != nil {
		return fmt.Errorf("failed to ban raider %s: %w", m.Author.ID, utils.Classify(err))
	}

	e.recorder.Record(moderation.Action{
		Kind:      model.ActionAntiRaidBan,
		Moderator: e.botIdentity(),
		Target:    utils.UserIdentity(m.Author),
		Reason:    logReason(reason),
	})
	e.logger.Info("Raid ban issued",
		zap.String("guildID", m.GuildID),
		zap.String("userID", m.Author.ID),
		zap.String("reason", string(reason)))
	return nil
}

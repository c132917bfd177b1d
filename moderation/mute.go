package moderation

import (
	"fmt"
	"time"

	"discord-modbot/model"
	"discord-modbot/timers"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// MuteDeny is the set of permissions a mute overwrite denies.
const MuteDeny = discordgo.PermissionSendMessages | discordgo.PermissionVoiceSpeak | discordgo.PermissionAddReactions

// MutePlatform is the part of *discordgo.Session used to apply and lift mutes.
type MutePlatform interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Muter applies server-wide mutes as member overwrites on every guild channel.
type Muter struct {
	platform    MutePlatform
	timers      *timers.Manager
	recorder    ActionRecorder
	botIdentity func() string
	logger      *zap.Logger
}

func NewMuter(platform MutePlatform, timerManager *timers.Manager, recorder ActionRecorder, botIdentity func() string, logger *zap.Logger) *Muter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Muter{
		platform:    platform,
		timers:      timerManager,
		recorder:    recorder,
		botIdentity: botIdentity,
		logger:      logger,
	}
}

// MuteKey identifies the temp-mute timer of a member.
func MuteKey(guildID, userID string) string {
	return "mute:" + guildID + ":" + userID
}

// Mute denies speaking on every channel of the guild. Channels that refuse the
// overwrite are skipped; it fails only when no channel could be updated.
func (m *Muter) Mute(guildID, userID string) (int, error) {
	return m.forEachChannel(guildID, userID, "mute", func(channelID string) error {
		return m.platform.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, 0, MuteDeny)
	})
}

// Unmute removes the mute overwrites and cancels a pending temp-mute expiry.
func (m *Muter) Unmute(guildID, userID string) (int, error) {
	m.timers.Cancel(MuteKey(guildID, userID))
	return m.forEachChannel(guildID, userID, "unmute", func(channelID string) error {
		return m.platform.ChannelPermissionDelete(channelID, userID)
	})
}

// TempMute mutes the member and schedules the unmute. On expiry the member is unmuted
// only if still in the guild, and notifyChannelID is told about it.
func (m *Muter) TempMute(guildID, notifyChannelID string, target *discordgo.User, d time.Duration) (int, error) {
	applied, err := m.Mute(guildID, target.ID)
	if err != nil {
		return applied, err
	}
	m.timers.Schedule(MuteKey(guildID, target.ID), d, func() {
		m.expire(guildID, notifyChannelID, target)
	})
	return applied, nil
}

// Pending reports whether the member has a temp-mute waiting to expire.
func (m *Muter) Pending(guildID, userID string) bool {
	return m.timers.Pending(MuteKey(guildID, userID))
}

func (m *Muter) expire(guildID, notifyChannelID string, target *discordgo.User) {
	logger := m.logger.With(zap.String("guildID", guildID), zap.String("userID", target.ID))

	if _, err := m.platform.GuildMember(guildID, target.ID); err != nil {
		if utils.IsNotFound(err) {
			logger.Info("Temp-muted member left before expiry")
			return
		}
		logger.Warn("Failed to look up temp-muted member", zap.Error(err))
		return
	}

	if _, err := m.forEachChannel(guildID, target.ID, "unmute", func(channelID string) error {
		return m.platform.ChannelPermissionDelete(channelID, target.ID)
	}); err != nil {
		logger.Error("Failed to lift temp-mute", zap.Error(err))
		return
	}

	utils.SendChannelMessage(m.platform, notifyChannelID, fmt.Sprintf("🔊 %s is no longer muted (temporary mute expired).", target.Mention()))
	m.recorder.Record(Action{
		Kind:      model.ActionTempUnmute,
		Moderator: m.botIdentity(),
		Target:    utils.UserIdentity(target),
		Reason:    "Temporary mute expired",
	})
}

func (m *Muter) forEachChannel(guildID, userID, op string, apply func(channelID string) error) (int, error) {
	channels, err := m.platform.GuildChannels(guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list channels of guild %s: %w", guildID, utils.Classify(err))
	}

	applied := 0
	var firstErr error
	for _, channel := range channels {
		if err := apply(channel.ID); err != nil {
			m.logger.Debug("Skipping channel",
				zap.String("op", op),
				zap.String("channelID", channel.ID),
				zap.String("userID", userID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}

	if applied == 0 && firstErr != nil {
		return 0, fmt.Errorf("%s failed on every channel: %w", op, utils.Classify(firstErr))
	}
	return applied, nil
}

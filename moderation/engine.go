package moderation

import (
	"fmt"
	"time"

	"discord-modbot/model"
	"discord-modbot/utils"
	"discord-modbot/utils/database"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Banner is the part of *discordgo.Session that issues bans.
type Banner interface {
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// ActionRecorder appends entries to the action log.
type ActionRecorder interface {
	Record(a Action)
}

// WarnResult reports the outcome of a warning.
type WarnResult struct {
	Count      int
	Threshold  int
	AutoBanned bool
	// BanErr is set when the automatic ban was attempted and failed. The warning
	// itself stays recorded.
	BanErr error
}

// Engine applies the warning policy and its escalation to a ban.
type Engine struct {
	warns       database.WarnStore
	recorder    ActionRecorder
	banner      Banner
	threshold   int
	botIdentity func() string
	logger      *zap.Logger
	now         func() time.Time
}

func NewEngine(warns database.WarnStore, recorder ActionRecorder, banner Banner, threshold int, botIdentity func() string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold < 1 {
		threshold = 3
	}
	return &Engine{
		warns:       warns,
		recorder:    recorder,
		banner:      banner,
		threshold:   threshold,
		botIdentity: botIdentity,
		logger:      logger,
		now:         time.Now,
	}
}

// Threshold returns the warning count that triggers an automatic ban.
func (e *Engine) Threshold() int {
	return e.threshold
}

// AutoBanReason is the ban reason used when a user reaches the threshold.
func (e *Engine) AutoBanReason() string {
	return fmt.Sprintf("Automatic ban after %d warnings", e.threshold)
}

// Warn records a warning and bans the target when the new total reaches the threshold.
// Escalation is evaluated once per call, so later warnings do not ban again.
func (e *Engine) Warn(guildID, moderator string, target *discordgo.User, reason string) (WarnResult, error) {
	result := WarnResult{Threshold: e.threshold}
	count, err := e.warns.Add(target.ID, model.WarnRecord{Reason: reason, Timestamp: e.now().UTC()})
	if err != nil {
		return result, fmt.Errorf("failed to store warning for %s: %w", target.ID, err)
	}
	result.Count = count

	e.recorder.Record(Action{
		Kind:      model.ActionWarn,
		Moderator: moderator,
		Target:    utils.UserIdentity(target),
		Reason:    reason,
	})

	if count != e.threshold {
		return result, nil
	}

	banReason := e.AutoBanReason()
	if err := e.banner.GuildBanCreateWithReason(guildID, target.ID, banReason, 0); err != nil {
		result.BanErr = fmt.Errorf("automatic ban of %s failed: %w", target.ID, utils.Classify(err))
		e.logger.Warn("Automatic ban failed",
			zap.String("guildID", guildID),
			zap.String("userID", target.ID),
			zap.Error(err))
		return result, nil
	}
	result.AutoBanned = true
	e.recorder.Record(Action{
		Kind:      model.ActionBan,
		Moderator: e.botIdentity(),
		Target:    utils.UserIdentity(target),
		Reason:    banReason,
	})
	return result, nil
}

// ResetWarnings clears a user's warnings.
func (e *Engine) ResetWarnings(moderator string, target *discordgo.User) error {
	if err := e.warns.Reset(target.ID); err != nil {
		return fmt.Errorf("failed to reset warnings for %s: %w", target.ID, err)
	}
	e.recorder.Record(Action{
		Kind:      model.ActionUnwarn,
		Moderator: moderator,
		Target:    utils.UserIdentity(target),
	})
	return nil
}

// WarningCount returns the user's current escalation level.
func (e *Engine) WarningCount(userID string) (int, error) {
	return e.warns.Count(userID)
}

package giveaway

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/timers"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Emoji is the reaction members add to enter.
const Emoji = "🎉"

const reactionPageSize = 100

// ErrNotFound is returned for message IDs that are not running giveaways.
var ErrNotFound = errors.New("no running giveaway with that message id")

// Platform is the part of *discordgo.Session used to run giveaways.
type Platform interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
}

// Service keeps the running giveaways of the process. Nothing survives a restart.
type Service struct {
	platform Platform
	timers   *timers.Manager
	recorder moderation.ActionRecorder
	logger   *zap.Logger

	mu     sync.Mutex
	active map[string]model.Giveaway

	// pick returns a random index in [0, n).
	pick func(n int) int
	now  func() time.Time
}

func NewService(platform Platform, timerManager *timers.Manager, recorder moderation.ActionRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		platform: platform,
		timers:   timerManager,
		recorder: recorder,
		logger:   logger,
		active:   make(map[string]model.Giveaway),
		pick:     rand.IntN,
		now:      time.Now,
	}
}

func timerKey(messageID string) string {
	return "giveaway:" + messageID
}

// Start announces a giveaway and schedules its draw.
func (s *Service) Start(guildID, channelID string, host *discordgo.Member, d time.Duration, durationText, prize string) (model.Giveaway, error) {
	now := s.now().UTC()
	embed := &discordgo.MessageEmbed{
		Title:       "🎉 Giveaway running! 🎉",
		Description: fmt.Sprintf("React with %s for a chance to win: **%s**", Emoji, prize),
		Color:       utils.ColorGiveaway,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⏰ Duration", Value: "`" + durationText + "`"},
			{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", now.Add(d).Unix())},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Hosted by " + host.DisplayName()},
		Timestamp: now.Format(time.RFC3339),
	}

	msg, err := s.platform.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return model.Giveaway{}, fmt.Errorf("failed to announce giveaway: %w", utils.Classify(err))
	}
	if err := s.platform.MessageReactionAdd(channelID, msg.ID, Emoji); err != nil {
		s.logger.Warn("Failed to add giveaway reaction", zap.String("messageID", msg.ID), zap.Error(err))
	}

	g := model.Giveaway{
		MessageID: msg.ID,
		ChannelID: channelID,
		GuildID:   guildID,
		HostID:    host.User.ID,
		Host:      utils.UserIdentity(host.User),
		Prize:     prize,
		EndsAt:    now.Add(d),
	}
	s.mu.Lock()
	s.active[g.MessageID] = g
	metrics.ActiveGiveaways.Set(float64(len(s.active)))
	s.mu.Unlock()

	s.recorder.Record(moderation.Action{
		Kind:      model.ActionGiveawayStart,
		Moderator: g.Host,
		Details:   fmt.Sprintf("Giveaway '%s' for %s", prize, durationText),
	})
	s.timers.Schedule(timerKey(g.MessageID), d, func() {
		if _, err := s.Conclude(g.MessageID); err != nil {
			s.logger.Warn("Giveaway draw failed", zap.String("messageID", g.MessageID), zap.Error(err))
		}
	})
	return g, nil
}

func (s *Service) take(messageID string) (model.Giveaway, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.active[messageID]
	if ok {
		delete(s.active, messageID)
		metrics.ActiveGiveaways.Set(float64(len(s.active)))
	}
	return g, ok
}

// Conclude draws a random non-bot entrant and announces the result. It returns nil
// when nobody entered.
func (s *Service) Conclude(messageID string) (*discordgo.User, error) {
	g, ok := s.take(messageID)
	if !ok {
		return nil, ErrNotFound
	}
	s.timers.Cancel(timerKey(messageID))

	entrants, err := s.entrants(g)
	if err != nil {
		if utils.IsNotFound(err) {
			utils.SendChannelMessage(s.platform, g.ChannelID, "Error: the giveaway message was deleted.")
		} else {
			utils.SendChannelMessage(s.platform, g.ChannelID, "Error while fetching the giveaway message.")
		}
		return nil, err
	}

	if len(entrants) == 0 {
		utils.SendChannelMessage(s.platform, g.ChannelID, "😢 Nobody entered the giveaway. There is no winner.")
		s.recorder.Record(moderation.Action{
			Kind:      model.ActionGiveawayEnd,
			Moderator: g.Host,
			Details:   "No participants",
		})
		return nil, nil
	}

	winner := entrants[s.pick(len(entrants))]
	utils.SendChannelMessage(s.platform, g.ChannelID, fmt.Sprintf("🎊 **Congratulations** %s! You won: **%s** 🎉", winner.Mention(), g.Prize))
	s.recorder.Record(moderation.Action{
		Kind:      model.ActionGiveawayEnd,
		Moderator: g.Host,
		Target:    utils.UserIdentity(winner),
		Details:   fmt.Sprintf("Winner: %s, Prize: %s", winner.Username, g.Prize),
	})
	return winner, nil
}

// entrants lists the distinct non-bot users who reacted with the giveaway emoji.
func (s *Service) entrants(g model.Giveaway) ([]*discordgo.User, error) {
	var users []*discordgo.User
	seen := make(map[string]bool)
	after := ""
	for {
		page, err := s.platform.MessageReactions(g.ChannelID, g.MessageID, Emoji, reactionPageSize, "", after)
		if err != nil {
			return nil, utils.Classify(err)
		}
		for _, u := range page {
			if u.Bot || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			users = append(users, u)
		}
		if len(page) < reactionPageSize {
			return users, nil
		}
		after = page[len(page)-1].ID
	}
}

// Cancel stops a running giveaway without a draw.
func (s *Service) Cancel(messageID string, actor *discordgo.User) (model.Giveaway, error) {
	g, ok := s.take(messageID)
	if !ok {
		return model.Giveaway{}, ErrNotFound
	}
	s.timers.Cancel(timerKey(messageID))
	s.recorder.Record(moderation.Action{
		Kind:      model.ActionGiveawayCancel,
		Moderator: utils.UserIdentity(actor),
		Details:   fmt.Sprintf("Giveaway '%s' cancelled", g.Prize),
	})
	return g, nil
}

// Active returns the number of giveaways awaiting a draw.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

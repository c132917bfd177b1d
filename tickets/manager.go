package tickets

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"discord-modbot/metrics"
	"discord-modbot/model"
	"discord-modbot/moderation"
	"discord-modbot/timers"
	"discord-modbot/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	CreateButtonID = "create_ticket_button"
	CloseButtonID  = "close_ticket_button"

	historyPageSize = 100
	staffDMWorkers  = 4
)

// Platform is the part of *discordgo.Session the ticket lifecycle needs.
type Platform interface {
	utils.DirectMessenger
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Options wires the manager to the rest of the bot.
type Options struct {
	Config model.TicketConfig
	// BotUserID returns the bot's own user ID for the channel overwrites.
	BotUserID func() string
	// Staff returns the user IDs of the guild's privileged staff.
	Staff func(guildID string) []string
	Now   func() time.Time
}

// Manager runs the ticket lifecycle: none, open, closing, deleted.
type Manager struct {
	platform Platform
	registry *Registry
	timers   *timers.Manager
	recorder moderation.ActionRecorder
	opts     Options
	logger   *zap.Logger
}

func NewManager(platform Platform, registry *Registry, timerManager *timers.Manager, recorder moderation.ActionRecorder, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Staff == nil {
		opts.Staff = func(string) []string { return nil }
	}
	return &Manager{
		platform: platform,
		registry: registry,
		timers:   timerManager,
		recorder: recorder,
		opts:     opts,
		logger:   logger,
	}
}

// DeletionKey identifies the pending deletion timer of a ticket channel.
func DeletionKey(channelID string) string {
	return "ticket:" + channelID
}

// OpenResult describes a ticket returned by Open.
type OpenResult struct {
	Ticket model.Ticket
	// Existing is set when the creator already had a ticket; Ticket.ChannelID may be
	// empty if that ticket is still being provisioned.
	Existing bool
}

// Open provisions a ticket channel for creator.
func (m *Manager) Open(guildID string, creator *discordgo.User) (OpenResult, error) {
	if existing, ok := m.registry.Reserve(guildID, creator.ID); !ok {
		return OpenResult{Ticket: model.Ticket{ChannelID: existing, GuildID: guildID, CreatorID: creator.ID}, Existing: true}, ErrAlreadyOpen
	}

	ticket, err := m.provision(guildID, creator)
	if err != nil {
		m.registry.Release(guildID, creator.ID)
		return OpenResult{}, err
	}
	m.registry.Put(ticket)
	metrics.OpenTickets.Set(float64(m.registry.Len()))

	_, err = m.platform.ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Welcome %s! Please describe your issue.\nA staff member will answer shortly.", creator.Mention()),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Close ticket", Style: discordgo.DangerButton, CustomID: CloseButtonID, Emoji: &discordgo.ComponentEmoji{Name: "🔒"}},
			}},
		},
	})
	if err != nil {
		m.logger.Warn("Failed to send ticket welcome message", zap.String("channelID", ticket.ChannelID), zap.Error(err))
	}

	m.recorder.Record(moderation.Action{
		Kind:      model.ActionTicketCreate,
		Moderator: utils.UserIdentity(creator),
		Details:   "Ticket created via panel: " + ticket.Name,
	})

	notice := fmt.Sprintf("🆕 New ticket opened by %s (%s): <#%s>", creator.Mention(), creator.ID, ticket.ChannelID)
	m.notifyStaff(guildID, func(string) *discordgo.MessageSend {
		return &discordgo.MessageSend{Content: notice}
	})
	return OpenResult{Ticket: ticket}, nil
}

func (m *Manager) provision(guildID string, creator *discordgo.User) (model.Ticket, error) {
	categoryID, err := m.ensureCategory(guildID)
	if err != nil {
		return model.Ticket{}, err
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: creator.ID, Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles},
	}
	if botID := m.opts.BotUserID(); botID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: botID, Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels})
	}
	for _, staffID := range m.opts.Staff(guildID) {
		if staffID == creator.ID {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{ID: staffID, Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages})
	}

	name := ChannelName(creator.ID)
	channel, err := m.platform.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             categoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to create ticket channel: %w", utils.Classify(err))
	}

	return model.Ticket{
		ChannelID: channel.ID,
		GuildID:   guildID,
		CreatorID: creator.ID,
		Name:      name,
		State:     model.TicketOpen,
		OpenedAt:  m.opts.Now().UTC(),
	}, nil
}

// ensureCategory returns the ticket category, creating it hidden from @everyone.
func (m *Manager) ensureCategory(guildID string) (string, error) {
	channels, err := m.platform.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to list channels: %w", utils.Classify(err))
	}
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildCategory && c.Name == m.opts.Config.CategoryName {
			return c.ID, nil
		}
	}

	category, err := m.platform.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: m.opts.Config.CategoryName,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create ticket category: %w", utils.Classify(err))
	}
	m.logger.Info("Created ticket category", zap.String("guildID", guildID), zap.String("categoryID", category.ID))
	return category.ID, nil
}

// Lookup returns the ticket of a channel. Ticket channels unknown to the registry are
// adopted on the spot; a name without a creator ID leaves the ticket staff-only.
func (m *Manager) Lookup(channel *discordgo.Channel) (model.Ticket, bool) {
	if t, ok := m.registry.Get(channel.ID); ok {
		return t, true
	}
	if channel.Type != discordgo.ChannelTypeGuildText || !IsTicketName(channel.Name) {
		return model.Ticket{}, false
	}
	creatorID, _ := CreatorFromName(channel.Name)
	t := model.Ticket{
		ChannelID: channel.ID,
		GuildID:   channel.GuildID,
		CreatorID: creatorID,
		Name:      channel.Name,
		State:     model.TicketOpen,
		OpenedAt:  m.opts.Now().UTC(),
	}
	m.registry.Put(t)
	metrics.OpenTickets.Set(float64(m.registry.Len()))
	return t, true
}

// Adopt registers existing ticket-<digits> channels, e.g. after a restart.
func (m *Manager) Adopt(channels []*discordgo.Channel) int {
	adopted := 0
	for _, c := range channels {
		if c.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if _, ok := CreatorFromName(c.Name); !ok {
			continue
		}
		if _, known := m.registry.Get(c.ID); known {
			continue
		}
		m.Lookup(c)
		adopted++
	}
	return adopted
}

func authorize(t model.Ticket, actorID string, actorIsStaff bool) error {
	if actorIsStaff || (t.CreatorID != "" && t.CreatorID == actorID) {
		return nil
	}
	return ErrNotAuthorized
}

// BeginClose moves an open ticket to closing. Unauthorized actors leave it open.
func (m *Manager) BeginClose(channel *discordgo.Channel, actor *discordgo.User, actorIsStaff bool, via string) (model.Ticket, error) {
	t, ok := m.Lookup(channel)
	if !ok {
		return model.Ticket{}, ErrNotTicket
	}
	if err := authorize(t, actor.ID, actorIsStaff); err != nil {
		return t, err
	}
	t, err := m.registry.Transition(channel.ID, model.TicketOpen, model.TicketClosing)
	if err != nil {
		return t, err
	}
	m.recorder.Record(moderation.Action{
		Kind:      model.ActionTicketClose,
		Moderator: utils.UserIdentity(actor),
		Details:   fmt.Sprintf("Ticket closed: %s via %s", t.Name, via),
	})
	return t, nil
}

// FinishClose sends the transcript to staff and schedules the channel deletion after
// the grace delay. It returns the number of staff members reached.
func (m *Manager) FinishClose(t model.Ticket, actor *discordgo.User) int {
	messages, fetchErr := m.history(t.ChannelID)
	if fetchErr != nil {
		m.logger.Warn("Failed to fetch ticket history", zap.String("channelID", t.ChannelID), zap.Error(fetchErr))
	}
	transcript := BuildTranscript(t.Name, actor.String(), m.opts.Now(), messages, fetchErr)

	header := fmt.Sprintf("📄 **Ticket transcript for %s:**", t.Name)
	sent := m.notifyStaff(t.GuildID, func(string) *discordgo.MessageSend {
		if utf8.RuneCountInString(transcript) <= m.opts.Config.InlineLimit {
			return &discordgo.MessageSend{Content: header + "\n```\n" + transcript + "\n```"}
		}
		return &discordgo.MessageSend{
			Content: header,
			Files: []*discordgo.File{{
				Name:        "transcript.txt",
				ContentType: "text/plain; charset=utf-8",
				Reader:      strings.NewReader(transcript),
			}},
		}
	})
	m.logger.Info("Ticket transcript delivered",
		zap.String("channelID", t.ChannelID),
		zap.Int("staff", sent))

	m.timers.Schedule(DeletionKey(t.ChannelID), m.opts.Config.GraceDelay, func() {
		m.deleteChannel(t.ChannelID)
	})
	return sent
}

// history returns every message of the channel, oldest first.
func (m *Manager) history(channelID string) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	before := ""
	for {
		page, err := m.platform.ChannelMessages(channelID, historyPageSize, before, "", "")
		if err != nil {
			return reverse(all), utils.Classify(err)
		}
		all = append(all, page...)
		if len(page) < historyPageSize {
			break
		}
		before = page[len(page)-1].ID
	}
	return reverse(all), nil
}

func reverse(messages []*discordgo.Message) []*discordgo.Message {
	out := make([]*discordgo.Message, len(messages))
	for i, msg := range messages {
		out[len(messages)-1-i] = msg
	}
	return out
}

// deleteChannel destroys a closing ticket. On failure the error is posted in the
// channel and the ticket stays in closing.
func (m *Manager) deleteChannel(channelID string) {
	t, ok := m.registry.Get(channelID)
	if !ok {
		return
	}
	if _, err := m.platform.ChannelDelete(channelID); err != nil {
		err = utils.Classify(err)
		m.logger.Error("Failed to delete ticket channel", zap.String("channelID", channelID), zap.Error(err))
		msg := fmt.Sprintf("❌ **Unexpected error:** could not delete channel '%s': %v", t.Name, err)
		if errors.Is(err, utils.ErrAuthorizationDenied) {
			msg = fmt.Sprintf("❌ **Error:** I do NOT have permission to delete channel '%s'. Check my roles (Manage Channels) or delete it manually.", t.Name)
		}
		utils.SendChannelMessage(m.platform, channelID, msg)
		return
	}
	m.forget(channelID)
}

// Delete removes a ticket immediately, cancelling any pending deletion timer.
func (m *Manager) Delete(channel *discordgo.Channel, actor *discordgo.User) error {
	t, ok := m.Lookup(channel)
	if !ok {
		return ErrNotTicket
	}
	m.timers.Cancel(DeletionKey(channel.ID))
	if _, err := m.platform.ChannelDelete(channel.ID); err != nil {
		return fmt.Errorf("failed to delete ticket %s: %w", t.Name, utils.Classify(err))
	}
	m.forget(channel.ID)
	m.recorder.Record(moderation.Action{
		Kind:      model.ActionTicketDelete,
		Moderator: utils.UserIdentity(actor),
		Details:   "Ticket deleted: " + t.Name,
	})
	return nil
}

// Rename renames the ticket channel to ticket-<sanitized name>. The creator keeps
// their rights because ownership lives in the registry.
func (m *Manager) Rename(channel *discordgo.Channel, actor *discordgo.User, actorIsStaff bool, newName string) (string, error) {
	t, ok := m.Lookup(channel)
	if !ok {
		return "", ErrNotTicket
	}
	if err := authorize(t, actor.ID, actorIsStaff); err != nil {
		return "", err
	}
	cleaned, err := Sanitize(newName)
	if err != nil {
		return "", err
	}
	name := NamePrefix + cleaned
	if _, err := m.platform.ChannelEdit(channel.ID, &discordgo.ChannelEdit{Name: name}); err != nil {
		return "", fmt.Errorf("failed to rename ticket: %w", utils.Classify(err))
	}
	m.registry.SetName(channel.ID, name)
	m.recorder.Record(moderation.Action{
		Kind:      model.ActionTicketRename,
		Moderator: utils.UserIdentity(actor),
		Details:   "Ticket renamed to " + name,
	})
	return name, nil
}

// Forget drops a ticket whose channel disappeared outside the bot.
func (m *Manager) Forget(channelID string) bool {
	if _, ok := m.registry.Get(channelID); !ok {
		return false
	}
	m.forget(channelID)
	return true
}

func (m *Manager) forget(channelID string) {
	m.timers.Cancel(DeletionKey(channelID))
	m.registry.Remove(channelID)
	metrics.OpenTickets.Set(float64(m.registry.Len()))
}

// Count returns the number of registered tickets.
func (m *Manager) Count() int {
	return m.registry.Len()
}

func (m *Manager) notifyStaff(guildID string, build func(userID string) *discordgo.MessageSend) int {
	staff := m.opts.Staff(guildID)
	if len(staff) == 0 {
		return 0
	}
	sent, failed := utils.FanOutPrivate(m.platform, staff, staffDMWorkers, build, func(userID string, err error) {
		m.logger.Debug("Staff DM failed", zap.String("userID", userID), zap.Error(err))
	})
	metrics.DirectMessages.WithLabelValues("sent").Add(float64(sent))
	metrics.DirectMessages.WithLabelValues("failed").Add(float64(failed))
	return sent
}
